package emclone

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/emclone/mixture"
	"github.com/hupe1980/emclone/search"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	cfg, err := s.SearchConfig()
	require.NoError(t, err)
	assert.Equal(t, search.DefaultConfig(), cfg)

	assert.Equal(t, 8, s.KMeansClusters)
	assert.Equal(t, int64(1), s.RandomSeed)
	assert.Equal(t, -1, s.RandomPick)
	assert.Equal(t, "none", s.Trace)
}

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings(strings.NewReader(`
k_min: 2
k_max: 7
strictness: lenient
trace: zstd
`))
	require.NoError(t, err)

	assert.Equal(t, 2, s.KMin)
	assert.Equal(t, 7, s.KMax)
	assert.Equal(t, 5, s.Trials, "absent fields keep defaults")
	assert.Equal(t, "zstd", s.Trace)

	cfg, err := s.SearchConfig()
	require.NoError(t, err)
	assert.Equal(t, mixture.Lenient, cfg.Strictness)
}

func TestLoadSettings_Empty(t *testing.T) {
	s, err := LoadSettings(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettings_Invalid(t *testing.T) {
	_, err := LoadSettings(strings.NewReader("k_min: [1"))
	assert.ErrorContains(t, err, "failed to parse settings")
}

func TestSettings_Marshal(t *testing.T) {
	in := DefaultSettings()
	in.KMax = 9
	in.Visualize = true

	data, err := in.Marshal()
	require.NoError(t, err)

	out, err := LoadSettings(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Settings)
		field string
	}{
		{"strictness", func(s *Settings) { s.Strictness = "loose" }, "strictness"},
		{"trace", func(s *Settings) { s.Trace = "gzip" }, "trace"},
		{"kmeans", func(s *Settings) { s.KMeansClusters = 0 }, "kmeans_clusters"},
		{"random pick zero", func(s *Settings) { s.RandomPick = 0 }, "random_pick"},
		{"random pick negative", func(s *Settings) { s.RandomPick = -2 }, "random_pick"},
		{"workers", func(s *Settings) { s.Workers = -1 }, "workers"},
		{"io", func(s *Settings) { s.IOLimitBytesPerSec = -1 }, "io_limit_bytes_per_sec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(&s)

			var err *ErrInvalidSetting
			require.ErrorAs(t, s.Validate(), &err)
			assert.Equal(t, tt.field, err.Field)
		})
	}
}

func TestSettings_ValidateSearch(t *testing.T) {
	s := DefaultSettings()
	s.Trials = 0
	assert.ErrorIs(t, s.Validate(), search.ErrInvalidConfig)

	s = DefaultSettings()
	s.KMin = 0
	var rangeErr *ErrInvalidKRange
	assert.ErrorAs(t, s.Validate(), &rangeErr)
}

func TestParseStrictness(t *testing.T) {
	for in, want := range map[string]mixture.Strictness{
		"":        mixture.Strict,
		"strict":  mixture.Strict,
		"1":       mixture.Strict,
		"lenient": mixture.Lenient,
		"2":       mixture.Lenient,
	} {
		got, err := parseStrictness(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestOptions_Order(t *testing.T) {
	s := DefaultSettings()
	s.KMax = 9

	o := applyOptions([]Option{WithKRange(1, 2), WithSettings(s), WithTrials(7), nil})
	assert.Equal(t, 9, o.settings.KMax)
	assert.Equal(t, 7, o.settings.Trials)

	o = applyOptions([]Option{WithLogger(nil), WithMetricsCollector(nil)})
	assert.NotNil(t, o.logger)
	assert.NotNil(t, o.metricsCollector)
}
