package emclone

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/emclone/mixture"
	"github.com/hupe1980/emclone/resource"
	"github.com/hupe1980/emclone/search"
	"github.com/hupe1980/emclone/trace"
)

// Settings is the serializable run configuration. It is what the command
// line tool reads from --config and what Run records in run.yaml.
type Settings struct {
	KMin           int    `yaml:"k_min"`
	KMax           int    `yaml:"k_max"`
	Trials         int    `yaml:"trials"`
	Steps          int    `yaml:"steps"`
	MaxParent      int    `yaml:"max_parent"`
	MinClusterSize int    `yaml:"min_cluster_size"`
	Strictness     string `yaml:"strictness"` // strict, lenient

	KMeansClusters int   `yaml:"kmeans_clusters"`
	RandomSeed     int64 `yaml:"random_seed"`
	RandomPick     int   `yaml:"random_pick"` // -1 keeps every mutation

	GapReferences int `yaml:"gap_references"`

	Visualize bool   `yaml:"visualize"`
	Trace     string `yaml:"trace"` // none, lz4, zstd

	Workers            int64 `yaml:"workers"`
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec"`
}

// DefaultSettings returns the defaults of the command line tool.
func DefaultSettings() Settings {
	cfg := search.DefaultConfig()
	return Settings{
		KMin:           cfg.KMin,
		KMax:           cfg.KMax,
		Trials:         cfg.TrialCount,
		Steps:          cfg.StepCount,
		MaxParent:      cfg.MaxParent,
		MinClusterSize: cfg.MinClusterSize,
		Strictness:     cfg.Strictness.String(),
		KMeansClusters: DefaultKMeansClusters,
		RandomSeed:     1,
		RandomPick:     -1,
		GapReferences:  DefaultGapReferences,
		Trace:          trace.CompressionNone.String(),
	}
}

// LoadSettings reads YAML settings from r on top of DefaultSettings.
// Fields absent from the document keep their defaults.
func LoadSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()
	data, err := io.ReadAll(r)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// Marshal encodes s as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// SearchConfig converts s into the sweep parameters.
func (s Settings) SearchConfig() (search.Config, error) {
	strictness, err := parseStrictness(s.Strictness)
	if err != nil {
		return search.Config{}, err
	}
	cfg := search.Config{
		KMin:           s.KMin,
		KMax:           s.KMax,
		TrialCount:     s.Trials,
		StepCount:      s.Steps,
		MaxParent:      s.MaxParent,
		MinClusterSize: s.MinClusterSize,
		Strictness:     strictness,
		Visualize:      s.Visualize,
	}
	if s.KMin < 1 || s.KMax < s.KMin {
		return cfg, &ErrInvalidKRange{KMin: s.KMin, KMax: s.KMax, cause: search.ErrInvalidConfig}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Resources returns the resource limits of s.
func (s Settings) Resources() resource.Config {
	return resource.Config{
		MaxWorkers:         s.Workers,
		MemoryLimitBytes:   s.MemoryLimitBytes,
		IOLimitBytesPerSec: s.IOLimitBytesPerSec,
	}
}

// Validate reports the first field that cannot be applied.
func (s Settings) Validate() error {
	if _, err := s.SearchConfig(); err != nil {
		return err
	}
	if _, err := trace.ParseCompression(s.Trace); err != nil {
		return &ErrInvalidSetting{Field: "trace", Value: s.Trace, cause: err}
	}
	switch {
	case s.KMeansClusters < 1:
		return &ErrInvalidSetting{Field: "kmeans_clusters", Value: s.KMeansClusters}
	case s.RandomPick == 0 || s.RandomPick < -1:
		return &ErrInvalidSetting{Field: "random_pick", Value: s.RandomPick}
	case s.GapReferences < 1:
		return &ErrInvalidSetting{Field: "gap_references", Value: s.GapReferences}
	case s.Workers < 0:
		return &ErrInvalidSetting{Field: "workers", Value: s.Workers}
	case s.MemoryLimitBytes < 0:
		return &ErrInvalidSetting{Field: "memory_limit_bytes", Value: s.MemoryLimitBytes}
	case s.IOLimitBytesPerSec < 0:
		return &ErrInvalidSetting{Field: "io_limit_bytes_per_sec", Value: s.IOLimitBytesPerSec}
	}
	return nil
}

func parseStrictness(s string) (mixture.Strictness, error) {
	switch s {
	case "", mixture.Strict.String(), "1":
		return mixture.Strict, nil
	case mixture.Lenient.String(), "2":
		return mixture.Lenient, nil
	default:
		return 0, &ErrInvalidSetting{Field: "strictness", Value: s}
	}
}
