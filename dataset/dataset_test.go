package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTSV(t *testing.T) {
	input := strings.Join([]string{
		"# id\tcounts\tanswer\tbq",
		"m1\t100,25,80,40\tV1",
		"",
		"m2\t0,0,50,5\tFP\t30,20",
		"m3\t200,20,100,10",
	}, "\n")

	ds, err := ReadTSV(strings.NewReader(input))
	require.NoError(t, err)

	n, blocks := ds.Dims()
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, blocks)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ds.IDs)
	assert.Equal(t, []string{"V1", "FP", ""}, ds.Answer)

	assert.Equal(t, 100.0, ds.Depth.At(0, 0))
	assert.Equal(t, 40.0, ds.Alt.At(0, 1))

	vaf := ds.VAF()
	assert.InDelta(t, 0.25, vaf.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, vaf.At(0, 1), 1e-12)
	assert.Equal(t, 0.0, vaf.At(1, 0), "zero depth yields zero VAF")

	assert.Equal(t, 30.0, ds.BQ.At(1, 0))
	assert.Equal(t, float64(DefaultBaseQuality), ds.BQ.At(0, 0))

	rate := ds.ErrorRate()
	assert.InDelta(t, 0.001, rate.At(1, 0), 1e-12)
	assert.InDelta(t, 0.01, rate.At(0, 0), 1e-12)
}

func TestReadTSV_BlockMismatch(t *testing.T) {
	input := "m1\t100,25,80,40\nm2\t100,25\n"

	_, err := ReadTSV(strings.NewReader(input))
	require.Error(t, err)

	var bm *ErrBlockMismatch
	require.True(t, errors.As(err, &bm))
	assert.Equal(t, 1, bm.Row)
	assert.Equal(t, 2, bm.Expected)
	assert.Equal(t, 1, bm.Actual)
}

func TestReadTSV_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"odd counts", "m1\t100,25,80\n"},
		{"not a number", "m1\t100,x\n"},
		{"missing counts", "m1\n"},
		{"alt above depth", "m1\t10,20\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestReadTSV_ParseErrorLine(t *testing.T) {
	_, err := ReadTSV(strings.NewReader("m1\t10,2\nm2\t10,y\n"))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "counts", pe.Field)
}

func TestReadTSV_Empty(t *testing.T) {
	_, err := ReadTSV(strings.NewReader("# nothing\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRandomPick(t *testing.T) {
	depth := make([][]int, 20)
	alt := make([][]int, 20)
	for k := range depth {
		depth[k] = []int{100}
		alt[k] = []int{k}
	}
	ds, err := New(nil, depth, alt)
	require.NoError(t, err)

	picked := ds.RandomPick(5, 1)
	assert.Equal(t, 5, picked.Mutations())

	again := ds.RandomPick(5, 1)
	assert.Equal(t, picked.IDs, again.IDs, "same seed picks the same rows")

	// Rows keep their original relative order.
	for r := 1; r < picked.Mutations(); r++ {
		assert.Less(t, picked.Alt.At(r-1, 0), picked.Alt.At(r, 0))
	}

	assert.Same(t, ds, ds.RandomPick(-1, 1))
	assert.Same(t, ds, ds.RandomPick(50, 1))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.123, Round(0.12345, 3))
	assert.Equal(t, 0.5, Round(0.499999, 2))
}
