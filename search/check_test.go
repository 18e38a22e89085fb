package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/mixture"
)

func TestCheckMakeone(t *testing.T) {
	tests := []struct {
		name       string
		blocks     int
		mixture    []float64
		makeone    []int
		strictness mixture.Strictness
		want       bool
	}{
		{"one block lower edge", 1, []float64{0.5, 0.43, 0.1}, []int{0, 1}, mixture.Strict, true},
		{"one block below edge", 1, []float64{0.5, 0.429, 0.1}, []int{0, 1}, mixture.Strict, false},
		{"one block upper edge", 1, []float64{0.5, 0.57, 0.1}, []int{0, 1}, mixture.Strict, true},
		{"one block lenient", 1, []float64{0.5, 0.37, 0.1}, []int{0, 1}, mixture.Lenient, true},
		{"one block lenient below", 1, []float64{0.5, 0.36, 0.1}, []int{0, 1}, mixture.Lenient, false},
		{"two blocks strict", 2, []float64{0.5, 0.45, 0.5, 0.55}, []int{0, 1}, mixture.Strict, true},
		{"two blocks one off", 2, []float64{0.5, 0.44, 0.5, 0.55}, []int{0, 1}, mixture.Strict, false},
		{"two blocks lenient", 2, []float64{0.5, 0.4, 0.5, 0.6}, []int{0, 1}, mixture.Lenient, true},
		{"single clone", 1, []float64{0.75, 0.2}, []int{0}, mixture.Strict, true},
		{"single clone too low", 1, []float64{0.65, 0.2}, []int{0}, mixture.Strict, false},
		{"single clone lenient", 1, []float64{0.75, 0.2}, []int{0}, mixture.Lenient, true},
		{"single clone lenient too low", 1, []float64{0.65, 0.2}, []int{0}, mixture.Lenient, false},
		{"single clone upper edge", 1, []float64{1.3, 0.2}, []int{0}, mixture.Lenient, true},
		{"single clone above edge", 1, []float64{1.31, 0.2}, []int{0}, mixture.Strict, false},
		{"single clone two blocks", 2, []float64{0.75, 0.2, 1.25, 0.1}, []int{0}, mixture.Strict, true},
		{"single clone two blocks one off", 2, []float64{0.75, 0.2, 0.65, 0.1}, []int{0}, mixture.Lenient, false},
		{"empty makeone", 1, []float64{1.0}, nil, mixture.Strict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := len(tt.mixture) / tt.blocks
			m := mat.NewDense(tt.blocks, k, tt.mixture)

			ok, sums := CheckMakeone(m, tt.makeone, tt.strictness)
			assert.Equal(t, tt.want, ok)
			assert.Len(t, sums, tt.blocks)
		})
	}
}

func TestCheckMakeone_Sums(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		0.2, 0.3, 0.5,
		0.1, 0.4, 0.6,
	})
	_, sums := CheckMakeone(m, []int{0, 2}, mixture.Strict)
	assert.InDeltaSlice(t, []float64{0.7, 0.7}, sums, 1e-12)
}
