package search

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/mixture"
)

const checkSlack = 1e-9

type band struct{ lo, hi float64 }

var (
	// multiBlockBands and singleBlockBands are indexed by Strictness.
	multiBlockBands = map[mixture.Strictness]band{
		mixture.Strict:  {0.95, 1.05},
		mixture.Lenient: {0.90, 1.10},
	}
	singleBlockBands = map[mixture.Strictness]band{
		mixture.Strict:  {0.93, 1.07},
		mixture.Lenient: {0.87, 1.13},
	}
	// A lone makeone clone tolerates one contaminating homologous variant.
	singleCloneBand = band{0.7, 1.3}
)

// CheckMakeone sums the makeone columns of mix per block and reports whether
// every sum lies within the tolerance band for the block count and
// strictness. An empty makeone set never passes.
func CheckMakeone(mix *mat.Dense, makeone []int, strictness mixture.Strictness) (bool, []float64) {
	blocks, _ := mix.Dims()

	sums := make([]float64, blocks)
	for _, j := range makeone {
		for i := range sums {
			sums[i] += mix.At(i, j)
		}
	}

	if len(makeone) == 0 {
		return false, sums
	}

	b := multiBlockBands[strictness]
	switch {
	case len(makeone) == 1:
		b = singleCloneBand
	case blocks == 1:
		b = singleBlockBands[strictness]
	}

	for _, s := range sums {
		if s < b.lo-checkSlack || s > b.hi+checkSlack {
			return false, sums
		}
	}
	return true, sums
}
