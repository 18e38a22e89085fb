package mixture

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Selection bands for candidate makeone sets. These are looser than the
// validity bands applied to a finished step.
var selectionBands = map[Strictness][2]float64{
	Strict:  {0.84, 1.15},
	Lenient: {0.77, 1.25},
}

// How a makeone candidate relates to the FP clone.
const (
	// newFP: no FP so far and exactly one clone lies inside the children;
	// that clone becomes an involuntary FP.
	newFP = 2
	// noFP: no FP so far and every remaining clone is a parent.
	noFP = 3
	// keepFP: an FP exists and every remaining clone is a parent.
	keepFP = 4
)

type candidate struct {
	subset []int
	p      float64
	kind   int
	fp     int
}

// selectMakeone picks the set of clones whose fractions sum to about one in
// every block and updates Makeone, FP and FPInvoluntary. When no set
// qualifies Makeone is cleared and FP is dropped.
func (s *Solver) selectMakeone(st *State, step int) {
	blocks, k := st.Mixture.Dims()

	if k == 1 {
		st.Makeone = []int{0}
		st.FP = -1
		st.FPInvoluntary = false
		return
	}

	counts := st.Counts()
	cols := columns(st.Mixture)

	present := make([]int, 0, k)
	for j := 0; j < k; j++ {
		if counts[j] > 0 && j != st.FP {
			present = append(present, j)
		}
	}

	center := make([]int, blocks)
	for i := range center {
		center[i] = 500
	}

	band := selectionBands[s.cfg.Strictness]

	var cands []candidate
	for _, subset := range combinations(present, 1) {
		sums := sumColumns(cols, subset, blocks)
		if !within(sums, band) {
			continue
		}

		p := betaBinomScore(center, sums)
		if p <= -outOfSupportPenalty {
			continue
		}

		c, ok := s.classify(st, cols, counts, subset, step)
		if !ok {
			continue
		}
		c.p = p
		cands = append(cands, c)
	}

	if len(cands) == 0 {
		st.Makeone = nil
		st.FP = -1
		st.FPInvoluntary = false
		s.logger.Debug("no makeone candidate", "step", step, "k", k)
		return
	}

	sort.SliceStable(cands, func(a, b int) bool { return cands[a].p > cands[b].p })

	best := 0
	if len(cands) >= 2 && (cands[0].kind == newFP || cands[0].kind == keepFP) && cands[1].kind == noFP {
		first := st.Clone()
		first.Makeone, first.FP = cands[0].subset, cands[0].fp
		s.assign(first)

		second := st.Clone()
		second.Makeone, second.FP = cands[1].subset, -1
		s.assign(second)

		if second.Likelihood > first.Likelihood {
			best = 1
		}
		s.logger.Debug("makeone runoff",
			"step", step,
			"first", cands[0].subset,
			"first_likelihood", first.Likelihood,
			"second", cands[1].subset,
			"second_likelihood", second.Likelihood,
		)
	}

	chosen := cands[best]
	st.Makeone = chosen.subset
	st.FP = chosen.fp
	st.FPInvoluntary = chosen.kind == newFP

	s.logger.Debug("makeone selected",
		"step", step,
		"makeone", chosen.subset,
		"fp", chosen.fp,
		"kind", chosen.kind,
		"p", chosen.p,
	)
}

// classify checks the clones outside subset. Clones dominating two or more
// children are parents and must pass the phylogeny check; clones lying
// inside a child are tolerated only as a single new FP.
func (s *Solver) classify(st *State, cols [][]float64, counts []int, subset []int, step int) (candidate, bool) {
	blocks := len(cols[0])
	k := len(cols)

	var (
		smaller  []int
		children [][]int
	)
	for j3 := 0; j3 < k; j3++ {
		if slices.Contains(subset, j3) || j3 == st.FP || counts[j3] == 0 {
			continue
		}

		lt, gt := 0, 0
		for _, j4 := range subset {
			if lessAll(cols[j3], cols[j4]) {
				lt++
			}
			if greaterAll(cols[j3], cols[j4]) {
				gt++
			}
		}

		if lt >= 1 {
			smaller = append(smaller, j3)
		}
		if gt >= 2 {
			c, ok := verifyPhylogeny(cols, subset, j3, children, step)
			if !ok {
				return candidate{}, false
			}
			children = append(children, c)
		}
	}

	if len(children) > s.cfg.MaxParent {
		return candidate{}, false
	}
	if blocks == 1 && len(children) > 0 {
		return candidate{}, false
	}

	// Every remaining clone other than skip must be a parent of two children.
	allParents := func(skip int) bool {
		for j3 := 0; j3 < k; j3++ {
			if slices.Contains(subset, j3) || j3 == st.FP || j3 == skip || counts[j3] == 0 {
				continue
			}
			gt := 0
			for _, j4 := range subset {
				if greaterAll(cols[j3], cols[j4]) {
					gt++
				}
			}
			if gt < 2 {
				return false
			}
		}
		return true
	}

	switch {
	case st.FP < 0 && len(smaller) == 1:
		fp := smaller[0]
		if !allParents(fp) || counts[fp] <= s.cfg.MinClusterSize {
			return candidate{}, false
		}
		return candidate{subset: subset, kind: newFP, fp: fp}, true

	case len(smaller) == 0:
		if !allParents(-1) {
			return candidate{}, false
		}
		if st.FP >= 0 {
			return candidate{subset: subset, kind: keepFP, fp: st.FP}, true
		}
		return candidate{subset: subset, kind: noFP, fp: -1}, true
	}

	return candidate{}, false
}

// verifyPhylogeny finds the combination of two or more children, not yet
// claimed by another parent, that best explains parent j3.
func verifyPhylogeny(cols [][]float64, subset []int, j3 int, claimed [][]int, step int) ([]int, bool) {
	blocks := len(cols[0])

	target := make([]int, blocks)
	for i := range target {
		target[i] = int(cols[j3][i] * 1000 / 2)
	}

	best := math.Inf(-1)
	var bestChildren []int
	for _, c := range combinations(subset, 2) {
		if slices.ContainsFunc(claimed, func(x []int) bool { return slices.Equal(x, c) }) {
			continue
		}
		if p := betaBinomScore(target, sumColumns(cols, c, blocks)); p > best {
			best = math.Round(p*100) / 100
			bestChildren = c
		}
	}

	threshold := -3 - float64(blocks)
	if step <= 4 {
		threshold -= float64(4-step) / 2
	}

	if best < threshold {
		return nil, false
	}
	return bestChildren, true
}

// combinations returns every subset of items with at least minSize elements,
// ordered by size and then lexicographically.
func combinations(items []int, minSize int) [][]int {
	var out [][]int
	for size := minSize; size <= len(items); size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		for {
			c := make([]int, size)
			for i, x := range idx {
				c[i] = items[x]
			}
			out = append(out, c)

			i := size - 1
			for i >= 0 && idx[i] == len(items)-size+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < size; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return out
}

func columns(m *mat.Dense) [][]float64 {
	_, k := m.Dims()
	cols := make([][]float64, k)
	for j := range cols {
		cols[j] = mat.Col(nil, j, m)
	}
	return cols
}

func sumColumns(cols [][]float64, subset []int, blocks int) []float64 {
	sums := make([]float64, blocks)
	for _, j := range subset {
		floats.Add(sums, cols[j])
	}
	return sums
}

func within(sums []float64, band [2]float64) bool {
	for _, v := range sums {
		if v < band[0] || v > band[1] {
			return false
		}
	}
	return true
}

// lessAll reports a[i] <= b[i] for every block.
func lessAll(a, b []float64) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

// greaterAll reports a[i] >= b[i] for every block.
func greaterAll(a, b []float64) bool {
	for i := range a {
		if a[i] < b[i] {
			return false
		}
	}
	return true
}
