// Package mixture fits hard-assignment binomial mixtures of clone fractions.
//
// A Solver alternates two steps over a State:
//
//   - Estep assigns every mutation to the clone with the highest binomial
//     log-likelihood of its alt reads, then selects the makeone set.
//   - Mstep refits every clone fraction from its members and reselects the
//     makeone set for the refitted mixture.
//
// Clone fractions are cellular fractions (2 x VAF). A false-positive (FP)
// clone models sequencing noise: its members are scored against the
// per-read error rate 10^(-BQ/10) instead of a clone fraction.
package mixture

import (
	"log/slog"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hupe1980/emclone/dataset"
)

// Strictness selects a tolerance table for the makeone sums.
type Strictness int

const (
	// Strict uses the tight tolerance table.
	Strict Strictness = 1
	// Lenient uses the loose tolerance table.
	Lenient Strictness = 2
)

func (s Strictness) String() string {
	switch s {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	default:
		return "unknown"
	}
}

// Config holds the solver parameters.
type Config struct {
	// MaxParent is the largest number of parent clones a makeone set may imply.
	MaxParent int
	// MinClusterSize is the smallest clone an involuntary FP may be made from.
	MinClusterSize int
	// Strictness selects the makeone selection band.
	Strictness Strictness
}

// probFloor keeps binomial probabilities away from 0 and 1.
const probFloor = 1e-4

// Solver runs E and M steps against one dataset.
type Solver struct {
	depth   *mat.Dense
	alt     *mat.Dense
	errRate *mat.Dense
	cfg     Config
	logger  *slog.Logger
}

// NewSolver creates a Solver. A nil logger discards output.
func NewSolver(ds *dataset.Dataset, cfg Config, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Strictness == 0 {
		cfg.Strictness = Strict
	}
	return &Solver{
		depth:   ds.Depth,
		alt:     ds.Alt,
		errRate: ds.ErrorRate(),
		cfg:     cfg,
		logger:  logger,
	}
}

// Estep reassigns mutations to clones and selects the makeone set.
func (s *Solver) Estep(st *State, step int) *State {
	out := st.Clone()
	s.assign(out)

	fp := out.FP
	s.selectMakeone(out, step)
	if out.FP != fp {
		s.assign(out)
	}

	return out
}

// Mstep refits the mixture from the current membership.
func (s *Solver) Mstep(st *State, step int) *State {
	out := st.Clone()
	blocks, k := out.Mixture.Dims()

	altSum := mat.NewDense(blocks, k, nil)
	depthSum := mat.NewDense(blocks, k, nil)
	for m, j := range out.Membership {
		for i := 0; i < blocks; i++ {
			altSum.Set(i, j, altSum.At(i, j)+s.alt.At(m, i))
			depthSum.Set(i, j, depthSum.At(i, j)+s.depth.At(m, i))
		}
	}

	for i := 0; i < blocks; i++ {
		for j := 0; j < k; j++ {
			if d := depthSum.At(i, j); d > 0 {
				out.Mixture.Set(i, j, 2*altSum.At(i, j)/d)
			}
		}
	}

	s.selectMakeone(out, step)
	s.score(out)
	s.collectFP(out)

	return out
}

// logProb returns the log-likelihood of mutation m under clone j.
func (s *Solver) logProb(m, j int, mix *mat.Dense, fp int) float64 {
	blocks, _ := mix.Dims()

	var lp float64
	for i := 0; i < blocks; i++ {
		n := s.depth.At(m, i)
		if n == 0 {
			continue
		}

		var p float64
		if j == fp {
			p = s.errRate.At(m, i)
		} else {
			p = mix.At(i, j) / 2
		}
		p = math.Min(math.Max(p, probFloor), 1-probFloor)

		lp += distuv.Binomial{N: n, P: p}.LogProb(s.alt.At(m, i))
	}
	return lp
}

// fillLogP computes LogP and Posterior for the current mixture.
func (s *Solver) fillLogP(st *State) {
	n, _ := s.depth.Dims()
	k := st.K()

	st.LogP = mat.NewDense(n, k, nil)
	st.Posterior = mat.NewDense(n, k, nil)

	row := make([]float64, k)
	for m := 0; m < n; m++ {
		for j := 0; j < k; j++ {
			row[j] = s.logProb(m, j, st.Mixture, st.FP)
		}
		st.LogP.SetRow(m, row)

		norm := floats.LogSumExp(row)
		for j, lp := range row {
			st.Posterior.Set(m, j, math.Exp(lp-norm))
		}
	}
}

// assign gives every mutation its most likely clone.
func (s *Solver) assign(st *State) {
	s.fillLogP(st)

	n, _ := st.LogP.Dims()
	if len(st.Membership) != n {
		st.Membership = make([]int, n)
	}

	var total float64
	for m := 0; m < n; m++ {
		row := st.LogP.RawRowView(m)
		best := floats.MaxIdx(row)
		st.Membership[m] = best
		total += row[best]
	}
	st.Likelihood = total

	s.collectFP(st)
}

// score recomputes LogP and the likelihood of the current membership.
func (s *Solver) score(st *State) {
	s.fillLogP(st)

	var total float64
	for m, j := range st.Membership {
		total += st.LogP.At(m, j)
	}
	st.Likelihood = total
}

func (s *Solver) collectFP(st *State) {
	members := roaring.New()
	if st.FP >= 0 {
		for m, j := range st.Membership {
			if j == st.FP {
				members.Add(uint32(m))
			}
		}
	}
	st.FPMembers = members
}
