package mixture

import (
	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"
)

// State is the working state threaded through E and M steps.
//
// Solver methods never modify their input; they return a fresh State.
type State struct {
	// Mixture is NUM_BLOCK x K; column j is clone j's cellular fraction.
	Mixture *mat.Dense
	// Membership assigns every mutation to a clone in [0, K).
	Membership []int
	// LogP is NUM_MUTATION x K per-clone log-likelihoods.
	LogP *mat.Dense
	// Posterior is LogP normalized per mutation.
	Posterior *mat.Dense
	// Likelihood is the total log-likelihood of Membership under Mixture.
	Likelihood float64

	// Makeone lists the clones whose fractions sum to about one per block.
	Makeone []int
	// FP is the false-positive clone, -1 if none.
	FP int
	// FPMembers holds the mutations assigned to FP.
	FPMembers *roaring.Bitmap
	// FPInvoluntary reports that FP was designated by makeone selection.
	FPInvoluntary bool
}

// NewState returns the state of a trial before its first E step.
func NewState(initial *mat.Dense) *State {
	return &State{
		Mixture:   mat.DenseCopyOf(initial),
		FP:        -1,
		FPMembers: roaring.New(),
	}
}

// K returns the number of clones.
func (s *State) K() int {
	_, k := s.Mixture.Dims()
	return k
}

// IncludeFP reports whether a false-positive clone is designated.
func (s *State) IncludeFP() bool { return s.FP >= 0 }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		Mixture:       mat.DenseCopyOf(s.Mixture),
		Membership:    append([]int(nil), s.Membership...),
		Likelihood:    s.Likelihood,
		Makeone:       append([]int(nil), s.Makeone...),
		FP:            s.FP,
		FPMembers:     s.FPMembers.Clone(),
		FPInvoluntary: s.FPInvoluntary,
	}
	if s.LogP != nil {
		out.LogP = mat.DenseCopyOf(s.LogP)
	}
	if s.Posterior != nil {
		out.Posterior = mat.DenseCopyOf(s.Posterior)
	}
	return out
}

// Counts returns the number of mutations per clone.
func (s *State) Counts() []int {
	counts := make([]int, s.K())
	for _, j := range s.Membership {
		if j >= 0 && j < len(counts) {
			counts[j]++
		}
	}
	return counts
}
