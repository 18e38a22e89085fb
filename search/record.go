package search

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/mixture"
)

// Snapshot is the frozen state of one EM step.
//
// Snapshots are immutable once created; callers must not modify the
// matrices or slices they expose.
type Snapshot struct {
	K     int
	Trial int
	Step  int

	Mixture    *mat.Dense
	Membership []int
	Posterior  *mat.Dense
	Likelihood float64

	Makeone       []int
	FP            int
	FPMembers     *roaring.Bitmap
	FPInvoluntary bool
}

func newSnapshot(k, trial, step int, st *mixture.State) *Snapshot {
	c := st.Clone()
	return &Snapshot{
		K:             k,
		Trial:         trial,
		Step:          step,
		Mixture:       c.Mixture,
		Membership:    c.Membership,
		Posterior:     c.Posterior,
		Likelihood:    c.Likelihood,
		Makeone:       c.Makeone,
		FP:            c.FP,
		FPMembers:     c.FPMembers,
		FPInvoluntary: c.FPInvoluntary,
	}
}

// IncludeFP reports whether the step carries a false-positive clone.
func (s *Snapshot) IncludeFP() bool { return s.FP >= 0 }

// Children returns the number of makeone clones.
func (s *Snapshot) Children() int { return len(s.Makeone) }

// Counts returns the number of mutations per clone.
func (s *Snapshot) Counts() []int {
	counts := make([]int, s.K)
	for _, j := range s.Membership {
		counts[j]++
	}
	return counts
}

// StepRecord is the append-only history of one trial.
type StepRecord struct {
	steps []*Snapshot
}

// Append adds s to the record.
func (r *StepRecord) Append(s *Snapshot) { r.steps = append(r.steps, s) }

// Len returns the number of recorded steps.
func (r *StepRecord) Len() int { return len(r.steps) }

// At returns the i-th recorded step.
func (r *StepRecord) At(i int) *Snapshot { return r.steps[i] }

// Best returns the index of the highest-likelihood step in [lo, hi], or -1
// if the range is empty. hi == -1 means the last step. Ties keep the
// earliest step.
func (r *StepRecord) Best(lo, hi int) int {
	return r.best(lo, hi, func(*Snapshot) bool { return true })
}

// BestVoluntary is like Best but skips steps whose FP clone was designated
// involuntarily.
func (r *StepRecord) BestVoluntary(lo, hi int) int {
	return r.best(lo, hi, func(s *Snapshot) bool { return !s.FPInvoluntary })
}

func (r *StepRecord) best(lo, hi int, keep func(*Snapshot) bool) int {
	if hi < 0 || hi >= len(r.steps) {
		hi = len(r.steps) - 1
	}
	lo = max(lo, 0)

	idx := -1
	for i := lo; i <= hi; i++ {
		s := r.steps[i]
		if !keep(s) {
			continue
		}
		if idx < 0 || s.Likelihood > r.steps[idx].Likelihood {
			idx = i
		}
	}
	return idx
}

// RejectReason tells why a trial or K produced no usable snapshot.
type RejectReason int

const (
	// RejectNone marks an accepted outcome.
	RejectNone RejectReason = iota
	// RejectParentCount: too many clones outside the makeone set.
	RejectParentCount
	// RejectShrinkingClone: a clone vanished or fell below MinClusterSize.
	RejectShrinkingClone
	// RejectMakeoneSum: the makeone fractions did not sum to one.
	RejectMakeoneSum
	// RejectNoMakeone: no clone set could sum to one.
	RejectNoMakeone
	// RejectNoSteps: the trial never recorded a step.
	RejectNoSteps
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectParentCount:
		return "parent_count"
	case RejectShrinkingClone:
		return "shrinking_clone"
	case RejectMakeoneSum:
		return "makeone_sum"
	case RejectNoMakeone:
		return "no_makeone"
	case RejectNoSteps:
		return "no_steps"
	default:
		return fmt.Sprintf("RejectReason(%d)", int(r))
	}
}

// Outcome is either an accepted Snapshot or a RejectReason.
type Outcome struct {
	snap   *Snapshot
	reason RejectReason
}

// Accept wraps an accepted snapshot.
func Accept(s *Snapshot) Outcome { return Outcome{snap: s} }

// Reject builds a rejected outcome.
func Reject(reason RejectReason) Outcome { return Outcome{reason: reason} }

// OK reports whether the outcome holds a snapshot.
func (o Outcome) OK() bool { return o.snap != nil }

// Snapshot returns the accepted snapshot, nil when rejected.
func (o Outcome) Snapshot() *Snapshot { return o.snap }

// Reason returns why the outcome was rejected, RejectNone when accepted.
func (o Outcome) Reason() RejectReason { return o.reason }

// Likelihood returns the snapshot likelihood, -Inf when rejected.
func (o Outcome) Likelihood() float64 {
	if o.snap == nil {
		return math.Inf(-1)
	}
	return o.snap.Likelihood
}

// TrialRecord holds one outcome slot per trial of a single K.
type TrialRecord struct {
	k     int
	slots []Outcome
}

// NewTrialRecord returns n slots, all rejected with RejectNoSteps.
func NewTrialRecord(k, n int) *TrialRecord {
	slots := make([]Outcome, n)
	for i := range slots {
		slots[i] = Reject(RejectNoSteps)
	}
	return &TrialRecord{k: k, slots: slots}
}

// K returns the clone count of the record.
func (r *TrialRecord) K() int { return r.k }

// Len returns the number of slots.
func (r *TrialRecord) Len() int { return len(r.slots) }

// At returns the outcome of trial i.
func (r *TrialRecord) At(i int) Outcome { return r.slots[i] }

// Accept stores step idx of rec in slot trial if its likelihood is strictly
// greater than the slot's. A slot never regresses. It reports whether the
// slot changed.
func (r *TrialRecord) Accept(trial int, rec *StepRecord, idx int) bool {
	if idx < 0 || idx >= rec.Len() {
		return false
	}
	s := rec.At(idx)
	if s.Likelihood > r.slots[trial].Likelihood() {
		r.slots[trial] = Accept(s)
		return true
	}
	return false
}

// Reject records reason for a slot that holds no snapshot yet.
func (r *TrialRecord) Reject(trial int, reason RejectReason) {
	if !r.slots[trial].OK() {
		r.slots[trial] = Reject(reason)
	}
}

// Best returns the trial with the highest likelihood in [lo, hi], or -1 if
// none was accepted. hi == -1 means the last trial.
func (r *TrialRecord) Best(lo, hi int) int {
	if hi < 0 || hi >= len(r.slots) {
		hi = len(r.slots) - 1
	}
	lo = max(lo, 0)

	idx := -1
	for i := lo; i <= hi; i++ {
		if !r.slots[i].OK() {
			continue
		}
		if idx < 0 || r.slots[i].Likelihood() > r.slots[idx].Likelihood() {
			idx = i
		}
	}
	return idx
}

// Cluster maps every searched K to its best outcome.
type Cluster struct {
	order    []int
	outcomes map[int]Outcome
}

// NewCluster returns an empty Cluster.
func NewCluster() *Cluster {
	return &Cluster{outcomes: make(map[int]Outcome)}
}

// Set stores the outcome of k.
func (c *Cluster) Set(k int, o Outcome) {
	if _, ok := c.outcomes[k]; !ok {
		c.order = append(c.order, k)
	}
	c.outcomes[k] = o
}

// Get returns the outcome of k.
func (c *Cluster) Get(k int) (Outcome, bool) {
	o, ok := c.outcomes[k]
	return o, ok
}

// Ks returns the searched clone counts in search order.
func (c *Cluster) Ks() []int { return append([]int(nil), c.order...) }

// Accepted returns the clone counts with an accepted outcome.
func (c *Cluster) Accepted() []int {
	var out []int
	for _, k := range c.order {
		if c.outcomes[k].OK() {
			out = append(out, k)
		}
	}
	return out
}

// Best returns the accepted K with the highest likelihood, or -1.
func (c *Cluster) Best() int {
	best := -1
	for _, k := range c.order {
		o := c.outcomes[k]
		if !o.OK() {
			continue
		}
		if best < 0 || o.Likelihood() > c.outcomes[best].Likelihood() {
			best = k
		}
	}
	return best
}
