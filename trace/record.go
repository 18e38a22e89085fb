package trace

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/codec"
	"github.com/hupe1980/emclone/search"
)

// Record is the serialized form of one accepted step.
type Record struct {
	K             int         `json:"k"`
	Trial         int         `json:"trial"`
	Step          int         `json:"step"`
	Likelihood    codec.Float `json:"likelihood"`
	Mixture       [][]float64 `json:"mixture"`
	Membership    []int       `json:"membership"`
	Makeone       []int       `json:"makeone"`
	FP            int         `json:"fp"`
	FPMembers     []uint32    `json:"fp_members,omitempty"`
	FPInvoluntary bool        `json:"fp_involuntary,omitempty"`
}

// NewRecord converts s. The posterior matrix is not recorded.
func NewRecord(s *search.Snapshot) Record {
	r := Record{
		K:             s.K,
		Trial:         s.Trial,
		Step:          s.Step,
		Likelihood:    codec.Float(s.Likelihood),
		Membership:    append([]int(nil), s.Membership...),
		Makeone:       append([]int{}, s.Makeone...),
		FP:            s.FP,
		FPInvoluntary: s.FPInvoluntary,
	}
	if s.Mixture != nil {
		rows, _ := s.Mixture.Dims()
		r.Mixture = make([][]float64, rows)
		for i := range rows {
			r.Mixture[i] = mat.Row(nil, i, s.Mixture)
		}
	}
	if s.FPMembers != nil && !s.FPMembers.IsEmpty() {
		r.FPMembers = s.FPMembers.ToArray()
	}
	return r
}

// Snapshot rebuilds the step. Posterior is nil.
func (r Record) Snapshot() (*search.Snapshot, error) {
	if len(r.Mixture) == 0 {
		return nil, fmt.Errorf("trace: step %d of K=%d has no mixture", r.Step, r.K)
	}
	cols := len(r.Mixture[0])
	data := make([]float64, 0, len(r.Mixture)*cols)
	for i, row := range r.Mixture {
		if len(row) != cols {
			return nil, fmt.Errorf("trace: ragged mixture row %d", i)
		}
		data = append(data, row...)
	}
	return &search.Snapshot{
		K:             r.K,
		Trial:         r.Trial,
		Step:          r.Step,
		Mixture:       mat.NewDense(len(r.Mixture), cols, data),
		Membership:    r.Membership,
		Likelihood:    float64(r.Likelihood),
		Makeone:       r.Makeone,
		FP:            r.FP,
		FPMembers:     roaring.BitmapOf(r.FPMembers...),
		FPInvoluntary: r.FPInvoluntary,
	}, nil
}
