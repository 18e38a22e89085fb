// Package dataset holds per-mutation read counts across samples.
//
// A Dataset is a NUM_MUTATION x NUM_BLOCK table of (depth, alt) read counts,
// where a block is one tissue sample. Derived matrices (VAF, sequencing
// error rate) are computed on demand and never cached, so a Dataset can be
// shared freely once built.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultBaseQuality is the phred base quality assumed when none is given.
const DefaultBaseQuality = 20

var (
	// ErrEmpty is returned when a dataset has no mutations.
	ErrEmpty = errors.New("dataset: no mutations")

	// ErrNegativeCount is returned when a depth or alt count is negative or
	// alt exceeds depth.
	ErrNegativeCount = errors.New("dataset: invalid read count")
)

// ErrBlockMismatch indicates a row whose block count differs from the first row.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrBlockMismatch struct {
	Row      int
	Expected int
	Actual   int
	cause    error
}

func (e *ErrBlockMismatch) Error() string {
	return fmt.Sprintf("dataset: row %d has %d blocks, expected %d", e.Row, e.Actual, e.Expected)
}

func (e *ErrBlockMismatch) Unwrap() error { return e.cause }

// Dataset is the input of a clustering run.
type Dataset struct {
	// IDs names every mutation.
	IDs []string
	// Depth and Alt are NUM_MUTATION x NUM_BLOCK read counts.
	Depth *mat.Dense
	Alt   *mat.Dense
	// BQ is the phred base quality per mutation and block.
	BQ *mat.Dense
	// Answer is an optional ground-truth label per mutation.
	Answer []string
}

// New builds a dataset from row-major depth and alt counts.
// ids may be nil, in which case mutations are named by index.
func New(ids []string, depth, alt [][]int) (*Dataset, error) {
	if len(depth) == 0 {
		return nil, ErrEmpty
	}
	if len(alt) != len(depth) {
		return nil, fmt.Errorf("dataset: %d depth rows but %d alt rows", len(depth), len(alt))
	}

	blocks := len(depth[0])
	if blocks == 0 {
		return nil, &ErrBlockMismatch{Row: 0, Expected: 1, Actual: 0}
	}

	n := len(depth)
	d := mat.NewDense(n, blocks, nil)
	a := mat.NewDense(n, blocks, nil)
	for k := 0; k < n; k++ {
		if len(depth[k]) != blocks {
			return nil, &ErrBlockMismatch{Row: k, Expected: blocks, Actual: len(depth[k])}
		}
		if len(alt[k]) != blocks {
			return nil, &ErrBlockMismatch{Row: k, Expected: blocks, Actual: len(alt[k])}
		}
		for i := 0; i < blocks; i++ {
			if depth[k][i] < 0 || alt[k][i] < 0 || alt[k][i] > depth[k][i] {
				return nil, fmt.Errorf("%w: row %d block %d (depth %d, alt %d)", ErrNegativeCount, k, i, depth[k][i], alt[k][i])
			}
			d.Set(k, i, float64(depth[k][i]))
			a.Set(k, i, float64(alt[k][i]))
		}
	}

	if ids == nil {
		ids = make([]string, n)
		for k := range ids {
			ids[k] = fmt.Sprintf("mut%d", k)
		}
	}

	bq := mat.NewDense(n, blocks, nil)
	for k := 0; k < n; k++ {
		for i := 0; i < blocks; i++ {
			bq.Set(k, i, DefaultBaseQuality)
		}
	}

	return &Dataset{IDs: ids, Depth: d, Alt: a, BQ: bq}, nil
}

// Dims returns the number of mutations and blocks.
func (d *Dataset) Dims() (mutations, blocks int) {
	return d.Depth.Dims()
}

// Mutations returns the number of mutations.
func (d *Dataset) Mutations() int {
	n, _ := d.Depth.Dims()
	return n
}

// Blocks returns the number of samples.
func (d *Dataset) Blocks() int {
	_, b := d.Depth.Dims()
	return b
}

// VAF returns alt/depth rounded to three decimals, 0 where depth is 0.
func (d *Dataset) VAF() *mat.Dense {
	n, blocks := d.Dims()
	vaf := mat.NewDense(n, blocks, nil)
	vaf.Apply(func(k, i int, depth float64) float64 {
		if depth == 0 {
			return 0
		}
		return Round(d.Alt.At(k, i)/depth, 3)
	}, d.Depth)
	return vaf
}

// ErrorRate returns the per-read sequencing error probability 10^(-BQ/10).
func (d *Dataset) ErrorRate() *mat.Dense {
	n, blocks := d.Dims()
	rate := mat.NewDense(n, blocks, nil)
	rate.Apply(func(_, _ int, bq float64) float64 {
		return math.Pow(10, -bq/10)
	}, d.BQ)
	return rate
}

// Subset returns a dataset holding only the given rows, in order.
func (d *Dataset) Subset(rows []int) *Dataset {
	_, blocks := d.Dims()
	out := &Dataset{
		IDs:   make([]string, len(rows)),
		Depth: mat.NewDense(len(rows), blocks, nil),
		Alt:   mat.NewDense(len(rows), blocks, nil),
		BQ:    mat.NewDense(len(rows), blocks, nil),
	}
	if d.Answer != nil {
		out.Answer = make([]string, len(rows))
	}
	for r, k := range rows {
		out.IDs[r] = d.IDs[k]
		out.Depth.SetRow(r, d.Depth.RawRowView(k))
		out.Alt.SetRow(r, d.Alt.RawRowView(k))
		out.BQ.SetRow(r, d.BQ.RawRowView(k))
		if d.Answer != nil {
			out.Answer[r] = d.Answer[k]
		}
	}
	return out
}

// RandomPick returns n mutations sampled without replacement, kept in their
// original order. n <= 0 or n >= Mutations returns d unchanged.
func (d *Dataset) RandomPick(n int, seed int64) *Dataset {
	total := d.Mutations()
	if n <= 0 || n >= total {
		return d
	}

	rows := rand.New(rand.NewSource(seed)).Perm(total)[:n]
	sort.Ints(rows)
	return d.Subset(rows)
}

// Round rounds x to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
