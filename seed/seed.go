// Package seed derives initial clone fractions from a k-means clustering of
// the variant allele frequencies.
//
// Every trial of the EM search starts from a different selection of
// centroids. Even trials pick K-1 centroids and complete the mixture with a
// column that makes every block sum to one; odd trials pick K centroids.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/dataset"
	"github.com/hupe1980/emclone/internal/kmeans"
)

// ErrTooFewSeeds is returned when a trial asks for more centroids than
// survived seeding.
var ErrTooFewSeeds = errors.New("seed: fewer centroids than clones")

// maxFraction is the largest cellular fraction a centroid may carry.
const maxFraction = 1.0

// Seeds holds k-means centroids as cellular fractions, one column per
// centroid. Seeds is immutable.
type Seeds struct {
	centroids *mat.Dense
}

// New wraps a NUM_BLOCK x n centroid matrix.
func New(centroids *mat.Dense) *Seeds {
	return &Seeds{centroids: mat.DenseCopyOf(centroids)}
}

// KMeans clusters the rows of vaf into n groups and keeps every centroid
// whose doubled mean VAF stays at or below one in every block. Empty groups
// are dropped. n is capped at the number of mutations.
func KMeans(ctx context.Context, vaf *mat.Dense, n int, seed int64) (*Seeds, error) {
	rows, blocks := vaf.Dims()
	if n <= 0 {
		return nil, fmt.Errorf("seed: cluster count must be positive, got %d", n)
	}
	n = min(n, rows)

	points := make([][]float64, rows)
	for r := range points {
		points[r] = mat.Row(nil, r, vaf)
	}

	res, err := kmeans.Train(ctx, points, n, kmeans.Config{MaxIter: 100, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	sums := make([][]float64, n)
	counts := make([]int, n)
	for j := range sums {
		sums[j] = make([]float64, blocks)
	}
	for r, j := range res.Labels {
		floats.Add(sums[j], points[r])
		counts[j]++
	}

	var kept [][]float64
	for j, sum := range sums {
		if counts[j] == 0 {
			continue
		}
		col := make([]float64, blocks)
		for i, s := range sum {
			col[i] = dataset.Round(2*s/float64(counts[j]), 3)
		}
		if floats.Max(col) > maxFraction {
			continue
		}
		kept = append(kept, col)
	}

	if len(kept) == 0 {
		return &Seeds{centroids: &mat.Dense{}}, nil
	}

	centroids := mat.NewDense(blocks, len(kept), nil)
	for j, col := range kept {
		centroids.SetCol(j, col)
	}
	return &Seeds{centroids: centroids}, nil
}

// Count returns the number of usable centroids.
func (s *Seeds) Count() int {
	if s.centroids.IsEmpty() {
		return 0
	}
	_, n := s.centroids.Dims()
	return n
}

// Centroids returns a copy of the centroid matrix.
func (s *Seeds) Centroids() *mat.Dense {
	if s.centroids.IsEmpty() {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(s.centroids)
}

// Initial returns the starting mixture for trial of a k-clone search. The
// selection is deterministic in trial. Negative entries of the last column
// are clamped to zero.
func (s *Seeds) Initial(k, trial int) (*mat.Dense, error) {
	if k <= 0 {
		return nil, fmt.Errorf("seed: clone count must be positive, got %d", k)
	}

	n := s.Count()
	pick := k
	complete := trial%2 == 0 && k >= 2
	if complete {
		pick = k - 1
	}
	if pick > n {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrTooFewSeeds, pick, n)
	}

	rng := rand.New(rand.NewSource(int64(trial)))
	chosen := rng.Perm(n)[:pick]

	blocks, _ := s.centroids.Dims()
	out := mat.NewDense(blocks, k, nil)
	for c, j := range chosen {
		out.SetCol(c, mat.Col(nil, j, s.centroids))
	}

	if complete {
		for i := 0; i < blocks; i++ {
			out.Set(i, k-1, 1-floats.Sum(out.RawRowView(i)[:k-1]))
		}
	}

	for i := 0; i < blocks; i++ {
		if out.At(i, k-1) < 0 {
			out.Set(i, k-1, 0)
		}
	}

	return out, nil
}
