// Package decision ranks the clone counts of a finished sweep.
//
// Four rankers are provided. GapStatistic compares the within-clone
// dispersion of each solution with that of perturbed reference datasets.
// MaxLikelihood orders solutions by likelihood, keeping one per child
// count. XieBeni and Silhouette score cluster compactness and separation.
//
// All rankers take the raw VAF matrix (mutations x blocks); clone fractions
// are compared against 2 x VAF.
package decision

import (
	"cmp"
	"math"
	"slices"

	"github.com/hupe1980/emclone/dataset"
	"github.com/hupe1980/emclone/search"
)

// Method names a ranker.
type Method string

const (
	MethodGap           Method = "gap"
	MethodMaxLikelihood Method = "max_likelihood"
	MethodXieBeni       Method = "xie_beni"
	MethodSilhouette    Method = "silhouette"
)

// Candidate is one ranked clone count.
type Candidate struct {
	K        int
	Score    float64
	Children int
}

// Ranking orders candidates best first.
type Ranking struct {
	Method     Method
	Candidates []Candidate
}

// Ks returns the ranked clone counts.
func (r Ranking) Ks() []int {
	ks := make([]int, len(r.Candidates))
	for i, c := range r.Candidates {
		ks[i] = c.K
	}
	return ks
}

// Best returns the top clone count, or -1 for an empty ranking.
func (r Ranking) Best() int {
	if len(r.Candidates) == 0 {
		return -1
	}
	return r.Candidates[0].K
}

// MaxLikelihood ranks accepted solutions by likelihood. Among solutions with
// the same number of children only the smallest K is kept, at the position
// of the best-scoring one. Rejected clone counts follow in search order.
func MaxLikelihood(cluster *search.Cluster) Ranking {
	var accepted []Candidate
	var rejected []Candidate
	for _, k := range cluster.Ks() {
		o, _ := cluster.Get(k)
		if !o.OK() {
			rejected = append(rejected, Candidate{K: k, Score: math.Inf(-1)})
			continue
		}
		accepted = append(accepted, Candidate{K: k, Score: o.Likelihood(), Children: o.Snapshot().Children()})
	}

	slices.SortStableFunc(accepted, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.K, b.K)
	})

	smallest := make(map[int]Candidate)
	for _, c := range accepted {
		if s, ok := smallest[c.Children]; !ok || c.K < s.K {
			smallest[c.Children] = c
		}
	}

	r := Ranking{Method: MethodMaxLikelihood}
	seen := make(map[int]bool)
	for _, c := range accepted {
		if seen[c.Children] {
			continue
		}
		seen[c.Children] = true
		r.Candidates = append(r.Candidates, smallest[c.Children])
	}
	r.Candidates = append(r.Candidates, rejected...)
	return r
}

// sortDescending orders by score, then by smaller K.
func sortDescending(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.K, b.K)
	})
}

func sortAscending(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.K, b.K)
	})
}

func round3(x float64) float64 { return dataset.Round(x, 3) }
