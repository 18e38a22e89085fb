package decision

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/search"
)

// XieBeni ranks clone counts by the Xie-Beni index, lowest first. The
// index weighs posterior-squared distances to each clone against the
// closest pair of clones; FP clones and members are excluded. Single-clone
// solutions, coincident clones and rejected clone counts score +Inf.
func XieBeni(vaf *mat.Dense, cluster *search.Cluster) Ranking {
	r := Ranking{Method: MethodXieBeni}
	for _, k := range cluster.Ks() {
		o, _ := cluster.Get(k)
		c := Candidate{K: k, Score: math.Inf(1)}
		if o.OK() {
			c.Score = xieBeni(vaf, o.Snapshot())
			c.Children = o.Snapshot().Children()
		}
		r.Candidates = append(r.Candidates, c)
	}
	sortAscending(r.Candidates)
	return r
}

func xieBeni(vaf *mat.Dense, snap *search.Snapshot) float64 {
	if snap.K == 1 || snap.Posterior == nil {
		return math.Inf(1)
	}
	n, blocks := vaf.Dims()
	cols := make([][]float64, snap.K)
	for j := range cols {
		cols[j] = mat.Col(nil, j, snap.Mixture)
	}

	minSep := math.Inf(1)
	for j1 := 0; j1 < snap.K; j1++ {
		for j2 := j1 + 1; j2 < snap.K; j2++ {
			if j1 == snap.FP || j2 == snap.FP {
				continue
			}
			d := floats.Distance(cols[j1], cols[j2], 2)
			minSep = math.Min(minSep, d*d)
		}
	}
	if minSep == 0 || math.IsInf(minSep, 1) {
		return math.Inf(1)
	}

	doubled := make([]float64, blocks)
	kept := 0
	var v float64
	for m := 0; m < n; m++ {
		if snap.FPMembers != nil && snap.FPMembers.Contains(uint32(m)) {
			continue
		}
		kept++
		floats.ScaleTo(doubled, 2, vaf.RawRowView(m))
		for j := 0; j < snap.K; j++ {
			if j == snap.FP {
				continue
			}
			p := snap.Posterior.At(m, j)
			d := floats.Distance(cols[j], doubled, 2)
			v += p * p * d * d
		}
	}
	if kept == 0 {
		return math.Inf(1)
	}
	return v / (minSep * float64(kept))
}

// Silhouette ranks clone counts by the mean silhouette width of the non-FP
// mutations, highest first. Rejected clone counts and solutions with a
// single occupied clone score 0.
func Silhouette(vaf *mat.Dense, cluster *search.Cluster) Ranking {
	r := Ranking{Method: MethodSilhouette}
	for _, k := range cluster.Ks() {
		o, _ := cluster.Get(k)
		c := Candidate{K: k}
		if o.OK() {
			c.Score = silhouette(vaf, o.Snapshot())
			c.Children = o.Snapshot().Children()
		}
		r.Candidates = append(r.Candidates, c)
	}
	sortDescending(r.Candidates)
	return r
}

func silhouette(vaf *mat.Dense, snap *search.Snapshot) float64 {
	n, _ := vaf.Dims()

	var idx []int
	for m := 0; m < n; m++ {
		if snap.FPMembers == nil || !snap.FPMembers.Contains(uint32(m)) {
			idx = append(idx, m)
		}
	}

	sizes := make(map[int]int)
	for _, m := range idx {
		sizes[snap.Membership[m]]++
	}
	if len(sizes) < 2 {
		return 0
	}

	var total float64
	sums := make(map[int]float64, len(sizes))
	for _, a := range idx {
		clear(sums)
		for _, b := range idx {
			if a == b {
				continue
			}
			sums[snap.Membership[b]] += floats.Distance(vaf.RawRowView(a), vaf.RawRowView(b), 2)
		}

		own := snap.Membership[a]
		if sizes[own] == 1 {
			continue
		}
		intra := sums[own] / float64(sizes[own]-1)
		inter := math.Inf(1)
		for label, size := range sizes {
			if label != own {
				inter = math.Min(inter, sums[label]/float64(size))
			}
		}
		if d := math.Max(intra, inter); d > 0 {
			total += (inter - intra) / d
		}
	}
	return total / float64(len(idx))
}
