package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/emclone/dataset"
)

// Cluster describes one synthetic clone: its VAF per block and the number
// of mutations drawn from it.
type Cluster struct {
	VAF   []float64
	Count int
	// Answer labels the generated mutations. Defaults to "c<index>".
	Answer string
}

// jitter perturbs alt counts in the deterministic generator.
var jitter = []int{0, 1, -1, 2, -2}

// Clusters builds a dataset with constant depth where every alt count is
// round(VAF*depth) plus a small repeating offset. The output is fully
// deterministic.
func Clusters(depth int, clusters ...Cluster) *dataset.Dataset {
	return build(depth, clusters, func(m int, mean float64) int {
		return int(math.Round(mean)) + jitter[m%len(jitter)]
	})
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Binomial draws from Binomial(n, p) by counting successes.
func (r *RNG) Binomial(n int, p float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.binomialLocked(n, p)
}

func (r *RNG) binomialLocked(n int, p float64) int {
	x := 0
	for range n {
		if r.rand.Float64() < p {
			x++
		}
	}
	return x
}

// SampleClusters builds a dataset with constant depth where every alt
// count is drawn from Binomial(depth, VAF).
func (r *RNG) SampleClusters(depth int, clusters ...Cluster) *dataset.Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()

	return build(depth, clusters, func(_ int, mean float64) int {
		return r.binomialLocked(depth, mean/float64(depth))
	})
}

func build(depth int, clusters []Cluster, altFn func(m int, mean float64) int) *dataset.Dataset {
	var (
		ids     []string
		depths  [][]int
		alts    [][]int
		answers []string
	)

	m := 0
	for c, cl := range clusters {
		label := cl.Answer
		if label == "" {
			label = fmt.Sprintf("c%d", c)
		}
		for range cl.Count {
			d := make([]int, len(cl.VAF))
			a := make([]int, len(cl.VAF))
			for i, v := range cl.VAF {
				d[i] = depth
				a[i] = min(max(altFn(m, v*float64(depth)), 0), depth)
			}
			ids = append(ids, fmt.Sprintf("mut%d", m))
			depths = append(depths, d)
			alts = append(alts, a)
			answers = append(answers, label)
			m++
		}
	}

	ds, err := dataset.New(ids, depths, alts)
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
	ds.Answer = answers
	return ds
}
