package kmeans

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ErrTooFewPoints is returned when there are fewer points than clusters.
var ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")

// Config controls a training run.
type Config struct {
	// MaxIter bounds the Lloyd iterations of a single run. Default: 100.
	MaxIter int

	// NInit is the number of k-means++ restarts; the run with the lowest
	// inertia wins. Default: 10.
	NInit int

	// Seed seeds the restart generator.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.MaxIter <= 0 {
		c.MaxIter = 100
	}
	if c.NInit <= 0 {
		c.NInit = 10
	}
	return c
}

// Result is a fitted clustering.
type Result struct {
	// Centroids holds one row per cluster.
	Centroids [][]float64
	// Labels holds the cluster of every input point.
	Labels []int
	// Inertia is the sum of squared distances to the assigned centroid.
	Inertia float64
}

// Train clusters points into k groups using k-means++ seeding and Lloyd's
// algorithm, keeping the best of cfg.NInit restarts.
func Train(ctx context.Context, points [][]float64, k int, cfg Config) (*Result, error) {
	if k <= 0 {
		return nil, errors.New("kmeans: k must be positive")
	}
	if len(points) < k {
		return nil, ErrTooFewPoints
	}

	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	var best *Result
	for run := 0; run < cfg.NInit; run++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := lloyd(ctx, points, plusPlus(points, k, rng), cfg.MaxIter, rng)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}

	return best, nil
}

// TrainFrom runs Lloyd's algorithm from the given initial centroids.
// The init rows are copied and never modified.
func TrainFrom(ctx context.Context, points [][]float64, init [][]float64, maxIter int) (*Result, error) {
	if len(init) == 0 {
		return nil, errors.New("kmeans: no initial centroids")
	}
	if len(points) < len(init) {
		return nil, ErrTooFewPoints
	}
	if maxIter <= 0 {
		maxIter = 100
	}

	centroids := make([][]float64, len(init))
	for j, c := range init {
		centroids[j] = append([]float64(nil), c...)
	}

	// Empty clusters are refilled deterministically from a fixed source.
	return lloyd(ctx, points, centroids, maxIter, rand.New(rand.NewSource(0)))
}

// plusPlus picks k initial centroids with the k-means++ D² weighting.
func plusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))

	dist := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			dist[i] = squaredDistance(p, centroids[Assign(p, centroids)])
			total += dist[i]
		}

		next := rng.Intn(n)
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}

	return centroids
}

func lloyd(ctx context.Context, points [][]float64, centroids [][]float64, maxIter int, rng *rand.Rand) (*Result, error) {
	n := len(points)
	k := len(centroids)
	dim := len(points[0])

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	counts := make([]int, k)
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false

		// Assignment step
		for i, p := range points {
			best := Assign(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update step
		for j := range sums {
			counts[j] = 0
			for d := range sums[j] {
				sums[j][d] = 0
			}
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		for j := range centroids {
			if counts[j] > 0 {
				floats.ScaleTo(centroids[j], 1/float64(counts[j]), sums[j])
			} else {
				copy(centroids[j], points[rng.Intn(n)])
			}
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}

	return &Result{Centroids: centroids, Labels: labels, Inertia: inertia}, nil
}

// Assign returns the index of the centroid closest to vec.
func Assign(vec []float64, centroids [][]float64) int {
	best := -1
	minDist := math.Inf(1)
	for j, c := range centroids {
		if d := squaredDistance(vec, c); d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
