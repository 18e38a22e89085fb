package decision

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/emclone/internal/kmeans"
	"github.com/hupe1980/emclone/resource"
	"github.com/hupe1980/emclone/search"
)

// GapConfig configures GapStatistic.
type GapConfig struct {
	// References is the number of reference datasets B. Default: 20.
	References int
	// Iterations bounds the k-means refinement of each reference. Default: 3.
	Iterations int
	// Controller bounds concurrent references. Nil runs one at a time.
	Controller *resource.Controller
	// Logger receives per-K results. Nil discards.
	Logger *slog.Logger
}

func (c GapConfig) withDefaults() GapConfig {
	if c.References <= 0 {
		c.References = 20
	}
	if c.Iterations <= 0 {
		c.Iterations = 3
	}
	if c.Controller == nil {
		c.Controller = resource.NewController(resource.Config{MaxWorkers: 1})
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Gap holds the statistic of one clone count. Rejected clone counts carry
// Gap = -Inf and zero for the other fields.
type Gap struct {
	K       int
	Wk      float64
	MeanWkb float64
	Gap     float64
	Sd      float64
	S       float64
}

// referenceMultipliers are the percent scales applied to every VAF; each is
// jittered by ±10%.
var referenceMultipliers = [...]int{80, 100, 100, 120}

// maxReferenceFraction caps a perturbed cellular fraction.
const maxReferenceFraction = 3.0

// minDispersion floors a within-cluster dispersion before its log is taken,
// so a perfect fit scores a finite gap.
const minDispersion = 1e-6

// GapStatistic ranks clone counts by Gap = mean(log10 Wkb) - log10 Wk.
// It returns the ranking and the per-K statistics in search order.
func GapStatistic(ctx context.Context, vaf *mat.Dense, cluster *search.Cluster, cfg GapConfig) (Ranking, []Gap, error) {
	cfg = cfg.withDefaults()

	gaps := make([]Gap, 0, len(cluster.Ks()))
	for _, k := range cluster.Ks() {
		o, _ := cluster.Get(k)
		if !o.OK() {
			gaps = append(gaps, Gap{K: k, Gap: math.Inf(-1)})
			continue
		}

		g, err := gapOf(ctx, vaf, o.Snapshot(), cfg)
		if err != nil {
			return Ranking{}, nil, fmt.Errorf("decision: gap statistic for k=%d: %w", k, err)
		}
		cfg.Logger.Info("gap statistic",
			"k", k,
			"wk", g.Wk,
			"mean_wkb", g.MeanWkb,
			"sd", g.Sd,
			"s", g.S,
			"gap", g.Gap,
		)
		gaps = append(gaps, g)
	}

	r := Ranking{Method: MethodGap}
	for _, g := range gaps {
		c := Candidate{K: g.K, Score: g.Gap}
		if o, _ := cluster.Get(g.K); o.OK() {
			c.Children = o.Snapshot().Children()
		}
		r.Candidates = append(r.Candidates, c)
	}
	sortDescending(r.Candidates)

	return r, gaps, nil
}

func gapOf(ctx context.Context, vaf *mat.Dense, snap *search.Snapshot, cfg GapConfig) (Gap, error) {
	n, blocks := vaf.Dims()

	var (
		wk   float64
		rows [][]float64
	)
	for m := 0; m < n; m++ {
		row := mat.Row(nil, m, vaf)
		fp := snap.FPMembers != nil && snap.FPMembers.Contains(uint32(m))
		if !fp {
			doubled := make([]float64, blocks)
			floats.ScaleTo(doubled, 2, row)
			d := floats.Distance(doubled, mat.Col(nil, snap.Membership[m], snap.Mixture), 2)
			wk += d * d
		}
		if blocks == 1 || !fp {
			rows = append(rows, row)
		}
	}
	wk = logDispersion(wk)

	init := initialCentroids(snap, blocks)
	bytes := int64(len(referenceMultipliers) * len(rows) * blocks * 8)

	wkb := make([]float64, cfg.References)
	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < cfg.References; b++ {
		if err := cfg.Controller.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer cfg.Controller.ReleaseWorker()

			if err := cfg.Controller.AcquireMemory(gctx, bytes); err != nil {
				return err
			}
			defer cfg.Controller.ReleaseMemory(bytes)

			ref := referenceSet(rows, int64(b))
			res, err := kmeans.TrainFrom(gctx, ref, init, cfg.Iterations)
			if err != nil {
				return err
			}
			wkb[b] = logDispersion(res.Inertia)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Gap{}, err
	}
	if err := ctx.Err(); err != nil {
		return Gap{}, err
	}

	mean, sd := stat.PopMeanStdDev(wkb, nil)
	sd = round3(sd)

	return Gap{
		K:       snap.K,
		Wk:      wk,
		MeanWkb: round3(mean),
		Gap:     round3(mean - wk),
		Sd:      sd,
		S:       round3(sd * math.Sqrt(1+float64(cfg.References))),
	}, nil
}

func logDispersion(w float64) float64 {
	return round3(math.Log10(math.Max(w, minDispersion)))
}

// initialCentroids returns the clone fractions as k-means rows. With more
// than one block the FP clone is left out.
func initialCentroids(snap *search.Snapshot, blocks int) [][]float64 {
	var init [][]float64
	for j := 0; j < snap.K; j++ {
		if blocks >= 2 && j == snap.FP {
			continue
		}
		init = append(init, mat.Col(nil, j, snap.Mixture))
	}
	return init
}

// referenceSet scales every row by each jittered multiplier and samples
// len(rows) of the results without replacement. Values are cellular
// fractions (2 x VAF).
func referenceSet(rows [][]float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	n := len(rows)
	if n == 0 {
		return nil
	}
	blocks := len(rows[0])

	all := make([][]float64, n*len(referenceMultipliers))
	for i := range all {
		all[i] = make([]float64, blocks)
	}

	for k, row := range rows {
		for i, v := range row {
			for r, mult := range referenceMultipliers {
				lo, hi := int(float64(mult)*0.9), int(float64(mult)*1.1)
				x := v * 2 * float64(lo+rng.Intn(hi-lo+1)) / 100
				for tries := 0; x > maxReferenceFraction && tries < 100; tries++ {
					x = v * 2 * float64(lo+rng.Intn(hi-lo+1)) / 100
				}
				all[n*r+k][i] = math.Min(x, maxReferenceFraction)
			}
		}
	}

	out := make([][]float64, n)
	for i, idx := range rng.Perm(len(all))[:n] {
		out[i] = all[idx]
	}
	return out
}
