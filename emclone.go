package emclone

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/dataset"
	"github.com/hupe1980/emclone/decision"
	"github.com/hupe1980/emclone/mixture"
	"github.com/hupe1980/emclone/resource"
	"github.com/hupe1980/emclone/search"
	"github.com/hupe1980/emclone/seed"
	"github.com/hupe1980/emclone/trace"
	"github.com/hupe1980/emclone/viz"
)

// Result is the outcome of Run.
type Result struct {
	RunID    string
	Settings Settings

	// Mutations is the number of mutations clustered, after random picking.
	Mutations int
	// Seeds is the number of k-means centroids kept.
	Seeds int

	// Cluster holds the best outcome of every searched clone count.
	Cluster *search.Cluster

	// Gap ranks the clone counts by the gap statistic. It decides K.
	Gap  decision.Ranking
	Gaps []decision.Gap

	MaxLikelihood decision.Ranking
	XieBeni       decision.Ranking
	Silhouette    decision.Ranking

	// K is the chosen clone count, or -1 when undetermined.
	K int
	// Best is the accepted snapshot of K, nil when undetermined.
	Best *search.Snapshot

	// Traces lists the step trace blobs written.
	Traces []string
	// Artifacts lists the result blobs written.
	Artifacts []string

	Elapsed time.Duration
}

// Determined reports whether a clone count was chosen.
func (r *Result) Determined() bool { return r != nil && r.K > 0 }

// Run clusters ds.
//
// It returns ErrNoMutations for an empty dataset and an *ErrInvalidSetting or
// *ErrInvalidKRange for settings that cannot be applied. When every clone
// count is rejected, the Result is returned together with ErrUndetermined.
func Run(ctx context.Context, ds *dataset.Dataset, optFns ...Option) (res *Result, err error) {
	start := time.Now()
	o := applyOptions(optFns)

	defer func() {
		o.metricsCollector.RecordRun(time.Since(start), err)
	}()

	if ds == nil || ds.Mutations() == 0 {
		return nil, ErrNoMutations
	}

	if err := o.settings.Validate(); err != nil {
		return nil, err
	}
	cfg, err := o.settings.SearchConfig()
	if err != nil {
		return nil, err
	}
	compression, err := trace.ParseCompression(o.settings.Trace)
	if err != nil {
		return nil, &ErrInvalidSetting{Field: "trace", Value: o.settings.Trace, cause: err}
	}
	if o.store == nil {
		if cfg.Visualize {
			return nil, &ErrInvalidSetting{Field: "visualize", Value: true, cause: errors.New("no store")}
		}
		if compression != trace.CompressionNone {
			return nil, &ErrInvalidSetting{Field: "trace", Value: o.settings.Trace, cause: errors.New("no store")}
		}
	}

	runID := o.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	logger := o.logger.WithRunID(runID)

	ds = ds.RandomPick(o.settings.RandomPick, o.settings.RandomSeed)
	vaf := ds.VAF()

	rc := resource.NewController(o.settings.Resources())
	store := o.store
	if store != nil && o.settings.IOLimitBytesPerSec > 0 {
		store = blobstore.NewThrottled(store, rc)
	}

	seeds, err := seed.KMeans(ctx, vaf, o.settings.KMeansClusters, o.settings.RandomSeed)
	if err != nil {
		return nil, err
	}
	logger.LogSeeds(ctx, o.settings.KMeansClusters, seeds.Count())

	solver := mixture.NewSolver(ds, mixture.Config{
		MaxParent:      cfg.MaxParent,
		MinClusterSize: cfg.MinClusterSize,
		Strictness:     cfg.Strictness,
	}, logger.Logger)

	dopts := []search.Option{
		search.WithLogger(logger.Logger),
		search.WithMetrics(o.metricsCollector),
	}
	if o.oracle != nil {
		dopts = append(dopts, search.WithOracle(o.oracle))
	}
	if cfg.Visualize {
		dopts = append(dopts,
			search.WithObserver(viz.NewRenderer(store, vaf)),
			search.WithArtifacts(blobstore.Copier{Store: store}),
		)
	}
	var tw *trace.Writer
	if compression != trace.CompressionNone {
		tw = trace.NewWriter(store, trace.WithCompression(compression), trace.WithCodec(o.codec))
		dopts = append(dopts, search.WithObserver(tw))
	}

	driver, err := search.NewDriver(cfg, solver, dopts...)
	if err != nil {
		return nil, err
	}

	cluster, err := driver.Run(ctx, seeds)
	if tw != nil {
		if cerr := tw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("emclone: close trace: %w", cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	logger.LogSweep(ctx, cluster)

	gapRanking, gaps, err := decision.GapStatistic(ctx, vaf, cluster, decision.GapConfig{
		References: o.settings.GapReferences,
		Controller: rc,
		Logger:     logger.Logger,
	})
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:         runID,
		Settings:      o.settings,
		Mutations:     ds.Mutations(),
		Seeds:         seeds.Count(),
		Cluster:       cluster,
		Gap:           gapRanking,
		Gaps:          gaps,
		MaxLikelihood: decision.MaxLikelihood(cluster),
		XieBeni:       decision.XieBeni(vaf, cluster),
		Silhouette:    decision.Silhouette(vaf, cluster),
		K:             chooseK(gapRanking),
	}
	if tw != nil {
		res.Traces = tw.Written()
	}
	for _, r := range []decision.Ranking{res.Gap, res.MaxLikelihood, res.XieBeni, res.Silhouette} {
		logger.LogDecision(ctx, r)
	}
	if res.K > 0 {
		out, _ := cluster.Get(res.K)
		res.Best = out.Snapshot()
	}
	res.Elapsed = time.Since(start)

	if store != nil {
		if err := writeResults(ctx, store, res, logger); err != nil {
			return res, err
		}
	}

	if !res.Determined() {
		logger.WarnContext(ctx, "can't determine the clusters", "searched", cluster.Ks())
		return res, ErrUndetermined
	}
	return res, nil
}

// chooseK returns the top gap candidate, or -1 when its gap is -Inf.
func chooseK(r decision.Ranking) int {
	if len(r.Candidates) == 0 || math.IsInf(r.Candidates[0].Score, -1) {
		return -1
	}
	return r.Candidates[0].K
}
