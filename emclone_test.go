package emclone

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/dataset"
	"github.com/hupe1980/emclone/resource"
	"github.com/hupe1980/emclone/search"
	"github.com/hupe1980/emclone/testutil"
	"github.com/hupe1980/emclone/trace"
)

func threeClones() *dataset.Dataset {
	return testutil.Clusters(200,
		testutil.Cluster{VAF: []float64{0.25}, Count: 40},
		testutil.Cluster{VAF: []float64{0.15}, Count: 40},
		testutil.Cluster{VAF: []float64{0.10}, Count: 40},
	)
}

func threeCloneOptions(extra ...Option) []Option {
	return append([]Option{
		WithKRange(2, 4),
		WithKMeansClusters(3),
		WithMinClusterSize(5),
		WithRunID("test"),
	}, extra...)
}

func TestRun(t *testing.T) {
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}

	res, err := Run(context.Background(), threeClones(), threeCloneOptions(
		WithStore(store),
		WithMetricsCollector(metrics),
	)...)
	require.NoError(t, err)

	assert.Equal(t, "test", res.RunID)
	assert.Equal(t, 120, res.Mutations)
	assert.Equal(t, 3, res.Seeds)
	assert.Equal(t, []int{2, 3}, res.Cluster.Ks(), "K=4 has too few seeds")

	require.True(t, res.Determined())
	assert.Equal(t, 3, res.K)
	require.NotNil(t, res.Best)
	assert.Equal(t, []int{40, 40, 40}, res.Best.Counts())
	assert.Equal(t, 3, res.Gap.Best())
	assert.Len(t, res.Gaps, 2)

	for _, name := range []string{
		ManifestName, GapStatisticsName, DecisionName,
		ResultsName, MembershipName, MixtureName, MembershipCountName,
	} {
		assert.Contains(t, res.Artifacts, name)
	}

	summary, err := blobstore.ReadAll(context.Background(), store, ResultsName)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "NUM_CLONE\t3\n")
	assert.Contains(t, string(summary), "NUM_CHILD\t3\n")
	assert.Contains(t, string(summary), "FPexistence\tfalse\n")

	doc, err := blobstore.ReadAll(context.Background(), store, ManifestName)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "run_id: test")
	assert.Contains(t, string(doc), "k: 3")

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.RunCount)
	assert.Zero(t, stats.RunErrors)
	assert.Equal(t, int64(2*5), stats.TrialCount)
	assert.Positive(t, stats.StepCount)
}

func TestRun_WithoutStore(t *testing.T) {
	res, err := Run(context.Background(), threeClones(), threeCloneOptions()...)
	require.NoError(t, err)
	assert.Equal(t, 3, res.K)
	assert.Empty(t, res.Artifacts)
}

func TestRun_Undetermined(t *testing.T) {
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}

	res, err := Run(context.Background(), threeClones(), threeCloneOptions(
		WithMinClusterSize(1000),
		WithStore(store),
		WithMetricsCollector(metrics),
	)...)
	require.ErrorIs(t, err, ErrUndetermined)
	require.NotNil(t, res)

	assert.Equal(t, -1, res.K)
	assert.Nil(t, res.Best)
	assert.Empty(t, res.Cluster.Accepted())
	for _, k := range res.Cluster.Ks() {
		o, _ := res.Cluster.Get(k)
		assert.NotEqual(t, search.RejectNone, o.Reason())
	}

	assert.Contains(t, res.Artifacts, ManifestName)
	assert.NotContains(t, res.Artifacts, ResultsName)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.RunErrors)
	assert.Equal(t, stats.TrialCount, stats.EarlyStops)
}

func TestRun_Visualize(t *testing.T) {
	store := blobstore.NewMemoryStore()

	res, err := Run(context.Background(), threeClones(), threeCloneOptions(
		WithStore(store),
		WithVisualize(true),
		WithResources(resource.Config{IOLimitBytesPerSec: 1 << 30}),
	)...)
	require.NoError(t, err)
	require.Contains(t, res.Artifacts, PlotName)

	plot, err := blobstore.ReadAll(context.Background(), store, PlotName)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(plot, []byte("\x89PNG")))

	steps, err := store.List(context.Background(), "trial/")
	require.NoError(t, err)
	assert.NotEmpty(t, steps)
}

func TestRun_Trace(t *testing.T) {
	store := blobstore.NewMemoryStore()

	res, err := Run(context.Background(), threeClones(), threeCloneOptions(
		WithStore(store),
		WithTrace(trace.CompressionLZ4),
	)...)
	require.NoError(t, err)
	require.NotEmpty(t, res.Traces)

	want := trace.Name(res.K, res.Best.Trial, trace.CompressionLZ4)
	require.Contains(t, res.Traces, want)

	records, err := trace.ReadAll(context.Background(), store, want)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	var found bool
	for _, r := range records {
		if r.Step == res.Best.Step {
			found = true
			assert.Equal(t, res.Best.Membership, r.Membership)
		}
	}
	assert.True(t, found, "winning step is traced")
}

func TestRun_RandomPick(t *testing.T) {
	res, err := Run(context.Background(), threeClones(), threeCloneOptions(
		WithRandomPick(90),
		WithKRange(3, 3),
	)...)
	if err != nil {
		require.ErrorIs(t, err, ErrUndetermined)
	}
	require.NotNil(t, res)
	assert.Equal(t, 90, res.Mutations)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, nil)
	assert.ErrorIs(t, err, ErrNoMutations)

	_, err = Run(ctx, threeClones(), WithKRange(4, 2))
	var rangeErr *ErrInvalidKRange
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 4, rangeErr.KMin)
	assert.ErrorIs(t, err, search.ErrInvalidConfig)

	_, err = Run(ctx, threeClones(), WithVisualize(true))
	var settingErr *ErrInvalidSetting
	require.ErrorAs(t, err, &settingErr)
	assert.Equal(t, "visualize", settingErr.Field)

	_, err = Run(ctx, threeClones(), WithTrace(trace.CompressionZSTD))
	require.ErrorAs(t, err, &settingErr)
	assert.Equal(t, "trace", settingErr.Field)

	_, err = Run(ctx, threeClones(), WithGapReferences(0))
	require.ErrorAs(t, err, &settingErr)
	assert.Equal(t, "gap_references", settingErr.Field)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	metrics := &BasicMetricsCollector{}
	_, err := Run(ctx, threeClones(), threeCloneOptions(WithMetricsCollector(metrics))...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int64(1), metrics.GetStats().RunErrors)
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(context.Background(), threeClones(), threeCloneOptions()...)
	require.NoError(t, err)
	b, err := Run(context.Background(), threeClones(), threeCloneOptions()...)
	require.NoError(t, err)

	assert.Equal(t, a.K, b.K)
	assert.Equal(t, a.Best.Membership, b.Best.Membership)
	assert.Equal(t, a.Gaps, b.Gaps)
}

// Clones A (0.6, 0.3) and B (0.4, 0.7) sum to one in both blocks; their
// parent C sits at (1, 1).
func phylogeny() *dataset.Dataset {
	return testutil.NewRNG(1).SampleClusters(300,
		testutil.Cluster{VAF: []float64{0.30, 0.15}, Count: 60},
		testutil.Cluster{VAF: []float64{0.20, 0.35}, Count: 60},
		testutil.Cluster{VAF: []float64{0.50, 0.50}, Count: 60},
	)
}

func TestRun_TwoBlocksPhylogeny(t *testing.T) {
	store := blobstore.NewMemoryStore()

	res, err := Run(context.Background(), phylogeny(),
		WithKRange(2, 4),
		WithMinClusterSize(5),
		WithStore(store),
		WithVisualize(true),
		WithResources(resource.Config{MaxWorkers: 4}),
	)
	require.NoError(t, err)
	assert.Equal(t, 180, res.Mutations)

	for _, k := range res.Cluster.Accepted() {
		o, _ := res.Cluster.Get(k)
		snap := o.Snapshot()
		fp := 0
		if snap.IncludeFP() {
			fp = 1
		}
		assert.LessOrEqual(t, k-len(snap.Makeone)-fp, search.DefaultConfig().MaxParent, "k=%d", k)
	}

	require.True(t, res.Determined())
	assert.Equal(t, 3, res.K)
	assert.Equal(t, 3, res.Gap.Best())

	snap := res.Best
	require.Len(t, snap.Makeone, 2)
	assert.Equal(t, -1, snap.FP)
	assert.False(t, snap.IncludeFP())

	_, blocks := snap.Mixture.Dims()
	require.Equal(t, 2, blocks)

	var children [][]float64
	for _, j := range snap.Makeone {
		children = append(children, mat.Col(nil, j, snap.Mixture))
	}
	if children[0][0] < children[1][0] {
		children[0], children[1] = children[1], children[0]
	}
	assert.InDeltaSlice(t, []float64{0.6, 0.3}, children[0], 0.08)
	assert.InDeltaSlice(t, []float64{0.4, 0.7}, children[1], 0.08)

	for j := 0; j < snap.K; j++ {
		if slices.Contains(snap.Makeone, j) {
			continue
		}
		assert.InDeltaSlice(t, []float64{1, 1}, mat.Col(nil, j, snap.Mixture), 0.08, "parent")
	}

	summary, err := blobstore.ReadAll(context.Background(), store, ResultsName)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "NUM_CLONE\t3\n")
	assert.Contains(t, string(summary), "NUM_CHILD\t2\n")
	assert.Contains(t, string(summary), "FPexistence\tfalse\n")
	assert.Contains(t, string(summary), "FPindex\t-1\n")
	assert.Contains(t, res.Artifacts, PlotName)
}
