package emclone

import (
	"log/slog"

	"github.com/hupe1980/emclone/blobstore"
	"github.com/hupe1980/emclone/codec"
	"github.com/hupe1980/emclone/mixture"
	"github.com/hupe1980/emclone/resource"
	"github.com/hupe1980/emclone/search"
	"github.com/hupe1980/emclone/trace"
)

const (
	// DefaultKMeansClusters is the number of k-means seeds.
	DefaultKMeansClusters = 8

	// DefaultGapReferences is the number of uniform reference sets drawn per
	// clone count by the gap statistic.
	DefaultGapReferences = 20
)

type options struct {
	settings         Settings
	store            blobstore.Store
	codec            codec.Codec
	oracle           search.StopOracle
	metricsCollector MetricsCollector
	logger           *Logger
	runID            string
}

// Option configures Run.
//
// Options are applied in order, so WithSettings resets every
// settings-backed option given before it.
type Option func(*options)

// WithSettings replaces all settings-backed options at once.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithKRange sets the inclusive range of clone counts to search.
func WithKRange(kmin, kmax int) Option {
	return func(o *options) {
		o.settings.KMin = kmin
		o.settings.KMax = kmax
	}
}

// WithTrials sets the restarts per clone count.
func WithTrials(n int) Option {
	return func(o *options) {
		o.settings.Trials = n
	}
}

// WithSteps bounds the EM steps of a single trial.
func WithSteps(n int) Option {
	return func(o *options) {
		o.settings.Steps = n
	}
}

// WithMaxParent sets the largest number of parent clones a solution may carry.
func WithMaxParent(n int) Option {
	return func(o *options) {
		o.settings.MaxParent = n
	}
}

// WithMinClusterSize sets the smallest clone a step may keep.
func WithMinClusterSize(n int) Option {
	return func(o *options) {
		o.settings.MinClusterSize = n
	}
}

// WithStrictness selects the makeone tolerance table.
func WithStrictness(s mixture.Strictness) Option {
	return func(o *options) {
		o.settings.Strictness = s.String()
	}
}

// WithKMeansClusters sets the number of k-means seeds. Clone counts above
// the number of seeds kept are skipped.
func WithKMeansClusters(n int) Option {
	return func(o *options) {
		o.settings.KMeansClusters = n
	}
}

// WithSeed sets the random seed of k-means and random picking.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.settings.RandomSeed = seed
	}
}

// WithRandomPick clusters a random subset of n mutations. -1 keeps all.
func WithRandomPick(n int) Option {
	return func(o *options) {
		o.settings.RandomPick = n
	}
}

// WithGapReferences sets the reference sets drawn per clone count.
func WithGapReferences(n int) Option {
	return func(o *options) {
		o.settings.GapReferences = n
	}
}

// WithVisualize renders a plot for every accepted step and promotes the
// winning plot of each clone count. It requires a store.
func WithVisualize(on bool) Option {
	return func(o *options) {
		o.settings.Visualize = on
	}
}

// WithTrace writes a compressed step trace per trial. It requires a store.
func WithTrace(c trace.Compression) Option {
	return func(o *options) {
		o.settings.Trace = c.String()
	}
}

// WithResources bounds the gap statistic workers, its memory and the IO
// rate of the store.
func WithResources(cfg resource.Config) Option {
	return func(o *options) {
		o.settings.Workers = cfg.MaxWorkers
		o.settings.MemoryLimitBytes = cfg.MemoryLimitBytes
		o.settings.IOLimitBytesPerSec = cfg.IOLimitBytesPerSec
	}
}

// WithStore sets the artifact store. Without a store Run writes nothing.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithCodec sets the codec of the step traces.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithOracle replaces the default early-stop oracle.
func WithOracle(oracle search.StopOracle) Option {
	return func(o *options) {
		o.oracle = oracle
	}
}

// WithRunID sets the run identifier. By default a random UUID is used.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &emclone.BasicMetricsCollector{}
//	res, _ := emclone.Run(ctx, ds, emclone.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Trials: %d, Avg steps: %.1f\n", stats.TrialCount, stats.AvgTrialSteps)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := emclone.NewJSONLogger(slog.LevelInfo)
//	res, _ := emclone.Run(ctx, ds, emclone.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		settings:         DefaultSettings(),
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
