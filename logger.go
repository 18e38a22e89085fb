package emclone

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/emclone/decision"
	"github.com/hupe1980/emclone/search"
)

// Logger wraps slog.Logger with emclone-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// LevelTrace logs every step of every trial.
const LevelTrace = slog.LevelDebug - 4

// LevelForVerbosity maps the 0 (most verbose) to 3 (concise) scale of the
// command line tool to a slog level.
func LevelForVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return LevelTrace
	case v == 1:
		return slog.LevelDebug
	case v == 2:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// WithRunID adds a run field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// WithK adds a k (clone count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithTrial adds a trial field to the logger.
func (l *Logger) WithTrial(trial int) *Logger {
	return &Logger{
		Logger: l.Logger.With("trial", trial),
	}
}

// LogSeeds logs the k-means seeding.
func (l *Logger) LogSeeds(ctx context.Context, requested, kept int) {
	if kept < requested {
		l.InfoContext(ctx, "kmeans seeds dropped",
			"requested", requested,
			"kept", kept,
		)
		return
	}
	l.DebugContext(ctx, "kmeans seeds", "count", kept)
}

// LogSweep logs a one-line summary of the search.
func (l *Logger) LogSweep(ctx context.Context, cluster *search.Cluster) {
	l.InfoContext(ctx, "sweep done",
		"searched", cluster.Ks(),
		"accepted", cluster.Accepted(),
		"max_likelihood_k", cluster.Best(),
	)
}

// LogDecision logs a ranking.
func (l *Logger) LogDecision(ctx context.Context, r decision.Ranking) {
	if best := r.Best(); best > 0 {
		l.InfoContext(ctx, "optimal clone count",
			"method", r.Method,
			"k", best,
			"order", r.Ks(),
		)
		return
	}
	l.WarnContext(ctx, "no ranking", "method", r.Method)
}

// LogArtifact logs an artifact write.
func (l *Logger) LogArtifact(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "artifact write failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "artifact written", "name", name)
}
