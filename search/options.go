package search

import (
	"context"
	"log/slog"
)

// Observer is notified of every accepted step, in order.
type Observer interface {
	OnStep(ctx context.Context, s *Snapshot) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s *Snapshot) error

// OnStep implements Observer.
func (f ObserverFunc) OnStep(ctx context.Context, s *Snapshot) error { return f(ctx, s) }

// Copier copies a named artifact.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}

// Metrics receives sweep counters.
type Metrics interface {
	// RecordStep is called once per completed M step.
	RecordStep(k int, accepted bool)
	// RecordTrial is called once per trial with the number of steps run.
	RecordTrial(k int, accepted bool, steps int)
	// RecordEarlyStop is called when an early-termination rule ends a trial.
	RecordEarlyStop(k int, reason RejectReason)
}

type noopMetrics struct{}

func (noopMetrics) RecordStep(int, bool)              {}
func (noopMetrics) RecordTrial(int, bool, int)        {}
func (noopMetrics) RecordEarlyStop(int, RejectReason) {}

type options struct {
	logger    *slog.Logger
	oracle    StopOracle
	observers []Observer
	artifacts Copier
	metrics   Metrics
}

// Option configures a Driver.
type Option func(*options)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOracle replaces DefaultOracle. A nil oracle is ignored.
func WithOracle(oracle StopOracle) Option {
	return func(o *options) {
		if oracle != nil {
			o.oracle = oracle
		}
	}
}

// WithObserver adds an observer. Observers run in the order they were added.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithArtifacts sets the store used to promote the winning step plot of
// each K. It is only used when Config.Visualize is set.
func WithArtifacts(c Copier) Option {
	return func(o *options) {
		o.artifacts = c
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
