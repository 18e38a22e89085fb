package emclone

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/emclone/search"
)

// MetricsCollector defines an interface for collecting run metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordStep is called after each M step. accepted is false when the
	// makeone sums left their band.
	RecordStep(k int, accepted bool)

	// RecordTrial is called once per trial with the number of steps run.
	RecordTrial(k int, accepted bool, steps int)

	// RecordEarlyStop is called when an early-termination rule ends a trial.
	RecordEarlyStop(k int, reason search.RejectReason)

	// RecordRun is called once at the end of Run.
	RecordRun(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStep(int, bool)                     {}
func (NoopMetricsCollector) RecordTrial(int, bool, int)               {}
func (NoopMetricsCollector) RecordEarlyStop(int, search.RejectReason) {}
func (NoopMetricsCollector) RecordRun(time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	StepCount        atomic.Int64
	RejectedSteps    atomic.Int64
	TrialCount       atomic.Int64
	AcceptedTrials   atomic.Int64
	TrialSteps       atomic.Int64
	EarlyStops       atomic.Int64
	ParentCountStops atomic.Int64
	ShrinkingStops   atomic.Int64
	NoMakeoneStops   atomic.Int64
	RunCount         atomic.Int64
	RunErrors        atomic.Int64
	RunTotalNanos    atomic.Int64
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(_ int, accepted bool) {
	b.StepCount.Add(1)
	if !accepted {
		b.RejectedSteps.Add(1)
	}
}

// RecordTrial implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrial(_ int, accepted bool, steps int) {
	b.TrialCount.Add(1)
	b.TrialSteps.Add(int64(steps))
	if accepted {
		b.AcceptedTrials.Add(1)
	}
}

// RecordEarlyStop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEarlyStop(_ int, reason search.RejectReason) {
	b.EarlyStops.Add(1)
	switch reason {
	case search.RejectParentCount:
		b.ParentCountStops.Add(1)
	case search.RejectShrinkingClone:
		b.ShrinkingStops.Add(1)
	case search.RejectNoMakeone:
		b.NoMakeoneStops.Add(1)
	}
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		StepCount:        b.StepCount.Load(),
		RejectedSteps:    b.RejectedSteps.Load(),
		TrialCount:       b.TrialCount.Load(),
		AcceptedTrials:   b.AcceptedTrials.Load(),
		AvgTrialSteps:    b.avgTrialSteps(),
		EarlyStops:       b.EarlyStops.Load(),
		ParentCountStops: b.ParentCountStops.Load(),
		ShrinkingStops:   b.ShrinkingStops.Load(),
		NoMakeoneStops:   b.NoMakeoneStops.Load(),
		RunCount:         b.RunCount.Load(),
		RunErrors:        b.RunErrors.Load(),
		RunTotalNanos:    b.RunTotalNanos.Load(),
	}
}

func (b *BasicMetricsCollector) avgTrialSteps() float64 {
	count := b.TrialCount.Load()
	if count == 0 {
		return 0
	}
	return float64(b.TrialSteps.Load()) / float64(count)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	StepCount        int64
	RejectedSteps    int64
	TrialCount       int64
	AcceptedTrials   int64
	AvgTrialSteps    float64
	EarlyStops       int64
	ParentCountStops int64
	ShrinkingStops   int64
	NoMakeoneStops   int64
	RunCount         int64
	RunErrors        int64
	RunTotalNanos    int64
}
