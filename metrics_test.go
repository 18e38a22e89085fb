package emclone

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/emclone/search"
)

func TestBasicMetricsCollector(t *testing.T) {
	var m BasicMetricsCollector
	var _ search.Metrics = &m

	m.RecordStep(3, true)
	m.RecordStep(3, false)
	m.RecordTrial(3, true, 10)
	m.RecordTrial(3, false, 4)
	m.RecordEarlyStop(3, search.RejectParentCount)
	m.RecordEarlyStop(3, search.RejectNoMakeone)
	m.RecordRun(time.Second, nil)
	m.RecordRun(time.Second, errors.New("boom"))

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats.StepCount)
	assert.Equal(t, int64(1), stats.RejectedSteps)
	assert.Equal(t, int64(2), stats.TrialCount)
	assert.Equal(t, int64(1), stats.AcceptedTrials)
	assert.InDelta(t, 7.0, stats.AvgTrialSteps, 1e-9)
	assert.Equal(t, int64(2), stats.EarlyStops)
	assert.Equal(t, int64(1), stats.ParentCountStops)
	assert.Equal(t, int64(1), stats.NoMakeoneStops)
	assert.Equal(t, int64(2), stats.RunCount)
	assert.Equal(t, int64(1), stats.RunErrors)
	assert.Equal(t, (2 * time.Second).Nanoseconds(), stats.RunTotalNanos)
}

func TestBasicMetricsCollector_Empty(t *testing.T) {
	var m BasicMetricsCollector
	assert.Zero(t, m.GetStats().AvgTrialSteps)
}

func TestLevelForVerbosity(t *testing.T) {
	assert.Equal(t, LevelTrace, LevelForVerbosity(-1))
	assert.Equal(t, LevelTrace, LevelForVerbosity(0))
	assert.Equal(t, slog.LevelDebug, LevelForVerbosity(1))
	assert.Equal(t, slog.LevelInfo, LevelForVerbosity(2))
	assert.Equal(t, slog.LevelWarn, LevelForVerbosity(9))
}
