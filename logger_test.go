package emclone

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/emclone/decision"
	"github.com/hupe1980/emclone/search"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		WithRunID("r1").WithK(3).WithTrial(2)

	l.LogDecision(context.Background(), decision.Ranking{
		Method:     decision.MethodGap,
		Candidates: []decision.Candidate{{K: 3}, {K: 2}},
	})
	out := buf.String()
	assert.Contains(t, out, "run=r1")
	assert.Contains(t, out, "k=3")
	assert.Contains(t, out, "trial=2")
	assert.Contains(t, out, "method=gap")

	buf.Reset()
	l.LogDecision(context.Background(), decision.Ranking{Method: decision.MethodXieBeni})
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	l.LogSweep(context.Background(), search.NewCluster())
	assert.Contains(t, buf.String(), "sweep done")

	buf.Reset()
	l.LogSeeds(context.Background(), 8, 5)
	assert.Contains(t, buf.String(), "kmeans seeds dropped")
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
