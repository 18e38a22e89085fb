package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 60))
	require.NoError(t, c.AcquireMemory(context.Background(), 30))
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(60)
	require.NoError(t, c.AcquireMemory(context.Background(), 20))
	assert.Equal(t, int64(50), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<40))
	c.ReleaseMemory(1 << 39)
	assert.Equal(t, int64(1<<39), c.MemoryUsage())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})
	assert.Equal(t, 2, c.Workers())

	require.NoError(t, c.AcquireWorker(context.Background()))
	require.NoError(t, c.AcquireWorker(context.Background()))
	assert.False(t, c.TryAcquireWorker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.Canceled)

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestController_DefaultsToOneWorker(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, 1, c.Workers())
	assert.True(t, c.TryAcquireWorker())
	assert.False(t, c.TryAcquireWorker())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	assert.Equal(t, 1, c.Workers())
	assert.True(t, c.TryAcquireWorker())
	require.NoError(t, c.AcquireWorker(context.Background()))
	c.ReleaseWorker()
	require.NoError(t, c.AcquireMemory(context.Background(), 10))
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestThrottledIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewWriter(context.Background(), &buf, c)
	_, err := io.Copy(w, strings.NewReader("mixture"))
	require.NoError(t, err)

	r := NewReader(context.Background(), &buf, c)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "mixture", string(got))
}

func TestAcquireIO_SplitsLargeRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// Larger than the burst; must not fail with "exceeds limiter's burst".
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20+10))
}
