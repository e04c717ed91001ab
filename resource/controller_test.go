package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Does not fit: fails instantly and leaves usage untouched.
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(90), c.PeakMemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())

	// Non-positive sizes are no-ops.
	require.NoError(t, c.AcquireMemory(0))
	c.ReleaseMemory(-1)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(context.Background()))
	require.NoError(t, c.AcquireWorker(context.Background()))

	assert.False(t, c.TryAcquireWorker())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
	assert.Equal(t, int64(2), c.MaxWorkers())
}

func TestController_UnlimitedWorkers(t *testing.T) {
	c := NewController(Config{})
	for range 100 {
		assert.True(t, c.TryAcquireWorker())
	}
	c.ReleaseWorker() // Should not panic
}

func TestController_Transfer(t *testing.T) {
	c := NewController(Config{TransferLimitBytesPerSec: 1 << 20})

	// The full burst is available immediately.
	assert.True(t, c.TryAcquireTransfer(1<<20))
	assert.False(t, c.TryAcquireTransfer(1<<20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireTransfer(ctx, 1<<21))
}

func TestController_TransferLargerThanBurst(t *testing.T) {
	c := NewController(Config{TransferLimitBytesPerSec: 1 << 30})

	// Requests above the burst size are split instead of rejected.
	require.NoError(t, c.AcquireTransfer(context.Background(), 1<<30+1))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.PeakMemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
	assert.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	assert.NoError(t, c.AcquireTransfer(context.Background(), 10))
	assert.True(t, c.TryAcquireTransfer(10))
}
