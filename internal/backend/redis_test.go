package backend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMetrics struct {
	mu        sync.Mutex
	pipelines int
	ops       int
	popped    int
}

func (m *testMetrics) ObservePipeline(_ time.Duration, numOps int, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelines++
	m.ops += numOps
}

func (m *testMetrics) ObservePop(_ time.Duration, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popped += bytes
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis, *testMetrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	metrics := &testMetrics{}
	c, err := Open(context.Background(), Options{Addr: mr.Addr(), Metrics: metrics})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr, metrics
}

func TestPipelineSkipsMissingKeys(t *testing.T) {
	c, _, metrics := newTestClient(t)
	ctx := context.Background()

	_, err := c.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, "a", "1", time.Minute)
		pipe.Set(ctx, "b", "2", time.Minute)
	})
	require.NoError(t, err)

	var a, missing, b *redis.StringCmd
	_, err = c.Pipeline(ctx, func(pipe redis.Pipeliner) {
		a = pipe.Get(ctx, "a")
		missing = pipe.Get(ctx, "nope")
		b = pipe.Get(ctx, "b")
	})
	require.NoError(t, err)

	assert.Equal(t, "1", a.Val())
	assert.ErrorIs(t, missing.Err(), redis.Nil)
	assert.Equal(t, "2", b.Val())

	assert.Equal(t, 2, metrics.pipelines)
	assert.Equal(t, 5, metrics.ops)
}

func TestPipelineEmptyIsNoop(t *testing.T) {
	c, _, metrics := newTestClient(t)

	cmds, err := c.Pipeline(context.Background(), func(redis.Pipeliner) {})
	require.NoError(t, err)
	assert.Nil(t, cmds)
	assert.Zero(t, metrics.pipelines)
}

func TestPipelineReportsServerErrors(t *testing.T) {
	c, mr, _ := newTestClient(t)
	ctx := context.Background()
	mr.Lpush("list", "x")

	_, err := c.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.Get(ctx, "missing")
		pipe.Get(ctx, "list")
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "WRONGTYPE")
}

func TestBLPop(t *testing.T) {
	c, mr, metrics := newTestClient(t)
	ctx := context.Background()

	_, err := mr.Push("q", "first", "second")
	require.NoError(t, err)

	data, found, err := c.BLPop(ctx, "q", time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", string(data))
	assert.Equal(t, len("first"), metrics.popped)

	data, found, err = c.BLPop(ctx, "q", time.Second)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", string(data))

	start := time.Now()
	_, found, err = c.BLPop(ctx, "q", time.Second)
	require.NoError(t, err)
	assert.False(t, found)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestUnavailable(t *testing.T) {
	c, mr, _ := newTestClient(t)
	ctx := context.Background()
	mr.Close()

	_, err := c.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.Get(ctx, "a")
	})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), Options{Addr: addr, DialTimeout: 200 * time.Millisecond})
	assert.ErrorIs(t, err, ErrUnavailable)
}
