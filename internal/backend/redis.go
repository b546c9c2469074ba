package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultAddr        = "localhost:6379"
	DefaultDialTimeout = 5 * time.Second
	DefaultReadTimeout = 30 * time.Second
)

// ErrUnavailable marks connection level failures. They are never retried
// here; the calling stage decides whether to re-run its unit of work.
var ErrUnavailable = errors.New("backend: engine unavailable")

// Options configures the engine client.
type Options struct {
	// Addr is host:port of the engine.
	Addr string
	// DB is the logical database index.
	DB int
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// ReadTimeout bounds replies of non-blocking commands. Blocking pops
	// extend it by their own timeout.
	ReadTimeout time.Duration
	// PoolSize caps pooled connections. Zero keeps the go-redis default.
	PoolSize int
	// Metrics observes pipeline and pop latencies. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for engine round trips.
type MetricsHook interface {
	ObservePipeline(elapsed time.Duration, numOps int, err error)
	ObservePop(elapsed time.Duration, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObservePipeline(time.Duration, int, error) {}
func (NoopMetrics) ObservePop(time.Duration, int)             {}

// Client wraps a go-redis client with pipelined batches, metrics and error
// classification.
type Client struct {
	rdb     *redis.Client
	addr    string
	db      int
	metrics MetricsHook
}

// Open connects to the engine and verifies it answers.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		DB:                    opts.DB,
		DialTimeout:           opts.DialTimeout,
		ReadTimeout:           opts.ReadTimeout,
		PoolSize:              opts.PoolSize,
		ContextTimeoutEnabled: true,
		MaxRetries:            -1,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping %s/%d: %w", opts.Addr, opts.DB, Classify(err))
	}

	return &Client{rdb: rdb, addr: opts.Addr, db: opts.DB, metrics: metrics}, nil
}

func (c *Client) String() string { return fmt.Sprintf("%s/%d", c.addr, c.db) }

// Redis exposes the underlying client for single commands.
func (c *Client) Redis() *redis.Client { return c.rdb }

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Pipeline queues the commands added by fn and sends them in one exchange.
// A pipeline is a batch, not a transaction: a failure half way leaves the
// earlier commands applied.
//
// Missing keys (redis.Nil) are not failures; callers inspect the returned
// commands. Any other command error is returned, classified.
func (c *Client) Pipeline(ctx context.Context, fn func(pipe redis.Pipeliner)) ([]redis.Cmder, error) {
	pipe := c.rdb.Pipeline()
	fn(pipe)
	n := pipe.Len()
	if n == 0 {
		return nil, nil
	}

	start := time.Now()
	cmds, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		err = nil
		for _, cmd := range cmds {
			if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
				err = cerr
				break
			}
		}
	}
	c.metrics.ObservePipeline(time.Since(start), n, err)
	if err != nil {
		return cmds, Classify(err)
	}
	return cmds, nil
}

// BLPop pops the head of key, waiting up to timeout. Zero waits forever.
// It reports found=false when the wait elapsed with nothing to pop.
func (c *Client) BLPop(ctx context.Context, key string, timeout time.Duration) (data []byte, found bool, err error) {
	start := time.Now()
	res, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Classify(err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("blpop %s: unexpected reply of %d elements", key, len(res))
	}
	data = []byte(res[1])
	c.metrics.ObservePop(time.Since(start), len(data))
	return data, true, nil
}

// Classify wraps connection failures in ErrUnavailable and leaves server
// replies and context errors untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, redis.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
