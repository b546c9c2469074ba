package datastore

import (
	"log/slog"
	"time"

	"github.com/busgps/datastore/internal/backend"
	"github.com/busgps/datastore/internal/observability"
)

const (
	DefaultTTL         = time.Hour
	DefaultCacheSize   = 4096
	DefaultConcurrency = 8
)

// Options configures the stores opened by a Registry.
type Options struct {
	Addr        string
	DB          int
	DialTimeout time.Duration
	TTL         time.Duration
	CacheSize   int
	Concurrency int
	PoolSize    int
	Observer    Observer
	Metrics     MetricsHook
}

// Option is a functional option for NewRegistry.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Addr:        backend.DefaultAddr,
		DialTimeout: backend.DefaultDialTimeout,
		TTL:         DefaultTTL,
		CacheSize:   DefaultCacheSize,
		Concurrency: DefaultConcurrency,
		Observer:    observability.NoOpObserver{},
		Metrics:     backend.NoopMetrics{},
	}
}

// WithAddr sets the engine host:port.
func WithAddr(addr string) Option {
	return func(o *Options) { o.Addr = addr }
}

// WithDB selects the engine database index.
func WithDB(db int) Option {
	return func(o *Options) { o.DB = db }
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.DialTimeout = d
		}
	}
}

// WithDefaultTTL sets the sliding expiration applied when a call does not
// pass its own.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.TTL = d
		}
	}
}

// WithCacheSize bounds the local directory cache of each store.
func WithCacheSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheSize = n
		}
	}
}

// WithConcurrency sets the number of parallel deletes during Reset.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPoolSize caps the engine connections of a registry. Every blocked
// Dequeue holds one connection.
func WithPoolSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// WithObserver routes store events to obs.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

// WithLogger routes store events to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithObserver(observability.NewSlogObserver(logger))
}

// WithMetrics observes engine round trips.
func WithMetrics(m MetricsHook) Option {
	return func(o *Options) {
		if m != nil {
			o.Metrics = m
		}
	}
}

type callOptions struct {
	codec    Codec
	codecSet bool
	ttl      time.Duration
}

// CallOption tunes a single operation.
type CallOption func(*callOptions)

// WithCodec selects the encoding of a new key.
func WithCodec(c Codec) CallOption {
	return func(o *callOptions) {
		o.codec = c
		o.codecSet = true
	}
}

// WithTTL overrides the store's default expiration for this call. On reads
// it is the duration the key's countdown is reset to.
func WithTTL(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

func (s *Store) callOptions(def Codec, opts []CallOption) callOptions {
	co := callOptions{codec: def, ttl: s.opts.TTL}
	for _, opt := range opts {
		opt(&co)
	}
	return co
}
