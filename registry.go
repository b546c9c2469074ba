package datastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/busgps/datastore/internal/backend"
)

// Registry hands out one shared Store per namespace. All stores of a
// registry share one engine connection pool, opened on first use.
type Registry struct {
	mu     sync.Mutex
	opts   *Options
	client *backend.Client
	stores map[string]*Store
	closed bool
}

// NewRegistry creates a registry. Nothing is dialed until the first Open.
func NewRegistry(opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Registry{opts: o, stores: make(map[string]*Store)}
}

// Open returns the store named name, connecting to the engine if this is
// the first store of the registry. Every call with the same name returns
// the same handle.
func (r *Registry) Open(ctx context.Context, name string) (*Store, error) {
	if !validStoreName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if s, ok := r.stores[name]; ok {
		return s, nil
	}

	if r.client == nil {
		client, err := backend.Open(ctx, backend.Options{
			Addr:        r.opts.Addr,
			DB:          r.opts.DB,
			DialTimeout: r.opts.DialTimeout,
			PoolSize:    r.opts.PoolSize,
			Metrics:     r.opts.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("open store %q: %w", name, err)
		}
		r.client = client
	}

	s, err := newStore(name, r.client, r.opts)
	if err != nil {
		return nil, err
	}
	r.stores[name] = s
	return s, nil
}

// Close releases the engine connections. Stores of the registry must not be
// used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.stores = nil
	return r.client.Close()
}
