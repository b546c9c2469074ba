package datastore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/busgps/datastore/internal/backend"
	"github.com/busgps/datastore/internal/codec"
	"github.com/busgps/datastore/internal/observability"
)

// Codec selects how values are encoded. Re-exported from internal/codec.
type Codec = codec.ID

const (
	CodecIdentity   = codec.Identity
	CodecPlain      = codec.Plain
	CodecCompressed = codec.Compressed
	CodecCode       = codec.Code
)

// ParseCodec maps a codec name ("identity", "plain", "compressed", "code")
// to its value.
func ParseCodec(name string) (Codec, error) { return codec.Parse(name) }

// RegisterWorkUnit makes the concrete type of unit transportable with
// CodecCode.
func RegisterWorkUnit(unit any) { codec.RegisterWorkUnit(unit) }

// Observer receives store events. Re-exported from internal/observability.
type (
	Observer  = observability.Observer
	Event     = observability.Event
	EventType = observability.EventType
)

// MetricsHook observes engine round trips. Re-exported from internal/backend.
type MetricsHook = backend.MetricsHook

// Events emitted by a store.
const (
	EventSet        EventType = "store.set"
	EventDelete     EventType = "store.delete"
	EventReset      EventType = "store.reset"
	EventMiss       EventType = "store.get.miss"
	EventStale      EventType = "store.cache.stale"
	EventCodecError EventType = "store.codec.error"
	EventPrune      EventType = "store.keys.prune"
)

// Store is the handle of one namespace. Handles are shared: every Open of
// the same name on a Registry returns the same *Store, so unrelated stages
// of one process see one directory cache. A Store is safe for concurrent
// use.
type Store struct {
	name   string
	client *backend.Client
	dir    *directory
	opts   *Options
}

func newStore(name string, client *backend.Client, opts *Options) (*Store, error) {
	dir, err := newDirectory(name, client, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{name: name, client: client, dir: dir, opts: opts}, nil
}

// Name returns the namespace of the store.
func (s *Store) Name() string { return s.name }

func (s *Store) String() string { return "Store(" + s.name + "@" + s.client.String() + ")" }

// Stat resolves key without touching its data or its expiration.
func (s *Store) Stat(ctx context.Context, key string) (KeyRecord, error) {
	if key == "" {
		return KeyRecord{}, ErrInvalidKey
	}
	return s.dir.resolve(ctx, key)
}

// UniqueID increments the counter of key and returns "{key}#{n}". Counters
// start at 1 and live until Reset.
func (s *Store) UniqueID(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	n, err := s.client.Redis().HIncrBy(ctx, idsPath(s.name), key, 1).Result()
	if err != nil {
		return "", fmt.Errorf("unique id %q: %w", key, backend.Classify(err))
	}
	return key + "#" + strconv.FormatInt(n, 10), nil
}

func (s *Store) emit(ctx context.Context, typ EventType, level observability.Level, data map[string]any) {
	s.opts.Observer.OnEvent(ctx, Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    s.name,
		Data:      data,
	})
}
