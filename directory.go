package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/busgps/datastore/internal/backend"
)

// directory maps external keys to KeyRecords. The engine entries are the
// source of truth; the local LRU is only a hint that saves the HMGET on a
// warm key and is dropped whenever the engine disagrees with it.
type directory struct {
	store  string
	client *backend.Client
	cache  *lru.Cache[string, KeyRecord]
}

func newDirectory(store string, client *backend.Client, cacheSize int) (*directory, error) {
	cache, err := lru.New[string, KeyRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create directory cache: %w", err)
	}
	return &directory{store: store, client: client, cache: cache}, nil
}

// allocate returns the data path of key. It persists nothing and returns
// the same path every time for the same key.
func (d *directory) allocate(key string) string {
	return dataPath(d.store, key)
}

// resolve finds the record of key, locally first.
func (d *directory) resolve(ctx context.Context, key string) (KeyRecord, error) {
	if rec, ok := d.cache.Get(key); ok {
		return rec, nil
	}
	return d.lookup(ctx, key)
}

// resolveKind is resolve for callers that need a record of kind. A cached
// record of another kind is checked against the engine before it is
// believed.
func (d *directory) resolveKind(ctx context.Context, key string, kind Kind) (KeyRecord, error) {
	if rec, ok := d.cache.Get(key); ok && rec.Kind == kind {
		return rec, nil
	}
	return d.lookup(ctx, key)
}

// lookup reads the engine entry of key, bypassing and refreshing the cache.
func (d *directory) lookup(ctx context.Context, key string) (KeyRecord, error) {
	vals, err := d.client.Redis().HMGet(ctx, entryPath(d.store, key), recordFields...).Result()
	if err != nil {
		return KeyRecord{}, fmt.Errorf("resolve %q: %w", key, backend.Classify(err))
	}
	return d.accept(key, vals)
}

// lookupMany reads the engine entries of keys in one pipelined round trip,
// bypassing and refreshing the cache. Keys without an entry are absent from
// the result.
func (d *directory) lookupMany(ctx context.Context, keys []string) (map[string]KeyRecord, error) {
	cmds := make([]*redis.SliceCmd, len(keys))
	_, err := d.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		for i, key := range keys {
			cmds[i] = pipe.HMGet(ctx, entryPath(d.store, key), recordFields...)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("resolve %d keys: %w", len(keys), err)
	}

	found := make(map[string]KeyRecord, len(keys))
	for i, key := range keys {
		rec, err := d.accept(key, cmds[i].Val())
		if err == nil {
			found[key] = rec
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return found, nil
}

// accept parses an HMGET reply and updates the cache accordingly.
func (d *directory) accept(key string, vals []any) (KeyRecord, error) {
	rec, ok, err := parseRecord(vals)
	if err != nil {
		d.cache.Remove(key)
		return KeyRecord{}, fmt.Errorf("resolve %q: %w", key, err)
	}
	if !ok {
		d.cache.Remove(key)
		return KeyRecord{}, ErrNotFound
	}
	d.cache.Add(key, rec)
	return rec, nil
}

// publish queues the writes that make rec the live record of key: the
// entry hash with its expiration and the root set membership.
func (d *directory) publish(ctx context.Context, pipe redis.Pipeliner, key string, rec KeyRecord, ttl time.Duration) {
	entry := entryPath(d.store, key)
	pipe.HSet(ctx, entry, rec.hashValues()...)
	pipe.Expire(ctx, entry, ttl)
	pipe.SAdd(ctx, rootSetPath(d.store), key)
}

func (d *directory) remember(key string, rec KeyRecord) { d.cache.Add(key, rec) }
func (d *directory) forget(key string)                  { d.cache.Remove(key) }
func (d *directory) purge()                             { d.cache.Purge() }
