package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/busgps/datastore/internal/codec"
	"github.com/busgps/datastore/internal/observability"
)

// errStale reports that the record a read started from no longer matches
// the engine: the entry was rewritten or some chunk is gone.
var errStale = errors.New("stale record")

// Set encodes v and stores it under key, replacing any previous value.
// Values are encoded with CodecCompressed unless WithCodec says otherwise.
//
// All chunks, the directory entry and the root set membership are sent in
// one pipelined batch. The batch is not a transaction: a reader racing the
// write may see the new entry before every chunk has landed, and reports
// ErrNotFound in that case.
func (s *Store) Set(ctx context.Context, key string, v any, opts ...CallOption) error {
	return s.put(ctx, []string{key}, []any{v}, opts)
}

// BulkSet stores every entry of values in a single pipelined batch.
func (s *Store) BulkSet(ctx context.Context, values map[string]any, opts ...CallOption) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = values[k]
	}
	return s.put(ctx, keys, vals, opts)
}

func (s *Store) put(ctx context.Context, keys []string, values []any, opts []CallOption) error {
	co := s.callOptions(CodecCompressed, opts)
	if !co.codec.Valid() {
		return fmt.Errorf("set: %w: %d", codec.ErrUnknown, int(co.codec))
	}

	encoded := make([][]byte, len(keys))
	for i, key := range keys {
		if key == "" {
			return ErrInvalidKey
		}
		data, err := codec.Encode(co.codec, values[i])
		if err != nil {
			s.codecError(ctx, key, co.codec, err)
			return fmt.Errorf("set %q: %w", key, err)
		}
		encoded[i] = data
	}

	// the previous chunk count must come from the engine: another process
	// may have grown the value since it was cached
	prev, err := s.dir.lookupMany(ctx, keys)
	if err != nil {
		return fmt.Errorf("set: %w", err)
	}

	recs := make([]KeyRecord, len(keys))
	_, err = s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		for i, key := range keys {
			rec := newValueRecord(s.dir.allocate(key), len(encoded[i]), co.codec)
			recs[i] = rec

			for j, chunk := range splitChunks(encoded[i]) {
				pipe.Set(ctx, chunkPath(rec.DataPath, int64(j)), chunk, co.ttl)
			}
			if old, ok := prev[key]; ok {
				if stale := staleKeys(old, rec); len(stale) > 0 {
					pipe.Del(ctx, stale...)
				}
			}
			s.dir.publish(ctx, pipe, key, rec, co.ttl)
		}
	})
	if err != nil {
		for _, key := range keys {
			s.dir.forget(key)
		}
		return fmt.Errorf("set: %w", err)
	}

	for i, key := range keys {
		s.dir.remember(key, recs[i])
		s.emit(ctx, EventSet, observability.LevelVerbose, map[string]any{
			"key":    key,
			"size":   recs[i].Size,
			"chunks": recs[i].chunkKeys(),
			"codec":  recs[i].Codec.String(),
		})
	}
	return nil
}

// staleKeys lists the data keys of old that cur no longer covers.
func staleKeys(old, cur KeyRecord) []string {
	if old.Kind != KindValue {
		return []string{old.DataPath}
	}
	var stale []string
	for i := cur.chunkKeys(); i < old.chunkKeys(); i++ {
		stale = append(stale, chunkPath(old.DataPath, i))
	}
	return stale
}

// Get decodes the value of key into out, which must be a pointer suitable
// for the key's codec. It returns ErrNotFound when the key is absent,
// expired or only partially present. A successful read resets the
// expiration of the entry and of every chunk.
func (s *Store) Get(ctx context.Context, key string, out any, opts ...CallOption) error {
	data, rec, err := s.GetBytes(ctx, key, opts...)
	if err != nil {
		return err
	}
	if err := s.Decode(rec, data, out); err != nil {
		s.codecError(ctx, key, rec.Codec, err)
		return fmt.Errorf("get %q: %w", key, err)
	}
	return nil
}

// Decode decodes bytes returned by GetBytes into out with the codec
// recorded in rec. It reads nothing from the engine.
func (s *Store) Decode(rec KeyRecord, data []byte, out any) error {
	return codec.Decode(rec.Codec, data, out)
}

// GetBytes returns the encoded value of key together with its record.
func (s *Store) GetBytes(ctx context.Context, key string, opts ...CallOption) ([]byte, KeyRecord, error) {
	if key == "" {
		return nil, KeyRecord{}, ErrInvalidKey
	}
	co := s.callOptions(CodecCompressed, opts)

	rec, err := s.dir.resolveKind(ctx, key, KindValue)
	if err != nil {
		return nil, KeyRecord{}, s.missed(ctx, key, err)
	}
	if rec.Kind != KindValue {
		return nil, KeyRecord{}, fmt.Errorf("get %q: %w: %s", key, ErrWrongKind, rec.Kind)
	}

	data, err := s.fetch(ctx, key, rec, co.ttl)
	if errors.Is(err, errStale) {
		s.emit(ctx, EventStale, observability.LevelVerbose, map[string]any{"key": key})
		s.dir.forget(key)

		rec, err = s.dir.lookup(ctx, key)
		if err == nil && rec.Kind != KindValue {
			err = fmt.Errorf("get %q: %w: %s", key, ErrWrongKind, rec.Kind)
		}
		if err == nil {
			data, err = s.fetch(ctx, key, rec, co.ttl)
		}
		if errors.Is(err, errStale) {
			s.dir.forget(key)
			err = ErrNotFound
		}
	}
	if err != nil {
		return nil, KeyRecord{}, s.missed(ctx, key, err)
	}
	return data, rec, nil
}

// fetch reads every chunk of rec, renewing the expiration of each chunk and
// of the entry, and re-reads the entry in the same batch to check that rec
// still describes what is stored.
func (s *Store) fetch(ctx context.Context, key string, rec KeyRecord, ttl time.Duration) ([]byte, error) {
	n := rec.chunkKeys()
	entry := entryPath(s.name, key)
	gets := make([]*redis.StringCmd, n)
	var current *redis.SliceCmd

	_, err := s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		for i := int64(0); i < n; i++ {
			p := chunkPath(rec.DataPath, i)
			gets[i] = pipe.Get(ctx, p)
			pipe.Expire(ctx, p, ttl)
		}
		pipe.Expire(ctx, entry, ttl)
		current = pipe.HMGet(ctx, entry, recordFields...)
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}

	remote, ok, err := parseRecord(current.Val())
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if !ok {
		s.dir.forget(key)
		return nil, ErrNotFound
	}
	if remote != rec {
		return nil, errStale
	}

	chunks := make([][]byte, n)
	for i, get := range gets {
		b, err := get.Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, errStale
		}
		if err != nil {
			return nil, fmt.Errorf("get %q chunk %d: %w", key, i, err)
		}
		chunks[i] = b
	}

	data, err := joinChunks(rec, chunks)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return data, nil
}

// Delete removes key, its data and its root set membership in one batch.
// Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	rec, err := s.dir.lookup(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	doomed := append(rec.dataKeys(), entryPath(s.name, key))
	_, err = s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, doomed...)
		pipe.SRem(ctx, rootSetPath(s.name), key)
	})
	s.dir.forget(key)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	s.emit(ctx, EventDelete, observability.LevelVerbose, map[string]any{
		"key":  key,
		"kind": rec.Kind.String(),
	})
	return nil
}

func (s *Store) missed(ctx context.Context, key string, err error) error {
	if errors.Is(err, ErrNotFound) {
		s.emit(ctx, EventMiss, observability.LevelVerbose, map[string]any{"key": key})
	}
	return err
}

func (s *Store) codecError(ctx context.Context, key string, c Codec, err error) {
	s.emit(ctx, EventCodecError, observability.LevelError, map[string]any{
		"key":   key,
		"codec": c.String(),
		"error": err.Error(),
	})
}
