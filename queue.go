package datastore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/busgps/datastore/internal/codec"
	"github.com/busgps/datastore/internal/observability"
)

// endOfStream is the list item pushed by CloseQueue. It starts with 0xc1,
// a byte MessagePack never emits, and is not a valid zstd or gob stream.
var endOfStream = []byte("\xc1datastore:end-of-stream")

// Enqueue encodes v as one unit and appends it to the queue key, creating
// the queue on first use. New queues use CodecCompressed unless WithCodec
// says otherwise; an existing queue keeps the codec it was created with.
func (s *Store) Enqueue(ctx context.Context, key string, v any, opts ...CallOption) error {
	co := s.callOptions(CodecCompressed, opts)
	rec, err := s.collection(ctx, key, KindQueue, co)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	data, err := codec.Encode(rec.Codec, v)
	if err != nil {
		s.codecError(ctx, key, rec.Codec, err)
		return fmt.Errorf("enqueue %q: %w", key, err)
	}
	return s.push(ctx, key, rec, data, co.ttl)
}

// CloseQueue appends the end-of-stream marker to key. A consumer that pops
// it gets ErrEndOfStream. Push one marker per consumer once the last
// producer is done; the queue itself does not track producers.
func (s *Store) CloseQueue(ctx context.Context, key string, opts ...CallOption) error {
	co := s.callOptions(CodecCompressed, opts)
	rec, err := s.collection(ctx, key, KindQueue, co)
	if err != nil {
		return fmt.Errorf("close queue: %w", err)
	}
	return s.push(ctx, key, rec, endOfStream, co.ttl)
}

func (s *Store) push(ctx context.Context, key string, rec KeyRecord, payload []byte, ttl time.Duration) error {
	_, err := s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.RPush(ctx, rec.DataPath, payload)
		pipe.Expire(ctx, rec.DataPath, ttl)
		s.dir.publish(ctx, pipe, key, rec, ttl)
	})
	if err != nil {
		s.dir.forget(key)
		return fmt.Errorf("enqueue %q: %w", key, err)
	}
	s.dir.remember(key, rec)
	return nil
}

// Dequeue pops the oldest item of key into out, waiting up to timeout for
// one to arrive; zero waits forever. It returns ErrNotFound at once when the
// queue does not exist, ErrNotFound after the timeout when it stays empty,
// and ErrEndOfStream when it pops the marker left by CloseQueue.
func (s *Store) Dequeue(ctx context.Context, key string, timeout time.Duration, out any) error {
	if key == "" {
		return ErrInvalidKey
	}
	rec, err := s.dir.resolveKind(ctx, key, KindQueue)
	if err != nil {
		return s.missed(ctx, key, err)
	}
	if rec.Kind != KindQueue {
		return fmt.Errorf("dequeue %q: %w: %s", key, ErrWrongKind, rec.Kind)
	}

	// a cached record may outlive its entry or describe a key since
	// re-created as something else; never block on such a queue
	var current *redis.SliceCmd
	alive, err := s.touch(ctx, key, rec, s.opts.TTL, func(pipe redis.Pipeliner) {
		current = pipe.HMGet(ctx, entryPath(s.name, key), recordFields...)
	})
	if err != nil {
		return fmt.Errorf("dequeue %q: %w", key, err)
	}
	if !alive {
		return s.missed(ctx, key, ErrNotFound)
	}
	remote, err := s.dir.accept(key, current.Val())
	if err != nil {
		return s.missed(ctx, key, err)
	}
	if remote != rec {
		s.emit(ctx, EventStale, observability.LevelVerbose, map[string]any{"key": key})
		if remote.Kind != KindQueue {
			return fmt.Errorf("dequeue %q: %w: %s", key, ErrWrongKind, remote.Kind)
		}
		rec = remote
	}

	data, found, err := s.client.BLPop(ctx, rec.DataPath, timeout)
	if err != nil {
		return fmt.Errorf("dequeue %q: %w", key, err)
	}
	if !found {
		return s.missed(ctx, key, ErrNotFound)
	}
	if bytes.Equal(data, endOfStream) {
		return ErrEndOfStream
	}

	if err := codec.Decode(rec.Codec, data, out); err != nil {
		s.codecError(ctx, key, rec.Codec, err)
		return fmt.Errorf("dequeue %q: %w", key, err)
	}
	return nil
}
