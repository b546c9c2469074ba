package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/busgps/datastore/internal/codec"
)

// collection resolves the record of a set or queue key, or drafts a new one
// when the key does not exist yet. The codec of an existing collection is
// fixed: every member is decoded with it.
func (s *Store) collection(ctx context.Context, key string, kind Kind, co callOptions) (KeyRecord, error) {
	if key == "" {
		return KeyRecord{}, ErrInvalidKey
	}
	if !co.codec.Valid() {
		return KeyRecord{}, fmt.Errorf("%q: %w: %d", key, codec.ErrUnknown, int(co.codec))
	}

	rec, err := s.dir.resolveKind(ctx, key, kind)
	switch {
	case errors.Is(err, ErrNotFound):
		return KeyRecord{DataPath: s.dir.allocate(key), Codec: co.codec, Kind: kind}, nil
	case err != nil:
		return KeyRecord{}, err
	case rec.Kind != kind:
		return KeyRecord{}, fmt.Errorf("%q is a %s: %w", key, rec.Kind, ErrWrongKind)
	case co.codecSet && co.codec != rec.Codec:
		return KeyRecord{}, fmt.Errorf("%q is encoded with %s: %w", key, rec.Codec, ErrCodec)
	}
	return rec, nil
}

// touch renews the expiration of a collection and its entry. It reports
// false when the entry is gone, in which case the cached record is dropped.
func (s *Store) touch(ctx context.Context, key string, rec KeyRecord, ttl time.Duration, extra func(pipe redis.Pipeliner)) (bool, error) {
	var alive *redis.BoolCmd
	_, err := s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		if extra != nil {
			extra(pipe)
		}
		pipe.Expire(ctx, rec.DataPath, ttl)
		alive = pipe.Expire(ctx, entryPath(s.name, key), ttl)
	})
	if err != nil {
		return false, err
	}
	if !alive.Val() {
		s.dir.forget(key)
		return false, nil
	}
	return true, nil
}
