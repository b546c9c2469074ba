package datastore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/busgps/datastore/internal/codec"
)

// SAdd adds member to the set key. Sets are small and never chunked; new
// sets use CodecPlain unless WithCodec says otherwise. Membership compares
// encoded bytes, so members should encode deterministically.
func (s *Store) SAdd(ctx context.Context, key string, member any, opts ...CallOption) error {
	return s.BulkSAdd(ctx, key, []any{member}, opts...)
}

// BulkSAdd adds every member to the set key in one batch.
func (s *Store) BulkSAdd(ctx context.Context, key string, members []any, opts ...CallOption) error {
	co := s.callOptions(CodecPlain, opts)
	rec, err := s.collection(ctx, key, KindSet, co)
	if err != nil {
		return fmt.Errorf("sadd: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	encoded := make([]any, len(members))
	for i, m := range members {
		data, err := codec.Encode(rec.Codec, m)
		if err != nil {
			s.codecError(ctx, key, rec.Codec, err)
			return fmt.Errorf("sadd %q: %w", key, err)
		}
		encoded[i] = data
	}

	_, err = s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, rec.DataPath, encoded...)
		pipe.Expire(ctx, rec.DataPath, co.ttl)
		s.dir.publish(ctx, pipe, key, rec, co.ttl)
	})
	if err != nil {
		s.dir.forget(key)
		return fmt.Errorf("sadd %q: %w", key, err)
	}
	s.dir.remember(key, rec)
	return nil
}

// SMembers decodes every member of the set key, in no particular order.
// It returns ErrNotFound when the set does not exist.
func SMembers[T any](ctx context.Context, s *Store, key string, opts ...CallOption) ([]T, error) {
	raw, rec, err := s.members(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(raw))
	for i, m := range raw {
		if err := codec.Decode(rec.Codec, []byte(m), &out[i]); err != nil {
			s.codecError(ctx, key, rec.Codec, err)
			return nil, fmt.Errorf("smembers %q: %w", key, err)
		}
	}
	return out, nil
}

func (s *Store) members(ctx context.Context, key string, opts []CallOption) ([]string, KeyRecord, error) {
	if key == "" {
		return nil, KeyRecord{}, ErrInvalidKey
	}
	co := s.callOptions(CodecPlain, opts)

	rec, err := s.dir.resolveKind(ctx, key, KindSet)
	if err != nil {
		return nil, KeyRecord{}, s.missed(ctx, key, err)
	}
	if rec.Kind != KindSet {
		return nil, KeyRecord{}, fmt.Errorf("smembers %q: %w: %s", key, ErrWrongKind, rec.Kind)
	}

	var members *redis.StringSliceCmd
	alive, err := s.touch(ctx, key, rec, co.ttl, func(pipe redis.Pipeliner) {
		members = pipe.SMembers(ctx, rec.DataPath)
	})
	if err != nil {
		return nil, KeyRecord{}, fmt.Errorf("smembers %q: %w", key, err)
	}
	if !alive {
		return nil, KeyRecord{}, s.missed(ctx, key, ErrNotFound)
	}
	return members.Val(), rec, nil
}
