package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"

	"github.com/busgps/datastore/internal/backend"
	"github.com/busgps/datastore/internal/observability"
)

// fnmatch escapes the glob syntax shell patterns do not have, so braces
// match literally.
var fnmatch = strings.NewReplacer("{", `\{`, "}", `\}`)

// Keys returns the live keys matching the shell-style pattern, sorted.
// "*" matches any run of characters, "/" included; "?", "[...]" and "[!...]"
// work as in fnmatch and braces are literal. Root set members whose
// directory entry has expired are removed on the way.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(fnmatch.Replace(pattern))
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", pattern, err)
	}

	members, err := s.client.Redis().SMembers(ctx, rootSetPath(s.name)).Result()
	if err != nil {
		return nil, fmt.Errorf("keys: %w", backend.Classify(err))
	}
	sort.Strings(members)

	var matched []string
	for _, m := range members {
		if g.Match(m) {
			matched = append(matched, m)
		}
	}
	if len(matched) == 0 {
		return []string{}, nil
	}
	return s.prune(ctx, matched)
}

// unlinkDead removes a root set member only while its entry is absent, so a
// key re-created after the EXISTS check keeps its membership. It returns -1
// for a live entry.
var unlinkDead = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -1
end
return redis.call('SREM', KEYS[1], ARGV[1])
`)

// prune drops keys whose entry no longer exists from the root set and from
// the local cache, and returns the rest in order.
func (s *Store) prune(ctx context.Context, keys []string) ([]string, error) {
	exists := make([]*redis.IntCmd, len(keys))
	_, err := s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		for i, key := range keys {
			exists[i] = pipe.Exists(ctx, entryPath(s.name, key))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}

	var suspects []string
	for i, key := range keys {
		if exists[i].Val() == 0 {
			suspects = append(suspects, key)
		}
	}
	if len(suspects) == 0 {
		return keys, nil
	}

	removed := make([]*redis.Cmd, len(suspects))
	_, err = s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		for i, key := range suspects {
			removed[i] = unlinkDead.Eval(ctx, pipe, []string{rootSetPath(s.name), entryPath(s.name, key)}, key)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("keys: prune: %w", err)
	}

	gone := make(map[string]bool, len(suspects))
	for i, key := range suspects {
		if n, err := removed[i].Int64(); err == nil && n >= 0 {
			gone[key] = true
			s.dir.forget(key)
		}
	}

	live := make([]string, 0, len(keys)-len(gone))
	for _, key := range keys {
		if !gone[key] {
			live = append(live, key)
		}
	}
	if len(gone) > 0 {
		s.emit(ctx, EventPrune, observability.LevelVerbose, map[string]any{"pruned": len(gone)})
	}
	return live, nil
}

// Reset deletes every key of the store through Delete, then the root set
// and the unique id counters. Deletes run concurrently, bounded by
// WithConcurrency; the first failure cancels the rest.
func (s *Store) Reset(ctx context.Context) error {
	keys, err := s.client.Redis().SMembers(ctx, rootSetPath(s.name)).Result()
	if err != nil {
		return fmt.Errorf("reset: %w", backend.Classify(err))
	}

	p := pool.New().WithMaxGoroutines(s.opts.Concurrency).WithContext(ctx).WithCancelOnError()
	for _, key := range keys {
		p.Go(func(ctx context.Context) error {
			return s.Delete(ctx, key)
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	_, err = s.client.Pipeline(ctx, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, rootSetPath(s.name), idsPath(s.name))
	})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.dir.purge()

	s.emit(ctx, EventReset, observability.LevelInfo, map[string]any{"keys": len(keys)})
	return nil
}
