package datastore

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnEvent(_ context.Context, e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) count(typ EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func newTestRegistry(t *testing.T, mr *miniredis.Miniredis, opts ...Option) *Registry {
	t.Helper()
	reg := NewRegistry(append([]Option{WithAddr(mr.Addr())}, opts...)...)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := newTestRegistry(t, mr, opts...).Open(context.Background(), "test")
	require.NoError(t, err)
	return s, mr
}

// pattern returns n bytes that differ between neighbouring chunks.
func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/ChunkSize)
	}
	return b
}

func chunkCount(mr *miniredis.Miniredis, rec KeyRecord) int {
	n := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, rec.DataPath+":") {
			n++
		}
	}
	return n
}

func TestUniqueID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, want := range []string{"test#1", "test#2", "test#3"} {
		id, err := s.UniqueID(ctx, "test")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	id, err := s.UniqueID(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "other#1", id)

	_, err = s.UniqueID(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStat(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "blob", pattern(ChunkSize+10), WithCodec(CodecIdentity)))

	rec, err := s.Stat(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, KindValue, rec.Kind)
	assert.Equal(t, CodecIdentity, rec.Codec)
	assert.EqualValues(t, ChunkSize+10, rec.Size)
	assert.EqualValues(t, 1, rec.Chunks)
	assert.EqualValues(t, 10, rec.Tail())

	_, err = s.Stat(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreString(t *testing.T) {
	s, mr := newTestStore(t)
	assert.Equal(t, "test", s.Name())
	assert.Equal(t, "Store(test@"+mr.Addr()+"/0)", s.String())
}

func TestEventsReachObserver(t *testing.T) {
	obs := &recordingObserver{}
	s, _ := newTestStore(t, WithObserver(obs))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	var v string
	assert.ErrorIs(t, s.Get(ctx, "missing", &v), ErrNotFound)
	require.NoError(t, s.Delete(ctx, "k"))

	assert.Equal(t, 1, obs.count(EventSet))
	assert.Equal(t, 1, obs.count(EventMiss))
	assert.Equal(t, 1, obs.count(EventDelete))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for _, e := range obs.events {
		assert.Equal(t, "test", e.Source)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestEngineUnavailable(t *testing.T) {
	s, mr := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr.Close()

	var v string
	err := s.Get(ctx, "k", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = s.Set(ctx, "k", "v")
	require.Error(t, err)
}
