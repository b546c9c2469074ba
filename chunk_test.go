package datastore

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		chunks int64
		tail   int64
		keys   int
	}{
		{"empty", 0, 0, 0, 0},
		{"one byte", 1, 0, 1, 1},
		{"exact chunk", ChunkSize, 1, 0, 1},
		{"chunk plus one", ChunkSize + 1, 1, 1, 2},
		{"three exact", 3 * ChunkSize, 3, 0, 3},
		{"three and a half", 3*ChunkSize + ChunkSize/2, 3, ChunkSize / 2, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Repeat([]byte{0xab}, tt.size)
			rec := newValueRecord("p", tt.size, CodecIdentity)

			assert.Equal(t, tt.chunks, rec.Chunks)
			assert.Equal(t, tt.tail, rec.Tail())
			assert.Equal(t, int64(tt.keys), rec.chunkKeys())

			parts := splitChunks(data)
			require.Len(t, parts, tt.keys)
			for i, p := range parts {
				if int64(i) < rec.Chunks {
					assert.Len(t, p, ChunkSize)
				} else {
					assert.Len(t, p, int(rec.Tail()))
				}
			}

			joined, err := joinChunks(rec, parts)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, joined))
		})
	}
}

func TestJoinChunksDetectsShortRead(t *testing.T) {
	rec := newValueRecord("p", ChunkSize+10, CodecIdentity)
	_, err := joinChunks(rec, [][]byte{make([]byte, ChunkSize)})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRecordHashRoundTrip(t *testing.T) {
	rec := newValueRecord("gps/data/abc", 3*ChunkSize+7, CodecCompressed)

	vals := rec.hashValues()
	reply := make([]any, 0, len(recordFields))
	for i := 1; i < len(vals); i += 2 {
		reply = append(reply, fmtAny(vals[i]))
	}

	got, found, err := parseRecord(reply)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)
	assert.Equal(t, []string{"gps/data/abc:0", "gps/data/abc:1", "gps/data/abc:2", "gps/data/abc:3"}, got.dataKeys())
}

func TestParseRecord(t *testing.T) {
	_, found, err := parseRecord([]any{nil, nil, nil, nil, nil})
	require.NoError(t, err)
	assert.False(t, found)

	rec, found, err := parseRecord([]any{"p", "0", "1", "0", nil})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, KindValue, rec.Kind)

	_, _, err = parseRecord([]any{"p", "x", "1", "0", "0"})
	assert.ErrorIs(t, err, ErrCorrupt)

	_, _, err = parseRecord([]any{"p", "1", "99", "0", "0"})
	assert.ErrorIs(t, err, ErrCorrupt)

	queue, found, err := parseRecord([]any{"p", "0", "2", "0", "2"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, KindQueue, queue.Kind)
	assert.Equal(t, []string{"p"}, queue.dataKeys())
}

func fmtAny(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return nil
	}
}
