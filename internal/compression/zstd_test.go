package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompressor(t *testing.T) *Compressor {
	t.Helper()
	c, err := NewCompressor(2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCompressRoundTrip(t *testing.T) {
	c := newTestCompressor(t)

	for _, size := range []int{0, 1, minCompressSize - 1, minCompressSize, 64 << 10} {
		data := bytes.Repeat([]byte("stop;"), size/5+1)[:size]
		framed := c.Compress(data)

		got, err := c.Decompress(framed)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, len(data), len(got), "size %d", size)
		assert.True(t, bytes.Equal(data, got), "size %d", size)
	}
}

func TestCompressShrinksRepetitiveInput(t *testing.T) {
	c := newTestCompressor(t)

	data := bytes.Repeat([]byte("bus-42,-22.90,-43.17;"), 4096)
	framed := c.Compress(data)

	assert.Equal(t, frameZstd, framed[0])
	assert.Less(t, len(framed), len(data)/4)
}

func TestCompressSmallInputIsRaw(t *testing.T) {
	c := newTestCompressor(t)

	framed := c.Compress([]byte("tiny"))
	assert.Equal(t, []byte{frameRaw, 't', 'i', 'n', 'y'}, framed)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	c := newTestCompressor(t)

	_, err := c.Decompress(nil)
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = c.Decompress([]byte{0x7f, 1, 2})
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = c.Decompress([]byte{frameZstd, 1, 2, 3})
	assert.ErrorIs(t, err, ErrBadFrame)
}
