package datastore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, "gps/keys", rootSetPath("gps"))
	assert.Equal(t, "gps/keys/trips:2022", entryPath("gps", "trips:2022"))
	assert.Equal(t, "gps/ids", idsPath("gps"))
	assert.Equal(t, "gps/data/x:0", chunkPath("gps/data/x", 0))
	assert.Equal(t, "gps/data/x:12", chunkPath("gps/data/x", 12))
}

func TestDataPathIsDeterministic(t *testing.T) {
	a := dataPath("gps", "stops")
	b := dataPath("gps", "stops")
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "gps/data/"))

	assert.NotEqual(t, a, dataPath("gps", "stops2"))
	assert.NotEqual(t, a, dataPath("gps2", "stops"))
	// the separator keeps store/key splits apart
	assert.NotEqual(t, dataPath("ab", "c"), dataPath("a", "bc"))
}

func TestValidStoreName(t *testing.T) {
	assert.True(t, validStoreName("local"))
	assert.True(t, validStoreName("pipeline/2022-01"))
	assert.False(t, validStoreName(""))
	assert.False(t, validStoreName("two words"))
}
