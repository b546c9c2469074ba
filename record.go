package datastore

import (
	"fmt"
	"strconv"

	"github.com/busgps/datastore/internal/codec"
)

// Kind is the engine structure behind a key.
type Kind int

const (
	KindValue Kind = iota // chunked scalar
	KindSet               // engine set at the data path
	KindQueue             // engine list at the data path
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindSet:
		return "set"
	case KindQueue:
		return "queue"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// KeyRecord describes where and how the value of one external key is
// stored. For values, Chunks is Size / ChunkSize; a non-empty tail of
// Size % ChunkSize bytes lives at index Chunks.
type KeyRecord struct {
	DataPath string
	Size     int64
	Codec    Codec
	Chunks   int64
	Kind     Kind
}

// Directory entry hash fields.
const (
	fieldData   = "data"
	fieldSize   = "size"
	fieldCodec  = "codec"
	fieldChunks = "chunks"
	fieldKind   = "kind"
)

var recordFields = []string{fieldData, fieldSize, fieldCodec, fieldChunks, fieldKind}

func newValueRecord(path string, size int, c Codec) KeyRecord {
	return KeyRecord{
		DataPath: path,
		Size:     int64(size),
		Codec:    c,
		Chunks:   int64(size) / ChunkSize,
		Kind:     KindValue,
	}
}

// Tail is the size of the final partial chunk, zero when the value ends on
// a chunk boundary.
func (r KeyRecord) Tail() int64 {
	return r.Size % ChunkSize
}

// chunkKeys is the number of chunk keys the value occupies.
func (r KeyRecord) chunkKeys() int64 {
	if r.Kind != KindValue {
		return 0
	}
	if r.Tail() > 0 {
		return r.Chunks + 1
	}
	return r.Chunks
}

// dataKeys lists every engine key holding data for the record.
func (r KeyRecord) dataKeys() []string {
	if r.Kind != KindValue {
		return []string{r.DataPath}
	}
	n := r.chunkKeys()
	keys := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		keys = append(keys, chunkPath(r.DataPath, i))
	}
	return keys
}

func (r KeyRecord) hashValues() []any {
	return []any{
		fieldData, r.DataPath,
		fieldSize, r.Size,
		fieldCodec, int(r.Codec),
		fieldChunks, r.Chunks,
		fieldKind, int(r.Kind),
	}
}

// parseRecord decodes an HMGET reply over recordFields. found is false when
// the entry does not exist.
func parseRecord(vals []any) (rec KeyRecord, found bool, err error) {
	if len(vals) != len(recordFields) || vals[0] == nil {
		return KeyRecord{}, false, nil
	}

	str := func(i int) (string, error) {
		s, ok := vals[i].(string)
		if !ok {
			return "", fmt.Errorf("%w: field %s missing", ErrCorrupt, recordFields[i])
		}
		return s, nil
	}
	num := func(i int) (int64, error) {
		s, err := str(i)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: field %s: %v", ErrCorrupt, recordFields[i], err)
		}
		return n, nil
	}

	if rec.DataPath, err = str(0); err != nil {
		return KeyRecord{}, false, err
	}
	if rec.Size, err = num(1); err != nil {
		return KeyRecord{}, false, err
	}
	c, err := num(2)
	if err != nil {
		return KeyRecord{}, false, err
	}
	rec.Codec = Codec(c)
	if !rec.Codec.Valid() {
		return KeyRecord{}, false, fmt.Errorf("%w: %w", ErrCorrupt, codec.ErrUnknown)
	}
	if rec.Chunks, err = num(3); err != nil {
		return KeyRecord{}, false, err
	}
	// a missing kind reads as a plain value
	if vals[4] != nil {
		k, err := num(4)
		if err != nil {
			return KeyRecord{}, false, err
		}
		rec.Kind = Kind(k)
	}
	return rec, true, nil
}
