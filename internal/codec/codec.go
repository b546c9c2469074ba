// Package codec implements the fixed table of value encodings a store can
// record for a key.
//
// The table is closed: an ID is written into every directory entry, so the
// numbering is part of the persisted format and must never be reordered.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/busgps/datastore/internal/compression"
)

// ID names an encoding. It is persisted in directory entries.
type ID int

const (
	Identity   ID = 0 // raw bytes or text, unchanged
	Plain      ID = 1 // MessagePack
	Compressed ID = 2 // MessagePack followed by zstd
	Code       ID = 3 // gob envelope around a registered work unit
)

var (
	ErrEncode  = errors.New("codec: encode failed")
	ErrDecode  = errors.New("codec: decode failed")
	ErrUnknown = errors.New("codec: unknown id")
)

// Codec turns in-process values into bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

func (id ID) String() string {
	switch id {
	case Identity:
		return "identity"
	case Plain:
		return "plain"
	case Compressed:
		return "compressed"
	case Code:
		return "code"
	default:
		return "codec(" + strconv.Itoa(int(id)) + ")"
	}
}

func (id ID) Valid() bool {
	return id >= Identity && id <= Code
}

// Parse maps a codec name back to its ID.
func Parse(name string) (ID, error) {
	for id := Identity; id <= Code; id++ {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

var compressor = sync.OnceValues(func() (*compression.Compressor, error) {
	return compression.NewCompressor(2)
})

// Lookup returns the codec registered under id.
func Lookup(id ID) (Codec, error) {
	switch id {
	case Identity:
		return identityCodec{}, nil
	case Plain:
		return plainCodec{}, nil
	case Compressed:
		c, err := compressor()
		if err != nil {
			return nil, fmt.Errorf("codec: init compressor: %w", err)
		}
		return compressedCodec{c: c}, nil
	case Code:
		return codeCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(id))
	}
}

// Encode looks up id and encodes v, wrapping every failure in ErrEncode.
func Encode(id ID, v any) ([]byte, error) {
	c, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	data, err := c.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, id, err)
	}
	return data, nil
}

// Decode looks up id and decodes data into v, wrapping every failure in
// ErrDecode.
func Decode(id ID, data []byte, v any) error {
	c, err := Lookup(id)
	if err != nil {
		return err
	}
	if err := c.Decode(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, id, err)
	}
	return nil
}
