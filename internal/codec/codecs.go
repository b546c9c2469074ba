package codec

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"reflect"

	"github.com/busgps/datastore/internal/compression"
	"github.com/vmihailenco/msgpack/v5"
)

type identityCodec struct{}

func (identityCodec) Encode(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case nil:
		return []byte{}, nil
	default:
		return nil, fmt.Errorf("identity accepts []byte or string, got %T", v)
	}
}

func (identityCodec) Decode(data []byte, v any) error {
	switch t := v.(type) {
	case *[]byte:
		*t = append([]byte(nil), data...)
	case *string:
		*t = string(data)
	case *any:
		*t = append([]byte(nil), data...)
	default:
		return fmt.Errorf("identity decodes into *[]byte, *string or *any, got %T", v)
	}
	return nil
}

type plainCodec struct{}

func (plainCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (plainCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

type compressedCodec struct {
	c *compression.Compressor
}

func (cc compressedCodec) Encode(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return cc.c.Compress(raw), nil
}

func (cc compressedCodec) Decode(data []byte, v any) error {
	raw, err := cc.c.Decompress(data)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(raw, v)
}

// envelope carries a work unit through gob as an interface value, so the
// concrete type and with it its methods survive the trip.
type envelope struct {
	Unit any
}

// RegisterWorkUnit makes the concrete type of unit transportable by the Code
// codec. It must be called by both producers and consumers, typically from
// an init function.
func RegisterWorkUnit(unit any) {
	gob.Register(unit)
}

type codeCodec struct{}

func (codeCodec) Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, errors.New("code: nil work unit")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Unit: v}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (codeCodec) Decode(data []byte, v any) error {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return err
	}
	if env.Unit == nil {
		return errors.New("code: empty envelope")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("code: decode target must be a non-nil pointer, got %T", v)
	}
	unit := reflect.ValueOf(env.Unit)
	target := rv.Elem()
	if !unit.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("code: %s is not assignable to %s", unit.Type(), target.Type())
	}
	target.Set(unit)
	return nil
}
