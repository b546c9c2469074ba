package compression

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Frame header values. Payloads too small or too random to benefit from
// zstd are stored raw behind a one byte header so Decompress always knows
// what it is looking at.
const (
	frameRaw  byte = 0
	frameZstd byte = 1

	minCompressSize = 128
)

var ErrBadFrame = errors.New("compression: bad frame")

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewCompressor(level int) (*Compressor, error) {
	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Compress returns a framed payload. EncodeAll and DecodeAll are safe for
// concurrent use, so one Compressor can serve every goroutine.
func (c *Compressor) Compress(data []byte) []byte {
	if len(data) >= minCompressSize {
		out := make([]byte, 1, len(data)/2+1)
		out[0] = frameZstd
		out = c.encoder.EncodeAll(data, out)
		if len(out) < len(data)+1 {
			return out
		}
	}

	out := make([]byte, len(data)+1)
	out[0] = frameRaw
	copy(out[1:], data)
	return out
}

func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadFrame
	}

	switch data[0] {
	case frameRaw:
		return data[1:], nil
	case frameZstd:
		out, err := c.decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown header %#x", ErrBadFrame, data[0])
	}
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
