package message

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	encoderErr  error

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func sharedEncoder() (*zstd.Encoder, error) {
	encoderOnce.Do(func() {
		encoder, encoderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return encoder, encoderErr
}

func sharedDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	return decoder, decoderErr
}

// Compress applies the session's negotiated compression algorithm to data.
// "NONE" and the empty string are passthroughs. Per spec.md §9 Non-goals,
// compression failing to shrink the payload is not an error: the caller
// still sends the (possibly larger) compressed form, matching the spec's
// invariant that only decompress(compress(x)) == x is guaranteed.
func Compress(algorithm string, data []byte) ([]byte, error) {
	switch algorithm {
	case "", "NONE":
		return data, nil
	case "ZSTANDARD":
		enc, err := sharedEncoder()
		if err != nil {
			return nil, fmt.Errorf("message: zstd encoder: %w", err)
		}
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("message: unknown compression algorithm %q", algorithm)
	}
}

// Decompress reverses Compress.
func Decompress(algorithm string, data []byte) ([]byte, error) {
	switch algorithm {
	case "", "NONE":
		return data, nil
	case "ZSTANDARD":
		dec, err := sharedDecoder()
		if err != nil {
			return nil, fmt.Errorf("message: zstd decoder: %w", err)
		}
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("message: unknown compression algorithm %q", algorithm)
	}
}
