// Package zpix compresses RGBA tile buffers with zstd for the wire.
package zpix

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// MaxTileBytes bounds the decompressed size of one tile.
const MaxTileBytes = 256 << 20

// Shared coders; EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxTileBytes), zstd.WithDecoderConcurrency(0))
)

// Compress returns the zstd frame of pix.
func Compress(pix []byte) []byte {
	if len(pix) == 0 {
		return nil
	}
	return encoder.EncodeAll(pix, make([]byte, 0, len(pix)/8))
}

// Decompress inflates data and checks that it holds exactly want bytes.
func Decompress(data []byte, want int) ([]byte, error) {
	if want < 0 || want > MaxTileBytes {
		return nil, fmt.Errorf("zpix: tile size %d out of range", want)
	}
	if len(data) == 0 {
		if want == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("zpix: empty payload, want %d bytes", want)
	}
	pix, err := decoder.DecodeAll(data, make([]byte, 0, want))
	if err != nil {
		return nil, fmt.Errorf("zpix: %w", err)
	}
	if len(pix) != want {
		return nil, fmt.Errorf("zpix: got %d bytes, want %d", len(pix), want)
	}
	return pix, nil
}
