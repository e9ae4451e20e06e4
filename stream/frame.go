// Package stream carries accepted tiles to a browser over a websocket.
//
// Each tile is one binary message: a little-endian header followed by the
// zstd-compressed RGBA rows.
//
//	offset size field
//	0      4    magic "FRT1"
//	4      8    generation
//	12     4    start row
//	16     4    row count
//	20     4    width in pixels
//	24     -    zstd RGBA, 4*width*rowCount bytes once inflated
//
// Control and error messages are JSON text messages, see Message.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/internal/zpix"
)

const (
	// Magic starts every tile frame.
	Magic uint32 = 'F' | 'R'<<8 | 'T'<<16 | '1'<<24
	// HeaderSize is the length of the fixed frame header.
	HeaderSize = 24
)

// ErrBadFrame reports a binary message that is not a tile frame.
var ErrBadFrame = errors.New("bad tile frame")

// EncodeFrame serializes res into one binary message.
func EncodeFrame(res fractal.TileResult) []byte {
	z := zpix.Compress(res.Pixels)
	b := make([]byte, HeaderSize, HeaderSize+len(z))
	binary.LittleEndian.PutUint32(b[0:], Magic)
	binary.LittleEndian.PutUint64(b[4:], uint64(res.Generation))
	binary.LittleEndian.PutUint32(b[12:], uint32(res.StartRow))
	binary.LittleEndian.PutUint32(b[16:], uint32(res.RowCount))
	binary.LittleEndian.PutUint32(b[20:], uint32(res.Width))
	return append(b, z...)
}

// DecodeFrame parses a message produced by EncodeFrame.
func DecodeFrame(b []byte) (fractal.TileResult, error) {
	if len(b) < HeaderSize {
		return fractal.TileResult{}, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:]); m != Magic {
		return fractal.TileResult{}, fmt.Errorf("%w: magic %#x", ErrBadFrame, m)
	}
	rows, width := binary.LittleEndian.Uint32(b[16:]), binary.LittleEndian.Uint32(b[20:])
	size := 4 * uint64(width) * uint64(rows)
	if size > zpix.MaxTileBytes {
		return fractal.TileResult{}, fmt.Errorf("%w: %dx%d tile exceeds %d bytes", ErrBadFrame, width, rows, zpix.MaxTileBytes)
	}
	res := fractal.TileResult{
		Generation: fractal.GenerationID(binary.LittleEndian.Uint64(b[4:])),
		StartRow:   int(binary.LittleEndian.Uint32(b[12:])),
		RowCount:   int(rows),
		Width:      int(width),
	}
	pix, err := zpix.Decompress(b[HeaderSize:], int(size))
	if err != nil {
		return fractal.TileResult{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	res.Pixels = pix
	return res, nil
}
