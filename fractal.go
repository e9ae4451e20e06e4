// Package fractal holds the data model shared by the escape-time renderer,
// the tile coordinator and the transports that carry tiles between them.
//
// A RenderRequest describes one image: a Viewport into the complex plane,
// the set family and the coloring parameters. The coordinator splits the
// image into RowBands, a Renderer turns each band into a TileResult, and the
// accepted results are delivered to a PixelSink.
package fractal

import "fmt"

// SetKind selects the quadratic escape-time family.
type SetKind uint8

const (
	Mandelbrot SetKind = iota
	Julia
)

func (k SetKind) String() string {
	switch k {
	case Mandelbrot:
		return "mandelbrot"
	case Julia:
		return "julia"
	default:
		return fmt.Sprintf("SetKind(%d)", uint8(k))
	}
}

// ParseSetKind is the inverse of SetKind.String.
func ParseSetKind(s string) (SetKind, error) {
	switch s {
	case "mandelbrot", "m":
		return Mandelbrot, nil
	case "julia", "j":
		return Julia, nil
	}
	return 0, fmt.Errorf("unknown set kind %q", s)
}

// Viewport maps a pixel raster onto a rectangle of the complex plane.
// The horizontal extent follows from the pixel aspect ratio.
type Viewport struct {
	CenterRe, CenterIm float64
	HeightInUnits      float64
	PixelWidth         int
	PixelHeight        int
}

// Center returns the plane coordinate at the middle of the raster.
func (v Viewport) Center() Complex {
	return Complex{Re: v.CenterRe, Im: v.CenterIm}
}

// WidthInUnits is HeightInUnits scaled by the pixel aspect ratio.
func (v Viewport) WidthInUnits() float64 {
	return v.HeightInUnits * float64(v.PixelWidth) / float64(v.PixelHeight)
}

// PixelSize is the side of one (square) pixel in plane units.
func (v Viewport) PixelSize() float64 {
	return v.HeightInUnits / float64(v.PixelHeight)
}

// Scaled returns the same plane rectangle sampled with factor times as many
// pixels in each direction.
func (v Viewport) Scaled(factor int) Viewport {
	v.PixelWidth *= factor
	v.PixelHeight *= factor
	return v
}

// GenerationID identifies one submitted render. IDs are assigned by a
// coordinator, increase monotonically and are never reused by it.
// The zero value means "not yet assigned".
type GenerationID uint64

// RenderRequest is the immutable description of one render.
type RenderRequest struct {
	Viewport Viewport
	Set      SetKind

	// JuliaConstant is the fixed c of the Julia recurrence. Ignored for Mandelbrot.
	JuliaConstant Complex

	MaxIterations int
	Hue           float64 // [0,1]
	Saturation    float64 // [0,1]

	// Supersampling multiplies the internal resolution; 1 disables it.
	Supersampling int

	Generation GenerationID
}

// Effective is the viewport tiles are actually computed at, with the
// supersampling factor applied.
func (r RenderRequest) Effective() Viewport {
	if r.Supersampling <= 1 {
		return r.Viewport
	}
	return r.Viewport.Scaled(r.Supersampling)
}

// RowBand is a contiguous range of pixel rows [StartRow, StartRow+RowCount).
type RowBand struct {
	StartRow int
	RowCount int
}

// End returns the first row after the band.
func (b RowBand) End() int {
	return b.StartRow + b.RowCount
}

func (b RowBand) String() string {
	return fmt.Sprintf("rows[%d:%d)", b.StartRow, b.End())
}

// TileResult is the RGBA8 output of one band, row-major, with row 0 of
// Pixels corresponding to pixel row StartRow.
type TileResult struct {
	Generation GenerationID
	StartRow   int
	RowCount   int
	Width      int
	Pixels     []byte
}

// Band returns the rows covered by the tile.
func (t TileResult) Band() RowBand {
	return RowBand{StartRow: t.StartRow, RowCount: t.RowCount}
}

// CheckShape reports whether the tile's buffer matches the band it claims to
// cover for an image of the given width.
func (t TileResult) CheckShape(band RowBand, width int) error {
	if t.StartRow != band.StartRow || t.RowCount != band.RowCount {
		return fmt.Errorf("%w: got %s, want %s", ErrMalformedTile, t.Band(), band)
	}
	if t.Width != width {
		return fmt.Errorf("%w: width %d, want %d", ErrMalformedTile, t.Width, width)
	}
	if want := 4 * width * band.RowCount; len(t.Pixels) != want {
		return fmt.Errorf("%w: %d pixel bytes, want %d", ErrMalformedTile, len(t.Pixels), want)
	}
	return nil
}
