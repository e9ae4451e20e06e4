package render

import (
	"context"

	fractal "github.com/marben/dist_fractal"
)

// Transform is the affine map between pixel indices and plane coordinates
// of a viewport. Samples are taken at pixel centers; plane Y grows upward
// while pixel Y grows downward.
type Transform struct {
	TopLeft fractal.Complex // plane coordinate of the center of pixel (0,0)
	SizeX   float64
	SizeY   float64
}

// NewTransform derives the pixel/plane transform of v.
func NewTransform(v fractal.Viewport) Transform {
	w, h := v.WidthInUnits(), v.HeightInUnits
	sx := w / float64(v.PixelWidth)
	sy := h / float64(v.PixelHeight)
	return Transform{
		TopLeft: fractal.Complex{
			Re: v.CenterRe - w/2 + sx/2,
			Im: v.CenterIm + h/2 - sy/2,
		},
		SizeX: sx,
		SizeY: sy,
	}
}

// PixelToPlane returns the plane coordinate sampled for pixel (x, y).
func (t Transform) PixelToPlane(x, y float64) fractal.Complex {
	return fractal.Complex{
		Re: t.TopLeft.Re + x*t.SizeX,
		Im: t.TopLeft.Im - y*t.SizeY,
	}
}

// PlaneToPixel is the inverse of PixelToPlane.
func (t Transform) PlaneToPixel(p fractal.Complex) (x, y float64) {
	return (p.Re - t.TopLeft.Re) / t.SizeX, (t.TopLeft.Im - p.Im) / t.SizeY
}

// TileBuffer renders the rows of band at the request's effective
// resolution into a new RGBA8 buffer of 4*width*band.RowCount bytes.
// Invalid requests and bands outside the image are rejected before any
// allocation.
//
// It has no shared state and may run concurrently with other calls. ctx is
// checked between rows; a cancelled render returns ctx.Err().
func TileBuffer(ctx context.Context, req fractal.RenderRequest, band fractal.RowBand) ([]byte, error) {
	if err := req.CheckBand(band); err != nil {
		return nil, err
	}
	v := req.Effective()

	t := NewTransform(v)
	stride := 4 * v.PixelWidth
	buf := make([]byte, stride*band.RowCount)
	var rgb [3]uint8

	for row := range band.RowCount {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y := band.StartRow + row
		im := t.TopLeft.Im - float64(y)*t.SizeY
		line := buf[row*stride : (row+1)*stride]
		for x := range v.PixelWidth {
			p := fractal.Complex{Re: t.TopLeft.Re + float64(x)*t.SizeX, Im: im}
			n, escaped := EscapeAt(&req, p)
			Shade(&req, n, escaped, &rgb, line[4*x:4*x+4])
		}
	}
	return buf, nil
}
