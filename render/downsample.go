package render

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Downsample scales a supersampled image down by factor in each direction.
// A factor of 1 or less returns src unchanged.
func Downsample(src *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
