// Package render implements the escape-time kernel and the row-band tile
// generator for the Mandelbrot and Julia sets.
package render

import (
	"math"

	fractal "github.com/marben/dist_fractal"
	"github.com/marben/dist_fractal/colorconv"
)

// bailout is the squared escape radius. Radius 2 is sufficient for the
// quadratic family: once |z| > 2 the orbit diverges.
const bailout = 4.0

// Escape iterates z = z² + c starting from z, for at most maxIterations
// steps. It returns the 1-indexed iteration at which |z|² first exceeded the
// bailout, or maxIterations and escaped == false when it never did.
func Escape(z, c fractal.Complex, maxIterations int) (n int, escaped bool) {
	for n = 1; n <= maxIterations; n++ {
		z = z.Mul(z).Add(c)
		if z.ModSq() > bailout {
			return n, true
		}
	}
	return maxIterations, false
}

// EscapeAt runs the kernel for the plane position p under the request's set
// family. Mandelbrot varies c and starts at 0; Julia starts at p with the
// fixed constant.
func EscapeAt(req *fractal.RenderRequest, p fractal.Complex) (n int, escaped bool) {
	if req.Set == fractal.Julia {
		return Escape(p, req.JuliaConstant, req.MaxIterations)
	}
	return Escape(fractal.Complex{}, p, req.MaxIterations)
}

// Lightness maps an escape count to HSL lightness. Points that never
// escaped are black. Square root spreads contrast out near the set boundary;
// a point escaping on the first iteration also maps to 0.
func Lightness(n int, escaped bool, maxIterations int) float64 {
	if !escaped {
		return 0
	}
	colorIndex := n - 1
	return math.Sqrt(float64(colorIndex) / float64(maxIterations-1))
}

// Shade writes the opaque RGBA color of an escape count into px[0:4].
// rgb is scratch space reused across calls.
func Shade(req *fractal.RenderRequest, n int, escaped bool, rgb *[3]uint8, px []byte) {
	colorconv.HSLToRGB(req.Hue, req.Saturation, Lightness(n, escaped, req.MaxIterations), rgb)
	px[0], px[1], px[2], px[3] = rgb[0], rgb[1], rgb[2], 255
}
