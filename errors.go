package fractal

import (
	"errors"
	"fmt"
	"math"
)

// MaxPixels bounds the effective, supersampled pixel count of one request.
const MaxPixels = 64 << 20

var (
	// ErrInvalidRequest is wrapped by every ValidationError.
	ErrInvalidRequest = errors.New("invalid render request")

	// ErrMalformedTile means a renderer returned a buffer that does not match its band.
	ErrMalformedTile = errors.New("malformed tile")
)

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, format string, a ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Validate rejects non-finite centers and non-positive sizes.
func (v Viewport) Validate() error {
	switch {
	case !finite(v.CenterRe) || !finite(v.CenterIm):
		return invalid("center", "must be finite, got (%v, %v)", v.CenterRe, v.CenterIm)
	case !finite(v.HeightInUnits) || v.HeightInUnits <= 0:
		return invalid("height", "must be positive and finite, got %v", v.HeightInUnits)
	case v.PixelWidth <= 0:
		return invalid("width", "must be positive, got %d", v.PixelWidth)
	case v.PixelHeight <= 0:
		return invalid("pixelHeight", "must be positive, got %d", v.PixelHeight)
	}
	return nil
}

// Validate rejects requests that cannot be rendered faithfully.
// Values are never clamped.
func (r RenderRequest) Validate() error {
	if err := r.Viewport.Validate(); err != nil {
		return err
	}
	switch r.Set {
	case Mandelbrot:
	case Julia:
		if !finite(r.JuliaConstant.Re) || !finite(r.JuliaConstant.Im) {
			return invalid("juliaConstant", "must be finite, got (%v, %v)", r.JuliaConstant.Re, r.JuliaConstant.Im)
		}
	default:
		return invalid("set", "unknown kind %s", r.Set)
	}
	switch {
	case r.MaxIterations < 2:
		// lightness divides by MaxIterations-1
		return invalid("maxIterations", "must be at least 2, got %d", r.MaxIterations)
	case !finite(r.Hue) || r.Hue < 0 || r.Hue > 1:
		return invalid("hue", "must be in [0,1], got %v", r.Hue)
	case !finite(r.Saturation) || r.Saturation < 0 || r.Saturation > 1:
		return invalid("saturation", "must be in [0,1], got %v", r.Saturation)
	case r.Supersampling < 1:
		return invalid("supersampling", "must be at least 1, got %d", r.Supersampling)
	}
	return r.checkPixels()
}

// checkPixels rejects requests whose effective size exceeds MaxPixels. Every
// product is bounded before it is formed so none of them can overflow.
func (r RenderRequest) checkPixels() error {
	v, ss := r.Viewport, r.Supersampling
	if ss > MaxPixels || v.PixelWidth > MaxPixels/ss || v.PixelHeight > MaxPixels/ss {
		return invalid("supersampling", "%dx%d at %dx exceeds %d pixels", v.PixelWidth, v.PixelHeight, ss, MaxPixels)
	}
	w, h := v.PixelWidth*ss, v.PixelHeight*ss
	if w > MaxPixels/h {
		return invalid("width", "%dx%d exceeds %d pixels", w, h, MaxPixels)
	}
	return nil
}

// CheckBand validates r and reports whether band lies inside its effective image.
func (r RenderRequest) CheckBand(band RowBand) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if h := r.Effective().PixelHeight; band.StartRow < 0 || band.RowCount <= 0 || band.End() > h {
		return invalid("band", "%s outside image of %d rows", band, h)
	}
	return nil
}
