// Package params translates render requests to and from flat string maps,
// the form used for bookmarkable URLs and websocket control messages.
//
// Keys:
//
//	set          mandelbrot | julia
//	re, im       viewport center
//	height       viewport height in plane units
//	width        image width in pixels
//	pixelHeight  image height in pixels
//	iter         maximum iteration count
//	hue, sat     color hue and saturation in [0, 1]
//	ss           supersampling factor
//	jre, jim     Julia constant
package params

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"

	fractal "github.com/marben/dist_fractal"
)

// Keys lists every key Encode writes, in a stable order.
var Keys = []string{"set", "re", "im", "height", "width", "pixelHeight", "iter", "hue", "sat", "ss", "jre", "jim"}

// flat mirrors RenderRequest with one field per key.
type flat struct {
	Set         string  `koanf:"set"`
	Re          float64 `koanf:"re"`
	Im          float64 `koanf:"im"`
	Height      float64 `koanf:"height"`
	Width       int     `koanf:"width"`
	PixelHeight int     `koanf:"pixelHeight"`
	Iter        int     `koanf:"iter"`
	Hue         float64 `koanf:"hue"`
	Sat         float64 `koanf:"sat"`
	SS          int     `koanf:"ss"`
	JRe         float64 `koanf:"jre"`
	JIm         float64 `koanf:"jim"`
}

func fromRequest(r fractal.RenderRequest) flat {
	return flat{
		Set:         r.Set.String(),
		Re:          r.Viewport.CenterRe,
		Im:          r.Viewport.CenterIm,
		Height:      r.Viewport.HeightInUnits,
		Width:       r.Viewport.PixelWidth,
		PixelHeight: r.Viewport.PixelHeight,
		Iter:        r.MaxIterations,
		Hue:         r.Hue,
		Sat:         r.Saturation,
		SS:          r.Supersampling,
		JRe:         r.JuliaConstant.Re,
		JIm:         r.JuliaConstant.Im,
	}
}

func (f flat) request() (fractal.RenderRequest, error) {
	set, err := fractal.ParseSetKind(f.Set)
	if err != nil {
		return fractal.RenderRequest{}, &fractal.ValidationError{Field: "set", Reason: err.Error()}
	}
	return fractal.RenderRequest{
		Viewport: fractal.Viewport{
			CenterRe:      f.Re,
			CenterIm:      f.Im,
			HeightInUnits: f.Height,
			PixelWidth:    f.Width,
			PixelHeight:   f.PixelHeight,
		},
		Set:           set,
		JuliaConstant: fractal.Complex{Re: f.JRe, Im: f.JIm},
		MaxIterations: f.Iter,
		Hue:           f.Hue,
		Saturation:    f.Sat,
		Supersampling: f.SS,
	}, nil
}

// Decode overlays the keys present in m onto base and validates the result.
// Unknown keys are ignored. Values that do not parse, and requests that fail
// validation, produce an error wrapping fractal.ErrInvalidRequest.
func Decode(m map[string]string, base fractal.RenderRequest) (fractal.RenderRequest, error) {
	raw := make(map[string]interface{}, len(m))
	for key, v := range m {
		raw[key] = strings.TrimSpace(v)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, "."), nil); err != nil {
		return fractal.RenderRequest{}, fmt.Errorf("params: load: %w", err)
	}

	f := fromRequest(base)
	if err := k.Unmarshal("", &f); err != nil {
		return fractal.RenderRequest{}, fmt.Errorf("params: %w: %v", fractal.ErrInvalidRequest, err)
	}

	req, err := f.request()
	if err != nil {
		return fractal.RenderRequest{}, err
	}
	req.Generation = base.Generation
	if err := req.Validate(); err != nil {
		return fractal.RenderRequest{}, err
	}
	return req, nil
}

// Encode writes every parameter of r. The generation id is not persisted.
func Encode(r fractal.RenderRequest) map[string]string {
	f := fromRequest(r)
	return map[string]string{
		"set":         f.Set,
		"re":          formatFloat(f.Re),
		"im":          formatFloat(f.Im),
		"height":      formatFloat(f.Height),
		"width":       strconv.Itoa(f.Width),
		"pixelHeight": strconv.Itoa(f.PixelHeight),
		"iter":        strconv.Itoa(f.Iter),
		"hue":         formatFloat(f.Hue),
		"sat":         formatFloat(f.Sat),
		"ss":          strconv.Itoa(f.SS),
		"jre":         formatFloat(f.JRe),
		"jim":         formatFloat(f.JIm),
	}
}

// formatFloat uses the shortest form that parses back to the same value.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseQuery decodes a URL query or fragment such as "re=-0.75&im=0" (a
// leading '?' or '#' is allowed). Repeated keys keep their last value.
func ParseQuery(s string, base fractal.RenderRequest) (fractal.RenderRequest, error) {
	s = strings.TrimLeft(s, "?#")
	values, err := url.ParseQuery(s)
	if err != nil {
		return fractal.RenderRequest{}, fmt.Errorf("params: %w: %v", fractal.ErrInvalidRequest, err)
	}
	return Decode(FromValues(values), base)
}

// FromValues flattens url.Values, keeping the last value of each key.
func FromValues(values url.Values) map[string]string {
	m := make(map[string]string, len(values))
	for key, vs := range values {
		if len(vs) > 0 {
			m[key] = vs[len(vs)-1]
		}
	}
	return m
}

// Query encodes r as a URL query string with keys in Keys order.
func Query(r fractal.RenderRequest) string {
	m := Encode(r)
	var b strings.Builder
	for i, key := range Keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(m[key]))
	}
	return b.String()
}
