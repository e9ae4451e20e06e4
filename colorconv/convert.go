package colorconv

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBToHSL returns hue, saturation and lightness in [0,1].
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	h, s, l = fromBytes(r, g, b).Hsl()
	return normHue(h), s, l
}

// RGBToHSV returns hue, saturation and value in [0,1].
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	h, s, v = fromBytes(r, g, b).Hsv()
	return normHue(h), s, v
}

// HSVToRGB converts hue, saturation and value in [0,1] to 8-bit channels.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	return colorful.Hsv(h*360, s, v).Clamped().RGB255()
}

// ParseHex parses "#rrggbb" or "#rgb" and returns its hue and saturation in
// the HSL model, the two parameters the renderer keeps fixed per image.
func ParseHex(s string) (hue, sat float64, err error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse color %q: %w", s, err)
	}
	h, sat, _ := c.Hsl()
	return normHue(h), sat, nil
}

func fromBytes(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// normHue maps a hue in degrees to [0,1).
func normHue(deg float64) float64 {
	if math.IsNaN(deg) {
		return 0
	}
	h := math.Mod(deg, 360) / 360
	if h < 0 {
		h += 1
	}
	return h
}
