// Package colorconv converts between RGB and the cylindrical HSL/HSV models.
//
// HSLToRGB sits on the per-pixel path of the renderer and writes into a
// caller-supplied array instead of returning a value type with float
// channels. The remaining conversions are not hot and delegate to go-colorful.
package colorconv

// HSLToRGB converts hue, saturation and lightness, each in [0,1], into 8-bit
// RGB channels written to out. Zero saturation yields gray at lightness l.
func HSLToRGB(h, s, l float64, out *[3]uint8) {
	if s == 0 {
		v := toByte(l)
		out[0], out[1], out[2] = v, v, v
		return
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	out[0] = toByte(hueToRGB(p, q, h+1.0/3.0))
	out[1] = toByte(hueToRGB(p, q, h))
	out[2] = toByte(hueToRGB(p, q, h-1.0/3.0))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// toByte clamps v to [0,1] and maps it to [0,255] with rounding.
func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}
