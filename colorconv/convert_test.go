package colorconv

import (
	"math"
	"testing"
)

func TestRGBToHSLRoundTrip(t *testing.T) {
	colors := [][3]uint8{
		{255, 0, 0},
		{12, 200, 99},
		{58, 58, 110},
		{128, 128, 128},
	}
	for _, c := range colors {
		h, s, l := RGBToHSL(c[0], c[1], c[2])
		var out [3]uint8
		HSLToRGB(h, s, l, &out)
		if absDiff(out[0], c[0]) > 1 || absDiff(out[1], c[1]) > 1 || absDiff(out[2], c[2]) > 1 {
			t.Errorf("HSL round trip of %v = %v", c, out)
		}
	}
}

func TestRGBToHSVRoundTrip(t *testing.T) {
	for _, c := range [][3]uint8{{255, 255, 0}, {10, 20, 30}, {0, 0, 0}} {
		h, s, v := RGBToHSV(c[0], c[1], c[2])
		r, g, b := HSVToRGB(h, s, v)
		if absDiff(r, c[0]) > 1 || absDiff(g, c[1]) > 1 || absDiff(b, c[2]) > 1 {
			t.Errorf("HSV round trip of %v = [%d %d %d]", c, r, g, b)
		}
	}
}

func TestParseHex(t *testing.T) {
	h, s, err := ParseHex("#0000ff")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(h-2.0/3.0) > 1e-9 || math.Abs(s-1) > 1e-9 {
		t.Errorf("ParseHex(#0000ff) = %v, %v, want 0.667, 1", h, s)
	}
	if _, _, err := ParseHex("blue"); err == nil {
		t.Error("ParseHex(blue) should fail")
	}
}
