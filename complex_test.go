package fractal

import (
	"math"
	"testing"
)

func TestComplexArithmetic(t *testing.T) {
	a := Complex{Re: 1, Im: 2}
	b := Complex{Re: 3, Im: -4}

	tests := []struct {
		name string
		got  Complex
		want Complex
	}{
		{"add", a.Add(b), Complex{Re: 4, Im: -2}},
		{"sub", a.Sub(b), Complex{Re: -2, Im: 6}},
		{"mul", a.Mul(b), Complex{Re: 11, Im: 2}},
		{"square of i", Complex{Im: 1}.Mul(Complex{Im: 1}), Complex{Re: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestComplexModSq(t *testing.T) {
	if got := (Complex{Re: 3, Im: 4}).ModSq(); got != 25 {
		t.Errorf("ModSq(3+4i) = %v, want 25", got)
	}
	if got := (Complex{Re: math.NaN()}).ModSq(); !math.IsNaN(got) {
		t.Errorf("ModSq(NaN) = %v, want NaN", got)
	}
}
