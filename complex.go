package fractal

// Complex is a point of the complex plane.
type Complex struct {
	Re, Im float64
}

func (a Complex) Add(b Complex) Complex {
	return Complex{Re: a.Re + b.Re, Im: a.Im + b.Im}
}

func (a Complex) Sub(b Complex) Complex {
	return Complex{Re: a.Re - b.Re, Im: a.Im - b.Im}
}

func (a Complex) Mul(b Complex) Complex {
	return Complex{
		Re: a.Re*b.Re - a.Im*b.Im,
		Im: a.Re*b.Im + a.Im*b.Re,
	}
}

// ModSq returns |a|², which avoids the square root of the modulus.
func (a Complex) ModSq() float64 {
	return a.Re*a.Re + a.Im*a.Im
}
