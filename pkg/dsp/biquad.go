package dsp

// BiquadCoefficients are normalised so a0 == 1; A1 and A2 carry their transfer-function
// sign, i.e. y[n] = B0*x[n] + B1*x[n-1] + B2*x[n-2] - A1*y[n-1] - A2*y[n-2].
type BiquadCoefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Biquad is a direct form I second-order section.
type Biquad struct {
	c BiquadCoefficients

	x1, x2 float64
	y1, y2 float64
}

func NewBiquad(c BiquadCoefficients) *Biquad {
	return &Biquad{c: c}
}

func (f *Biquad) Process(x float64) float64 {
	y := f.c.B0*x + f.c.B1*f.x1 + f.c.B2*f.x2 - f.c.A1*f.y1 - f.c.A2*f.y2

	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

func (f *Biquad) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}
