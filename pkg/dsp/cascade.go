package dsp

// Stages holds the intermediate outputs of the most recent Cascade.Process call.
type Stages struct {
	Bandpass   float64
	Derivative float64 // squared derivative
	Integrated float64
}

// Cascade is the QRS enhancement chain: 12-20 Hz bandpass, squared five-point
// derivative, then a 75 ms moving-average integrator. Every stage advances its delay
// line by exactly one sample per Process call. The first MovingAverageLength outputs
// reflect zero-initialised history.
type Cascade struct {
	highPass      *Biquad
	lowPass       *Biquad
	derivative    *FIR
	movingAverage *FIR

	last Stages
}

func NewCascade() *Cascade {
	derivative, _ := NewFIR(DerivativeTaps)
	movingAverage, _ := NewFIR(MovingAverageTaps(MovingAverageLength))

	return &Cascade{
		highPass:      NewBiquad(HighPass12Hz),
		lowPass:       NewBiquad(LowPass20Hz),
		derivative:    derivative,
		movingAverage: movingAverage,
	}
}

func (c *Cascade) Process(x float64) float64 {
	bp := c.lowPass.Process(c.highPass.Process(x))

	d := c.derivative.Process(bp)
	d *= d

	c.last = Stages{
		Bandpass:   bp,
		Derivative: d,
		Integrated: c.movingAverage.Process(d),
	}
	return c.last.Integrated
}

func (c *Cascade) Last() Stages {
	return c.last
}

func (c *Cascade) Reset() {
	c.highPass.Reset()
	c.lowPass.Reset()
	c.derivative.Reset()
	c.movingAverage.Reset()
	c.last = Stages{}
}
