package dsp

// Conditioner removes baseline drift with a running mean and suppresses 60 Hz mains
// interference. It runs in the processing stage ahead of the cascade.
type Conditioner struct {
	sum   float64
	count uint64
	notch *Biquad
}

func NewConditioner() *Conditioner {
	return &Conditioner{notch: NewBiquad(Notch60Hz)}
}

func (c *Conditioner) Process(x float64) float64 {
	c.sum += x
	c.count++
	return c.notch.Process(x - c.sum/float64(c.count))
}

func (c *Conditioner) Reset() {
	c.sum = 0
	c.count = 0
	c.notch.Reset()
}
