package dsp

// DisplayFilter is the 0.5-40 Hz bandpass applied to the waveform before it is drawn.
type DisplayFilter struct {
	highPass *Biquad
	lowPass  *Biquad
}

func NewDisplayFilter() *DisplayFilter {
	return &DisplayFilter{
		highPass: NewBiquad(HighPass05Hz),
		lowPass:  NewBiquad(LowPass40Hz),
	}
}

func (f *DisplayFilter) Process(x float64) float64 {
	return f.lowPass.Process(f.highPass.Process(x))
}

func (f *DisplayFilter) Reset() {
	f.highPass.Reset()
	f.lowPass.Reset()
}
