package dsp

import "math"

const (
	ADCResolution = 1 << 12
	ADCMaxCode    = ADCResolution - 1

	ADCReference = 3.3  // converter full scale [V]
	InputMax     = 5.5  // front-end input range is ±InputMax [V]
	inputOffset  = 1.65 // front-end level shift [V]
)

var adcLookup = buildLookup()

func buildLookup() [ADCResolution]float64 {
	var lut [ADCResolution]float64
	gain := ADCReference / (2 * InputMax)
	for code := range lut {
		vOut := float64(code) * ADCReference / ADCMaxCode
		lut[code] = (vOut - inputOffset) / gain
	}
	return lut
}

// Volts converts a 12-bit converter code to the front-end input voltage. Codes above
// ADCMaxCode are clamped.
func Volts(code uint16) float64 {
	if code > ADCMaxCode {
		code = ADCMaxCode
	}
	return adcLookup[code]
}

// Code is the inverse of Volts, rounding to the nearest code and clamping to the range.
func Code(volts float64) uint16 {
	gain := ADCReference / (2 * InputMax)
	c := math.Round((volts*gain + inputOffset) * ADCMaxCode / ADCReference)
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > ADCMaxCode:
		return ADCMaxCode
	}
	return uint16(c)
}
