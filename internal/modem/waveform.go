package modem

import "math"

// Waveform is a complex baseband sample sequence at a fixed sample rate.
// Real-only signals (BPSK) carry an all-zero quadrature channel.
type Waveform struct {
	Samples    []complex128
	SampleRate float64
}

// Len returns the number of samples.
func (w Waveform) Len() int {
	return len(w.Samples)
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / w.SampleRate
}

// I returns a copy of the in-phase channel.
func (w Waveform) I() []float64 {
	return realParts(w.Samples)
}

// Q returns a copy of the quadrature channel.
func (w Waveform) Q() []float64 {
	return imagParts(w.Samples)
}

// Peak returns the largest absolute I or Q component.
func (w Waveform) Peak() float64 {
	var peak float64
	for _, s := range w.Samples {
		if a := math.Abs(real(s)); a > peak {
			peak = a
		}
		if a := math.Abs(imag(s)); a > peak {
			peak = a
		}
	}
	return peak
}
