package modem

import "math"

// Sinc is the normalized sinc sin(πx)/(πx), with Sinc(0) = 1.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// Energy returns the sum of squared taps.
func Energy(taps []float64) float64 {
	var e float64
	for _, h := range taps {
		e += h * h
	}
	return e
}

// MeanEnergy returns the average |s|² of a symbol stream, 0 for an empty one.
func MeanEnergy(symbols []complex128) float64 {
	if len(symbols) == 0 {
		return 0
	}
	var e float64
	for _, s := range symbols {
		e += real(s)*real(s) + imag(s)*imag(s)
	}
	return e / float64(len(symbols))
}

// Gradient estimates dx/di with central differences in the interior and
// one-sided differences at both ends.
func Gradient(x []float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	out[0] = x[1] - x[0]
	out[n-1] = x[n-1] - x[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (x[i+1] - x[i-1]) / 2
	}
	return out
}

func realParts(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = real(v)
	}
	return out
}

func imagParts(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = imag(v)
	}
	return out
}

// minMax returns the extremes of a non-empty slice.
func minMax(x []float64) (lo, hi float64) {
	lo, hi = x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
