package modem

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

// singularityTol is how close 1-(2βt)² may get to zero before the
// raised-cosine analytic limit replaces the direct formula.
const singularityTol = 1e-10

// DesignLowpass builds a Hamming-windowed sinc low-pass filter.
// cutoff is a fraction of the Nyquist rate in (0, 1). The taps are scaled
// for unit gain at DC (they sum to 1); they are not energy-normalized.
func DesignLowpass(numTaps int, cutoff float64) ([]float64, error) {
	if numTaps <= 0 || numTaps%2 == 0 {
		return nil, &FilterDesignError{Design: "lowpass", Param: "taps", Value: float64(numTaps), Reason: "must be positive and odd"}
	}
	if math.IsNaN(cutoff) || cutoff <= 0 || cutoff >= 1 {
		return nil, &FilterDesignError{Design: "lowpass", Param: "cutoff", Value: cutoff, Reason: "must lie in (0, 1)"}
	}

	w := window.Hamming(numTaps)
	center := float64(numTaps-1) / 2
	taps := make([]float64, numTaps)
	var sum float64
	for n := range taps {
		m := float64(n) - center
		taps[n] = cutoff * Sinc(cutoff*m) * w[n]
		sum += taps[n]
	}
	for n := range taps {
		taps[n] /= sum
	}
	return taps, nil
}

// DesignRaisedCosine builds span*sps+1 raised-cosine taps over
// t ∈ [-span/2, span/2] symbol periods, normalized to unit energy.
// beta must lie in [0, 1]; beta = 0 yields a plain sinc pulse.
func DesignRaisedCosine(beta float64, sps, span int) ([]float64, error) {
	if math.IsNaN(beta) || beta < 0 || beta > 1 {
		return nil, &FilterDesignError{Design: "raised-cosine", Param: "rolloff", Value: beta, Reason: "must lie in [0, 1]"}
	}
	if sps <= 0 {
		return nil, &FilterDesignError{Design: "raised-cosine", Param: "sps", Value: float64(sps), Reason: "must be positive"}
	}
	if span <= 0 {
		return nil, &FilterDesignError{Design: "raised-cosine", Param: "span", Value: float64(span), Reason: "must be positive"}
	}

	taps := raisedCosineImpulse(beta, sps, span)
	e := Energy(taps)
	if e == 0 || !isFinite(e) {
		return nil, &FilterDesignError{Design: "raised-cosine", Param: "energy", Value: e, Reason: "cannot be normalized"}
	}
	norm := math.Sqrt(e)
	for i := range taps {
		taps[i] /= norm
	}
	return taps, nil
}

// raisedCosineImpulse evaluates the unnormalized pulse. Sample times are
// computed from the integer offset so that h[i] == h[N-1-i] exactly.
func raisedCosineImpulse(beta float64, sps, span int) []float64 {
	n := span*sps + 1
	half := (n - 1) / 2
	taps := make([]float64, n)
	for i := range taps {
		t := float64(i-half) / float64(sps)
		x := 2 * beta * t
		den := 1 - x*x
		if beta > 0 && math.Abs(den) < singularityTol {
			taps[i] = math.Pi / 4 * Sinc(1/(2*beta))
			continue
		}
		taps[i] = Sinc(t) * math.Cos(math.Pi*beta*t) / den
	}
	return taps
}
