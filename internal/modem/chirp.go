package modem

import (
	"math"
	"math/cmplx"
)

// ChirpConfig describes a linear-FM sweep from StartFreq to StartFreq+Bandwidth
// over Duration seconds.
type ChirpConfig struct {
	SampleRate float64 // Hz
	Duration   float64 // s
	Bandwidth  float64 // Hz
	StartFreq  float64 // Hz
}

func (c ChirpConfig) validate() error {
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		return &ParamError{Stage: StageChirp, Param: "sample_rate", Value: c.SampleRate, Reason: "must be positive"}
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return &ParamError{Stage: StageChirp, Param: "duration", Value: c.Duration, Reason: "must be positive"}
	}
	if !(c.Bandwidth >= 0) || math.IsInf(c.Bandwidth, 0) {
		return &ParamError{Stage: StageChirp, Param: "bandwidth", Value: c.Bandwidth, Reason: "must not be negative"}
	}
	if !isFinite(c.StartFreq) {
		return &ParamError{Stage: StageChirp, Param: "start_freq", Value: c.StartFreq, Reason: "must be finite"}
	}
	return nil
}

// Rate returns the sweep rate K = B/T in Hz/s.
func (c ChirpConfig) Rate() float64 {
	return c.Bandwidth / c.Duration
}

// NumSamples returns the count of instants t = i/fs with t < Duration.
// A product Duration*SampleRate within 1e-9 of an integer is taken as that
// integer so that 10 µs at 1 GHz gives exactly 10000 samples.
func (c ChirpConfig) NumSamples() int {
	x := c.Duration * c.SampleRate
	r := math.Round(x)
	if math.Abs(x-r) <= 1e-9*math.Max(1, x) {
		return int(r)
	}
	return int(math.Ceil(x))
}

// Phase returns φ(t) = 2π(f0·t + K·t²/2) at every sample instant.
func (c ChirpConfig) Phase() ([]float64, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	k := c.Rate()
	phase := make([]float64, c.NumSamples())
	for i := range phase {
		t := float64(i) / c.SampleRate
		phase[i] = 2 * math.Pi * (c.StartFreq*t + 0.5*k*t*t)
	}
	return phase, nil
}

// New generates the complex exponential exp(iφ(t)): I = cos φ, Q = sin φ.
func (c ChirpConfig) New() (Waveform, error) {
	phase, err := c.Phase()
	if err != nil {
		return Waveform{}, err
	}
	samples := make([]complex128, len(phase))
	for i, p := range phase {
		samples[i] = cmplx.Exp(complex(0, p))
	}
	return Waveform{Samples: samples, SampleRate: c.SampleRate}, nil
}

// InstantaneousFrequency differentiates phase numerically and returns Hz.
func InstantaneousFrequency(phase []float64, sampleRate float64) []float64 {
	freq := Gradient(phase)
	scale := sampleRate / (2 * math.Pi)
	for i := range freq {
		freq[i] *= scale
	}
	return freq
}
