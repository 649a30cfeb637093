package modem

import "fmt"

// ConvMode selects the convolution output convention.
//
// ConvFull keeps the whole linear convolution, len(x)+len(h)-1 samples, so
// symbol k peaks at k*S + (len(h)-1)/2. ConvSame keeps the len(x) samples
// centred on the full result, so symbol k peaks at k*S. The two outputs are
// offset by (len(h)-1)/2 samples.
type ConvMode int

const (
	ConvFull ConvMode = iota
	ConvSame
)

func (c ConvMode) String() string {
	if c == ConvSame {
		return "same"
	}
	return "full"
}

// Upsample places each symbol at the first position of a block of factor
// samples, zero-filling the rest. The result has len(symbols)*factor samples.
func Upsample(symbols []complex128, factor int) ([]complex128, error) {
	if factor <= 0 {
		return nil, &ParamError{Stage: StageShaper, Param: "upsample", Value: float64(factor), Reason: "must be positive"}
	}
	out := make([]complex128, len(symbols)*factor)
	for i, s := range symbols {
		out[i*factor] = s
	}
	return out, nil
}

// Convolve filters x with real taps h.
func Convolve(x []complex128, h []float64, mode ConvMode) []complex128 {
	if len(x) == 0 || len(h) == 0 {
		return []complex128{}
	}
	full := make([]complex128, len(x)+len(h)-1)
	for i, v := range x {
		if v == 0 {
			continue
		}
		for j, c := range h {
			full[i+j] += v * complex(c, 0)
		}
	}
	if mode == ConvFull {
		return full
	}
	start := (len(h) - 1) / 2
	out := make([]complex128, len(x))
	copy(out, full[start:])
	return out
}

// Shaper upsamples symbols by zero insertion and applies a pulse-shaping filter.
type Shaper struct {
	Taps             []float64
	SamplesPerSymbol int
	Mode             ConvMode
}

// NewShaper creates a pulse shaper.
func NewShaper(taps []float64, samplesPerSymbol int, mode ConvMode) (*Shaper, error) {
	if len(taps) == 0 {
		return nil, &ParamError{Stage: StageShaper, Param: "taps", Value: 0, Reason: "filter is empty"}
	}
	if samplesPerSymbol <= 0 {
		return nil, &ParamError{Stage: StageShaper, Param: "sps", Value: float64(samplesPerSymbol), Reason: "must be positive"}
	}
	return &Shaper{Taps: taps, SamplesPerSymbol: samplesPerSymbol, Mode: mode}, nil
}

// Shape returns the pulse-shaped waveform for symbols at sampleRate.
func (s *Shaper) Shape(symbols []complex128, sampleRate float64) (Waveform, error) {
	up, err := Upsample(symbols, s.SamplesPerSymbol)
	if err != nil {
		return Waveform{}, err
	}
	return Waveform{Samples: Convolve(up, s.Taps, s.Mode), SampleRate: sampleRate}, nil
}

// OutputLen returns the waveform length Shape produces for n symbols.
func (s *Shaper) OutputLen(n int) int {
	if n == 0 {
		return 0
	}
	if s.Mode == ConvSame {
		return n * s.SamplesPerSymbol
	}
	return n*s.SamplesPerSymbol + len(s.Taps) - 1
}

// GroupDelay is the offset in samples between a symbol's upsampled
// position and its filtered peak in the output.
func (s *Shaper) GroupDelay() int {
	if s.Mode == ConvSame {
		return 0
	}
	return (len(s.Taps) - 1) / 2
}

// SymbolInstants returns the sample index at which each of n symbols peaks.
func (s *Shaper) SymbolInstants(n int) []int {
	idx := make([]int, n)
	for k := range idx {
		idx[k] = k*s.SamplesPerSymbol + s.GroupDelay()
	}
	return idx
}

// Decimate picks the samples at the first n symbol instants, for
// constellation display of a shaped waveform.
func (s *Shaper) Decimate(w Waveform, n int) ([]complex128, error) {
	idx := s.SymbolInstants(n)
	out := make([]complex128, n)
	for k, i := range idx {
		if i >= len(w.Samples) {
			return nil, fmt.Errorf("%s: symbol %d instant %d beyond waveform length %d", StageShaper, k, i, len(w.Samples))
		}
		out[k] = w.Samples[i]
	}
	return out, nil
}
