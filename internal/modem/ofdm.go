package modem

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
)

// Reference OFDM parameters (802.11a-like, 20 MHz).
const (
	RefFFTSize    = 64
	RefCPLen      = 16
	RefSymbolLen  = RefFFTSize + RefCPLen // 80 samples
	RefSampleRate = 20e6
	RefNumActive  = 52
)

// OFDMConfig describes the frame layout.
type OFDMConfig struct {
	FFTSize int
	CPLen   int
	Active  []int // active subcarrier bins, in the order symbols fill them
}

// DefaultOFDMConfig returns the 64-point, CP 16, 52-active reference layout.
func DefaultOFDMConfig() OFDMConfig {
	return OFDMConfig{
		FFTSize: RefFFTSize,
		CPLen:   RefCPLen,
		Active:  ReferenceSubcarriers(),
	}
}

// Validate checks the layout before any symbol is framed.
func (c OFDMConfig) Validate() error {
	if c.FFTSize <= 0 {
		return &FrameConfigError{Reason: fmt.Sprintf("FFT size %d must be positive", c.FFTSize)}
	}
	if c.CPLen < 0 || c.CPLen > c.FFTSize {
		return &FrameConfigError{Reason: fmt.Sprintf("cyclic prefix %d must lie in [0, %d]", c.CPLen, c.FFTSize)}
	}
	if len(c.Active) == 0 {
		return &FrameConfigError{Reason: "no active subcarriers"}
	}
	sorted := sortedCopy(c.Active)
	for i, k := range sorted {
		if k < 0 || k >= c.FFTSize {
			return &FrameConfigError{Reason: fmt.Sprintf("active subcarrier %d outside [0, %d)", k, c.FFTSize)}
		}
		if i > 0 && sorted[i-1] == k {
			return &FrameConfigError{Reason: fmt.Sprintf("active subcarrier %d listed twice", k)}
		}
	}
	return nil
}

// SymbolLen returns the samples per OFDM symbol including the prefix.
func (c OFDMConfig) SymbolLen() int {
	return c.FFTSize + c.CPLen
}

// NumActive returns the number of data-carrying subcarriers.
func (c OFDMConfig) NumActive() int {
	return len(c.Active)
}

// Framer maps symbol blocks onto subcarriers and produces the time-domain
// transmit waveform.
type Framer struct {
	cfg OFDMConfig
}

// NewFramer validates cfg and creates a framer.
func NewFramer(cfg OFDMConfig) (*Framer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	active := make([]int, len(cfg.Active))
	copy(active, cfg.Active)
	cfg.Active = active
	return &Framer{cfg: cfg}, nil
}

// Config returns the framer's layout.
func (f *Framer) Config() OFDMConfig {
	return f.cfg
}

// NumSymbols returns how many OFDM symbols n data symbols fill.
func (f *Framer) NumSymbols(n int) int {
	return n / f.cfg.NumActive()
}

// Frames reshapes symbols into blocks of NumActive and scatters each block
// onto a zeroed FFT-size frame. Inactive bins are exactly zero.
func (f *Framer) Frames(symbols []complex128) ([][]complex128, error) {
	na := f.cfg.NumActive()
	if len(symbols) == 0 {
		return nil, &FrameConfigError{Reason: "no symbols to frame"}
	}
	if len(symbols)%na != 0 {
		return nil, &FrameConfigError{Reason: fmt.Sprintf("%d symbols do not fill whole frames of %d active subcarriers", len(symbols), na)}
	}

	frames := make([][]complex128, len(symbols)/na)
	for i := range frames {
		frames[i] = InsertSubcarriers(symbols[i*na:(i+1)*na], f.cfg.FFTSize, f.cfg.Active)
	}
	return frames, nil
}

// Modulate frames symbols, transforms each frame to the time domain with a
// 1/N-scaled inverse DFT, prefixes it with its own last CPLen samples and
// concatenates the blocks. The frequency-domain frames are returned as well.
func (f *Framer) Modulate(symbols []complex128, sampleRate float64) (Waveform, [][]complex128, error) {
	frames, err := f.Frames(symbols)
	if err != nil {
		return Waveform{}, nil, err
	}

	samples := make([]complex128, 0, len(frames)*f.cfg.SymbolLen())
	for _, frame := range frames {
		timeDomain := fft.IFFT(frame)
		samples = append(samples, AddCyclicPrefix(timeDomain, f.cfg.CPLen)...)
	}
	return Waveform{Samples: samples, SampleRate: sampleRate}, frames, nil
}

// AddCyclicPrefix returns block preceded by a copy of its last cpLen samples.
func AddCyclicPrefix(block []complex128, cpLen int) []complex128 {
	if cpLen > len(block) {
		cpLen = len(block)
	}
	out := make([]complex128, 0, len(block)+cpLen)
	out = append(out, block[len(block)-cpLen:]...)
	out = append(out, block...)
	return out
}
