package synth

import (
	"encoding/json"
	"math"

	"github.com/jeongseonghan/iqsynth/internal/modem"
)

// Result holds every intermediate of one generation: the symbol stream for
// constellation display, the waveform for time and spectral display and the
// DAC codes.
type Result struct {
	Scheme     Scheme
	Modulation string
	SampleRate float64
	Bits       []byte
	Symbols    []complex128
	Taps       []float64
	Waveform   modem.Waveform
	Frames     [][]complex128 // OFDM frequency-domain frames
	Decimated  []complex128   // shaped waveform sampled at the symbol instants
	DACI       []uint16
	DACQ       []uint16
	DACBits    int
	Policy     modem.DACPolicy
	Clipped    int
	Payload    []byte // payload recovered from Bits, payload sources only
}

// IQ is the JSON form of a complex sequence.
type IQ struct {
	I []float64 `json:"i"`
	Q []float64 `json:"q"`
}

func toIQ(x []complex128) IQ {
	v := IQ{I: make([]float64, len(x)), Q: make([]float64, len(x))}
	for n, s := range x {
		v.I[n] = real(s)
		v.Q[n] = imag(s)
	}
	return v
}

type resultJSON struct {
	Scheme     Scheme    `json:"scheme"`
	Modulation string    `json:"modulation"`
	SampleRate float64   `json:"sampleRate"`
	Bits       []int     `json:"bits,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	Symbols    IQ        `json:"symbols"`
	Taps       []float64 `json:"taps,omitempty"`
	Waveform   IQ        `json:"waveform"`
	Frames     []IQ      `json:"frames,omitempty"`
	Decimated  *IQ       `json:"decimated,omitempty"`
	DAC        dacJSON   `json:"dac"`
	Summary    Summary   `json:"summary"`
}

type dacJSON struct {
	Bits    int      `json:"bits"`
	Policy  string   `json:"policy"`
	I       []uint16 `json:"i"`
	Q       []uint16 `json:"q"`
	Clipped int      `json:"clipped"`
}

// MarshalJSON encodes complex sequences as parallel I/Q arrays and bits as
// numbers rather than base64.
func (r *Result) MarshalJSON() ([]byte, error) {
	v := resultJSON{
		Scheme:     r.Scheme,
		Modulation: r.Modulation,
		SampleRate: r.SampleRate,
		Payload:    string(r.Payload),
		Symbols:    toIQ(r.Symbols),
		Taps:       r.Taps,
		Waveform:   toIQ(r.Waveform.Samples),
		DAC: dacJSON{
			Bits:    r.DACBits,
			Policy:  r.Policy.String(),
			I:       r.DACI,
			Q:       r.DACQ,
			Clipped: r.Clipped,
		},
		Summary: r.Summary(),
	}
	if len(r.Bits) > 0 {
		v.Bits = make([]int, len(r.Bits))
		for i, b := range r.Bits {
			v.Bits[i] = int(b)
		}
	}
	for _, f := range r.Frames {
		v.Frames = append(v.Frames, toIQ(f))
	}
	if r.Decimated != nil {
		d := toIQ(r.Decimated)
		v.Decimated = &d
	}
	return json.Marshal(v)
}

// Summary is a compact description of a Result.
type Summary struct {
	Scheme       Scheme  `json:"scheme"`
	Modulation   string  `json:"modulation"`
	SampleRate   float64 `json:"sampleRate"`
	NumBits      int     `json:"numBits"`
	NumSymbols   int     `json:"numSymbols"`
	NumTaps      int     `json:"numTaps"`
	NumFrames    int     `json:"numFrames"`
	NumSamples   int     `json:"numSamples"`
	Duration     float64 `json:"duration"`
	SymbolEnergy float64 `json:"symbolEnergy"`
	Peak         float64 `json:"peak"`
	DACBits      int     `json:"dacBits"`
	Policy       string  `json:"policy"`
	CodeMin      uint16  `json:"codeMin"`
	CodeMax      uint16  `json:"codeMax"`
	Clipped      int     `json:"clipped"`
}

// Summary reports lengths, mean symbol energy, peak magnitude and the code
// range across both DAC channels.
func (r *Result) Summary() Summary {
	s := Summary{
		Scheme:     r.Scheme,
		Modulation: r.Modulation,
		SampleRate: r.SampleRate,
		NumBits:    len(r.Bits),
		NumSymbols: len(r.Symbols),
		NumTaps:    len(r.Taps),
		NumFrames:  len(r.Frames),
		NumSamples: r.Waveform.Len(),
		Duration:   r.Waveform.Duration(),
		Peak:       r.Waveform.Peak(),
		DACBits:    r.DACBits,
		Policy:     r.Policy.String(),
		Clipped:    r.Clipped,
	}
	if len(r.Symbols) > 0 {
		s.SymbolEnergy = modem.MeanEnergy(r.Symbols)
	}

	lo, hi := uint16(math.MaxUint16), uint16(0)
	for _, ch := range [][]uint16{r.DACI, r.DACQ} {
		for _, c := range ch {
			lo = min(lo, c)
			hi = max(hi, c)
		}
	}
	if lo <= hi {
		s.CodeMin, s.CodeMax = lo, hi
	}
	return s
}
