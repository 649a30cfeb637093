package modem

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxDACBits is the widest converter a uint16 code can represent.
const MaxDACBits = 16

// DACPolicy selects how a real waveform is mapped onto the code range.
//
// PolicyMinMax stretches the waveform's own [min, max] over [0, 2^B-1]; it
// suits signals whose dynamic range is unknown in advance (filtered PSK/QAM,
// OFDM). PolicyFixed maps a nominal [Lo, Hi] range affinely, so a given
// voltage always produces the same code; it suits signals already bounded
// by construction (the chirp's cos/sin). The two give different codes for the
// same waveform.
type DACPolicy int

const (
	PolicyMinMax DACPolicy = iota
	PolicyFixed
)

func (p DACPolicy) String() string {
	if p == PolicyFixed {
		return "fixed"
	}
	return "minmax"
}

// ParseDACPolicy accepts "minmax" or "fixed".
func ParseDACPolicy(s string) (DACPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minmax", "min-max":
		return PolicyMinMax, nil
	case "fixed":
		return PolicyFixed, nil
	}
	return 0, fmt.Errorf("unknown DAC policy %q", s)
}

// MaxCode returns 2^bits - 1.
func MaxCode(bits int) uint16 {
	return uint16(int(1)<<bits - 1)
}

// Quantizer converts real samples to unsigned DAC codes.
type Quantizer struct {
	Bits   int
	Policy DACPolicy
	Lo, Hi float64 // nominal range for PolicyFixed
}

// NewQuantizer creates a quantizer with the nominal range [-1, +1].
func NewQuantizer(bits int, policy DACPolicy) *Quantizer {
	return &Quantizer{Bits: bits, Policy: policy, Lo: -1, Hi: 1}
}

// Validate checks the bit depth and, for PolicyFixed, the nominal range.
func (q *Quantizer) Validate() error {
	if q.Bits < 1 || q.Bits > MaxDACBits {
		return &ParamError{Stage: StageDAC, Param: "bits", Value: float64(q.Bits), Reason: fmt.Sprintf("must lie in [1, %d]", MaxDACBits)}
	}
	if q.Policy == PolicyFixed && !(q.Lo < q.Hi && isFinite(q.Lo) && isFinite(q.Hi)) {
		return &ParamError{Stage: StageDAC, Param: "hi", Value: q.Hi, Reason: fmt.Sprintf("must exceed lo=%g", q.Lo)}
	}
	return nil
}

// Quantize maps x onto [0, 2^Bits-1], rounding to nearest.
//
// Under PolicyMinMax a constant waveform has no range to stretch and every
// sample maps to midscale; NaN or Inf samples fail with RangeError.
//
// Under PolicyFixed samples outside [Lo, Hi] are clamped to the end codes.
// The full code slice is still returned, together with a *RangeError that
// counts the clamped samples, so callers choose whether clipping is fatal.
func (q *Quantizer) Quantize(x []float64) ([]uint16, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return []uint16{}, nil
	}
	for i, v := range x {
		if !isFinite(v) {
			return nil, &RangeError{Index: i, Value: v, Lo: math.Inf(-1), Hi: math.Inf(1), Count: 1}
		}
	}

	if q.Policy == PolicyFixed {
		return q.quantizeFixed(x)
	}
	return q.quantizeMinMax(x), nil
}

func (q *Quantizer) quantizeMinMax(x []float64) []uint16 {
	top := float64(MaxCode(q.Bits))
	codes := make([]uint16, len(x))
	lo, hi := minMax(x)
	if hi == lo {
		mid := uint16(math.Round(top / 2))
		for i := range codes {
			codes[i] = mid
		}
		return codes
	}
	for i, v := range x {
		codes[i] = code(v, lo, hi, top)
	}
	return codes
}

func (q *Quantizer) quantizeFixed(x []float64) ([]uint16, error) {
	top := float64(MaxCode(q.Bits))
	codes := make([]uint16, len(x))
	var rangeErr *RangeError
	for i, v := range x {
		if v < q.Lo || v > q.Hi {
			if rangeErr == nil {
				rangeErr = &RangeError{Index: i, Value: v, Lo: q.Lo, Hi: q.Hi}
			}
			rangeErr.Count++
		}
		codes[i] = code(v, q.Lo, q.Hi, top)
	}
	if rangeErr != nil {
		return codes, rangeErr
	}
	return codes, nil
}

// QuantizeIQ quantizes both channels of w independently. A clamped
// channel under PolicyFixed still yields codes; its RangeError is returned
// alongside them, joined with the other channel's if both clip.
func (q *Quantizer) QuantizeIQ(w Waveform) (ic, qc []uint16, err error) {
	ic, errI := q.Quantize(w.I())
	if ic == nil {
		return nil, nil, fmt.Errorf("I channel: %w", errI)
	}
	qc, errQ := q.Quantize(w.Q())
	if qc == nil {
		return nil, nil, fmt.Errorf("Q channel: %w", errQ)
	}
	var errs []error
	if errI != nil {
		errs = append(errs, fmt.Errorf("I channel: %w", errI))
	}
	if errQ != nil {
		errs = append(errs, fmt.Errorf("Q channel: %w", errQ))
	}
	return ic, qc, errors.Join(errs...)
}

// code maps v affinely from [lo, hi] onto [0, top] and clamps. Operands are
// halved first so hi-lo stays finite for extremes near ±MaxFloat64.
func code(v, lo, hi, top float64) uint16 {
	return uint16(clamp(math.Round((v/2-lo/2)/(hi/2-lo/2)*top), 0, top))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
