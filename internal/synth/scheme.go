package synth

import (
	"fmt"
	"strings"

	"github.com/jeongseonghan/iqsynth/internal/modem"
)

// Scheme names a waveform family the pipeline can synthesize.
type Scheme string

const (
	BPSK  Scheme = "bpsk"
	QPSK  Scheme = "qpsk"
	QAM16 Scheme = "qam16"
	OFDM  Scheme = "ofdm"
	Chirp Scheme = "chirp"
)

var schemes = []Scheme{BPSK, QPSK, QAM16, OFDM, Chirp}

// AllSchemes returns every scheme in a stable order.
func AllSchemes() []Scheme {
	out := make([]Scheme, len(schemes))
	copy(out, schemes)
	return out
}

// ParseScheme accepts a scheme name in any case; "16qam" and "16-qam" are
// aliases for qam16.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bpsk":
		return BPSK, nil
	case "qpsk":
		return QPSK, nil
	case "qam16", "16qam", "16-qam":
		return QAM16, nil
	case "ofdm":
		return OFDM, nil
	case "chirp", "lfm":
		return Chirp, nil
	}
	return "", fmt.Errorf("unknown scheme %q", s)
}

// DefaultPolicy is the DAC policy used when dac.policy is "auto". The chirp
// is bounded to [-1, 1] by construction; the filtered and OFDM waveforms
// have no fixed peak, so they are stretched over their own range.
func (s Scheme) DefaultPolicy() modem.DACPolicy {
	if s == Chirp {
		return modem.PolicyFixed
	}
	return modem.PolicyMinMax
}

// Seed derives the per-scheme generator seed from the configured base, so
// each scheme draws an independent stream regardless of run order.
func (s Scheme) Seed(base uint64) uint64 {
	for i, sc := range schemes {
		if sc == s {
			return base + uint64(i)*0x9E3779B97F4A7C15
		}
	}
	return base
}
