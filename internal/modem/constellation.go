package modem

import (
	"fmt"
	"math"
	"strings"
)

// Modulation identifies a symbol mapping scheme. The value is the number of
// bits carried per symbol.
type Modulation int

const (
	ModBPSK  Modulation = 1 // 1 bit per symbol
	ModQPSK  Modulation = 2 // 2 bits per symbol
	Mod16QAM Modulation = 4 // 4 bits per symbol
)

// BitsPerSymbol returns the number of bits per constellation symbol.
func (m Modulation) BitsPerSymbol() int {
	return int(m)
}

// String returns the modulation name.
func (m Modulation) String() string {
	switch m {
	case ModBPSK:
		return "BPSK"
	case ModQPSK:
		return "QPSK"
	case Mod16QAM:
		return "16-QAM"
	default:
		return fmt.Sprintf("Modulation(%d)", int(m))
	}
}

// Scale returns the factor that brings the raw integer-level alphabet to
// unit mean energy.
func (m Modulation) Scale() float64 {
	switch m {
	case ModQPSK:
		return 1 / math.Sqrt2
	case Mod16QAM:
		return 1 / math.Sqrt(10)
	default:
		return 1
	}
}

func (m Modulation) valid() bool {
	return m == ModBPSK || m == ModQPSK || m == Mod16QAM
}

// ParseModulation accepts "bpsk", "qpsk", "16qam", "qam16" or "16-qam" in any case.
func ParseModulation(s string) (Modulation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BPSK":
		return ModBPSK, nil
	case "QPSK":
		return ModQPSK, nil
	case "16QAM", "16-QAM", "QAM16":
		return Mod16QAM, nil
	}
	return 0, fmt.Errorf("unknown modulation %q", s)
}

// RemainderPolicy decides what happens to trailing bits that do not fill a symbol.
type RemainderPolicy int

const (
	// RejectRemainder fails with LengthMismatchError.
	RejectRemainder RemainderPolicy = iota
	// TruncateRemainder drops the trailing partial group.
	TruncateRemainder
)

func (p RemainderPolicy) String() string {
	if p == TruncateRemainder {
		return "truncate"
	}
	return "reject"
}

// ParseRemainderPolicy accepts "reject" or "truncate".
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectRemainder, nil
	case "truncate":
		return TruncateRemainder, nil
	}
	return 0, fmt.Errorf("unknown remainder policy %q", s)
}

// Mapper converts bit groups into constellation symbols.
type Mapper struct {
	Mod       Modulation
	Remainder RemainderPolicy
}

// NewMapper creates a mapper that rejects partial symbols.
func NewMapper(mod Modulation) *Mapper {
	return &Mapper{Mod: mod}
}

// MapRaw maps bits onto the integer-level alphabet (±1 for BPSK/QPSK,
// {±1, ±3} per axis for 16-QAM) without energy normalization.
func (m *Mapper) MapRaw(bits []byte) ([]complex128, error) {
	if !m.Mod.valid() {
		return nil, &ParamError{Stage: StageMapper, Param: "modulation", Value: float64(m.Mod), Reason: "is not supported"}
	}
	k := m.Mod.BitsPerSymbol()
	if rem := len(bits) % k; rem != 0 && m.Remainder == RejectRemainder {
		return nil, &LengthMismatchError{Modulation: m.Mod, Length: len(bits), BitsPerSymbol: k}
	}

	numSymbols := len(bits) / k
	symbols := make([]complex128, numSymbols)
	for i := 0; i < numSymbols; i++ {
		group := bits[i*k : (i+1)*k]
		var (
			s  complex128
			ok bool
		)
		switch m.Mod {
		case ModBPSK:
			s, ok = mapBPSK(group[0])
		case ModQPSK:
			s, ok = mapQPSK(group[0], group[1])
		case Mod16QAM:
			s, ok = map16QAM(group[0], group[1], group[2], group[3])
		}
		if !ok {
			g := make([]byte, k)
			copy(g, group)
			return nil, &InvalidSymbolError{Stage: StageMapper, Index: i, Group: g}
		}
		symbols[i] = s
	}
	return symbols, nil
}

// Map maps bits to symbols scaled for unit mean energy.
func (m *Mapper) Map(bits []byte) ([]complex128, error) {
	symbols, err := m.MapRaw(bits)
	if err != nil {
		return nil, err
	}
	scale := complex(m.Mod.Scale(), 0)
	for i := range symbols {
		symbols[i] *= scale
	}
	return symbols, nil
}

// BPSK: 0 → −1, 1 → +1.
func mapBPSK(b byte) (complex128, bool) {
	switch b {
	case 0:
		return -1, true
	case 1:
		return 1, true
	}
	return 0, false
}

// Gray-coded QPSK: 00, 01, 11, 10 walk the quadrants counter-clockwise.
func mapQPSK(b0, b1 byte) (complex128, bool) {
	switch {
	case b0 == 0 && b1 == 0:
		return complex(1, 1), true
	case b0 == 0 && b1 == 1:
		return complex(-1, 1), true
	case b0 == 1 && b1 == 1:
		return complex(-1, -1), true
	case b0 == 1 && b1 == 0:
		return complex(1, -1), true
	}
	return 0, false
}

// 16-QAM: first pair picks the I level, second pair the Q level.
func map16QAM(b0, b1, b2, b3 byte) (complex128, bool) {
	i, ok := grayLevel(b0, b1)
	if !ok {
		return 0, false
	}
	q, ok := grayLevel(b2, b3)
	if !ok {
		return 0, false
	}
	return complex(i, q), true
}

// grayLevel is the 2-bit Gray sub-mapping onto the 4-PAM alphabet.
func grayLevel(b0, b1 byte) (float64, bool) {
	switch {
	case b0 == 0 && b1 == 0:
		return -3, true
	case b0 == 0 && b1 == 1:
		return -1, true
	case b0 == 1 && b1 == 1:
		return 1, true
	case b0 == 1 && b1 == 0:
		return 3, true
	}
	return 0, false
}
