package modem

import (
	"unicode"

	"golang.org/x/exp/rand"
)

// BitSource produces binary symbols from a caller-owned random generator.
// Two sources built from generators with the same seed yield identical bits.
type BitSource struct {
	rng *rand.Rand
}

// NewBitSource wraps an existing generator. The source advances rng.
func NewBitSource(rng *rand.Rand) *BitSource {
	return &BitSource{rng: rng}
}

// NewSeededBitSource creates a source over a fresh PCG generator.
func NewSeededBitSource(seed uint64) *BitSource {
	return NewBitSource(rand.New(rand.NewSource(seed)))
}

// Bits draws n uniformly distributed bits (each 0 or 1).
func (s *BitSource) Bits(n int) ([]byte, error) {
	if n < 0 {
		return nil, &ParamError{Stage: StageSource, Param: "bits", Value: float64(n), Reason: "must not be negative"}
	}
	bits := make([]byte, n)
	var word uint64
	for i := range bits {
		if i%64 == 0 {
			word = s.rng.Uint64()
		}
		bits[i] = byte(word & 1)
		word >>= 1
	}
	return bits, nil
}

// BitsFromBytes expands bytes into bits, most significant bit first.
func BitsFromBytes(data []byte) []byte {
	bits := make([]byte, len(data)*8)
	for i, b := range data {
		for j := 7; j >= 0; j-- {
			bits[i*8+(7-j)] = (b >> uint(j)) & 1
		}
	}
	return bits
}

// BitsToBytes packs bits into bytes, most significant bit first.
// A trailing partial byte is dropped.
func BitsToBytes(bits []byte) []byte {
	numBytes := len(bits) / 8
	data := make([]byte, numBytes)
	for i := 0; i < numBytes; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			b = (b << 1) | (bits[i*8+j] & 1)
		}
		data[i] = b
	}
	return data
}

// ParseBits reads a string such as "1011 0010" into bits. Whitespace is
// skipped; any other character besides 0 and 1 is rejected.
func ParseBits(s string) ([]byte, error) {
	bits := make([]byte, 0, len(s))
	for i, r := range s {
		switch {
		case r == '0':
			bits = append(bits, 0)
		case r == '1':
			bits = append(bits, 1)
		case unicode.IsSpace(r):
		default:
			return nil, &InvalidSymbolError{Stage: StageSource, Index: i, Group: []byte(string(r))}
		}
	}
	return bits, nil
}

// PadBits returns bits extended with zeros up to a multiple of n.
func PadBits(bits []byte, n int) []byte {
	out := make([]byte, len(bits), len(bits)+max(n, 0))
	copy(out, bits)
	if n <= 1 {
		return out
	}
	if rem := len(out) % n; rem != 0 {
		out = append(out, make([]byte, n-rem)...)
	}
	return out
}
