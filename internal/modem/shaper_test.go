package modem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsample(t *testing.T) {
	up, err := Upsample([]complex128{1, -1, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, []complex128{1, 0, 0, -1, 0, 0, 2, 0, 0}, up)

	_, err = Upsample([]complex128{1}, 0)
	assert.True(t, errors.Is(err, ErrParam))
}

func TestConvolve_Modes(t *testing.T) {
	x := []complex128{1, 2, 3, 4}
	h := []float64{1, 1, 1}

	full := Convolve(x, h, ConvFull)
	assert.Equal(t, []complex128{1, 3, 6, 9, 7, 4}, full)

	same := Convolve(x, h, ConvSame)
	assert.Equal(t, []complex128{3, 6, 9, 7}, same)

	assert.Empty(t, Convolve(nil, h, ConvFull))
}

func TestConvolve_ComplexInput(t *testing.T) {
	x := []complex128{complex(1, -1), 0, complex(0, 2)}
	h := []float64{0.5, 0.25}
	got := Convolve(x, h, ConvFull)
	want := []complex128{complex(0.5, -0.5), complex(0.25, -0.25), complex(0, 1), complex(0, 0.5)}
	assert.Equal(t, want, got)
}

func TestShaper_FullModeLengthAndDelay(t *testing.T) {
	taps, err := DesignLowpass(101, 0.2)
	require.NoError(t, err)
	s, err := NewShaper(taps, 20, ConvFull)
	require.NoError(t, err)

	symbols, err := NewMapper(ModBPSK).Map([]byte{1, 0, 1, 1, 0})
	require.NoError(t, err)
	w, err := s.Shape(symbols, 100e6)
	require.NoError(t, err)

	assert.Equal(t, 5*20+101-1, w.Len())
	assert.Equal(t, s.OutputLen(5), w.Len())
	assert.Equal(t, 50, s.GroupDelay())
	assert.Equal(t, []int{50, 70, 90, 110, 130}, s.SymbolInstants(5))

	for _, q := range w.Q() {
		assert.Zero(t, q)
	}
}

func TestShaper_SameModeRecoversSymbols(t *testing.T) {
	taps, err := DesignRaisedCosine(0.35, 10, 10)
	require.NoError(t, err)
	s, err := NewShaper(taps, 10, ConvSame)
	require.NoError(t, err)
	assert.Equal(t, 0, s.GroupDelay())

	bits, err := NewSeededBitSource(11).Bits(4 * 40)
	require.NoError(t, err)
	symbols, err := NewMapper(Mod16QAM).Map(bits)
	require.NoError(t, err)

	w, err := s.Shape(symbols, 100e6)
	require.NoError(t, err)
	require.Equal(t, 40*10, w.Len())

	// Raised-cosine pulses are zero at other symbol instants, so the
	// decimated samples are the symbols scaled by the centre tap.
	got, err := s.Decimate(w, len(symbols))
	require.NoError(t, err)
	center := taps[len(taps)/2]
	for k := range symbols {
		want := symbols[k] * complex(center, 0)
		assert.InDelta(t, real(want), real(got[k]), 1e-9, "symbol %d", k)
		assert.InDelta(t, imag(want), imag(got[k]), 1e-9, "symbol %d", k)
	}
}

func TestShaper_ModesOffsetByGroupDelay(t *testing.T) {
	taps, err := DesignRaisedCosine(0.5, 4, 6)
	require.NoError(t, err)
	symbols := []complex128{1, -1, complex(0, 1), 1, -1, -1, 1, complex(1, 1), -1, 1}

	full, err := NewShaper(taps, 4, ConvFull)
	require.NoError(t, err)
	same, err := NewShaper(taps, 4, ConvSame)
	require.NoError(t, err)

	wf, err := full.Shape(symbols, 1)
	require.NoError(t, err)
	ws, err := same.Shape(symbols, 1)
	require.NoError(t, err)

	d := full.GroupDelay()
	require.Equal(t, 12, d)
	for i := range ws.Samples {
		assert.Equal(t, wf.Samples[i+d], ws.Samples[i])
	}
}

func TestShaper_DecimateOutOfRange(t *testing.T) {
	s, err := NewShaper([]float64{1}, 2, ConvSame)
	require.NoError(t, err)
	_, err = s.Decimate(Waveform{Samples: make([]complex128, 3)}, 3)
	assert.Error(t, err)
}

func TestNewShaper_Errors(t *testing.T) {
	_, err := NewShaper(nil, 4, ConvFull)
	assert.True(t, errors.Is(err, ErrParam))
	_, err = NewShaper([]float64{1}, 0, ConvFull)
	assert.True(t, errors.Is(err, ErrParam))
}
