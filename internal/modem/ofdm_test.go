package modem

import (
	"errors"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qpskSymbols(t *testing.T, n int, seed uint64) []complex128 {
	t.Helper()
	bits, err := NewSeededBitSource(seed).Bits(2 * n)
	require.NoError(t, err)
	symbols, err := NewMapper(ModQPSK).Map(bits)
	require.NoError(t, err)
	return symbols
}

func TestReferenceSubcarriers(t *testing.T) {
	active := ReferenceSubcarriers()
	require.Len(t, active, RefNumActive)
	assert.Equal(t, 1, active[0])
	assert.Equal(t, 26, active[25])
	assert.Equal(t, 38, active[26])
	assert.Equal(t, 63, active[51])

	idle := InactiveSubcarriers(RefFFTSize, active)
	assert.Equal(t, append([]int{0}, SubcarrierRange(27, 37)...), idle)
}

func TestOFDM_ModulateLength(t *testing.T) {
	f, err := NewFramer(DefaultOFDMConfig())
	require.NoError(t, err)

	numSymbols := 20
	w, frames, err := f.Modulate(qpskSymbols(t, numSymbols*RefNumActive, 1), RefSampleRate)
	require.NoError(t, err)
	assert.Len(t, frames, numSymbols)
	assert.Equal(t, numSymbols*RefSymbolLen, w.Len())
	assert.Equal(t, RefSampleRate, w.SampleRate)
}

func TestOFDM_InactiveSubcarriersZero(t *testing.T) {
	cfg := DefaultOFDMConfig()
	f, err := NewFramer(cfg)
	require.NoError(t, err)

	frames, err := f.Frames(qpskSymbols(t, 3*RefNumActive, 2))
	require.NoError(t, err)
	idle := InactiveSubcarriers(cfg.FFTSize, cfg.Active)
	for i, frame := range frames {
		require.Len(t, frame, cfg.FFTSize)
		for _, k := range idle {
			assert.Equal(t, complex128(0), frame[k], "frame %d bin %d", i, k)
		}
	}
}

func TestOFDM_ActiveSubcarriersCarryData(t *testing.T) {
	cfg := DefaultOFDMConfig()
	f, err := NewFramer(cfg)
	require.NoError(t, err)

	symbols := qpskSymbols(t, 2*RefNumActive, 3)
	frames, err := f.Frames(symbols)
	require.NoError(t, err)
	for i, frame := range frames {
		got := activeBins(frame, cfg.Active)
		assert.Equal(t, symbols[i*RefNumActive:(i+1)*RefNumActive], got)
	}
}

func TestOFDM_CyclicPrefixExact(t *testing.T) {
	cfg := DefaultOFDMConfig()
	f, err := NewFramer(cfg)
	require.NoError(t, err)

	w, _, err := f.Modulate(qpskSymbols(t, 5*RefNumActive, 4), RefSampleRate)
	require.NoError(t, err)
	for s := 0; s < 5; s++ {
		block := w.Samples[s*cfg.SymbolLen() : (s+1)*cfg.SymbolLen()]
		cp := block[:cfg.CPLen]
		tail := block[cfg.SymbolLen()-cfg.CPLen:]
		for i := range cp {
			assert.Equal(t, tail[i], cp[i], "symbol %d sample %d", s, i)
		}
	}
}

func TestOFDM_TimeDomainMatchesFrame(t *testing.T) {
	cfg := DefaultOFDMConfig()
	f, err := NewFramer(cfg)
	require.NoError(t, err)

	w, frames, err := f.Modulate(qpskSymbols(t, RefNumActive, 5), RefSampleRate)
	require.NoError(t, err)

	body := w.Samples[cfg.CPLen:cfg.SymbolLen()]
	spectrum := fft.FFT(body)
	assert.True(t, dsputils.PrettyCloseC(frames[0], spectrum))
	for _, k := range InactiveSubcarriers(cfg.FFTSize, cfg.Active) {
		assert.Less(t, cmplx.Abs(spectrum[k]), 1e-12)
	}
}

func TestOFDM_AllZeroData(t *testing.T) {
	f, err := NewFramer(DefaultOFDMConfig())
	require.NoError(t, err)

	w, _, err := f.Modulate(make([]complex128, RefNumActive), RefSampleRate)
	require.NoError(t, err)
	require.Equal(t, RefSymbolLen, w.Len())
	for i, s := range w.Samples {
		assert.Equal(t, complex128(0), s, "sample %d", i)
	}
}

func TestOFDM_SymbolCountMismatch(t *testing.T) {
	f, err := NewFramer(DefaultOFDMConfig())
	require.NoError(t, err)

	_, _, err = f.Modulate(make([]complex128, RefNumActive+1), RefSampleRate)
	assert.True(t, errors.Is(err, ErrFrameConfig))

	_, err = f.Frames(nil)
	assert.True(t, errors.Is(err, ErrFrameConfig))
}

func TestOFDMConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  OFDMConfig
	}{
		{"zero fft", OFDMConfig{FFTSize: 0, CPLen: 0, Active: []int{1}}},
		{"negative cp", OFDMConfig{FFTSize: 64, CPLen: -1, Active: []int{1}}},
		{"cp too long", OFDMConfig{FFTSize: 64, CPLen: 65, Active: []int{1}}},
		{"no active", OFDMConfig{FFTSize: 64, CPLen: 16}},
		{"index too high", OFDMConfig{FFTSize: 64, CPLen: 16, Active: []int{1, 64}}},
		{"negative index", OFDMConfig{FFTSize: 64, CPLen: 16, Active: []int{-1, 2}}},
		{"duplicate", OFDMConfig{FFTSize: 64, CPLen: 16, Active: []int{3, 5, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFramer(tt.cfg)
			assert.True(t, errors.Is(err, ErrFrameConfig), "got %v", err)
		})
	}
	assert.NoError(t, DefaultOFDMConfig().Validate())
}

func TestOFDM_NonPowerOfTwo(t *testing.T) {
	cfg := OFDMConfig{FFTSize: 48, CPLen: 12, Active: SubcarrierRange(1, 20)}
	f, err := NewFramer(cfg)
	require.NoError(t, err)

	w, frames, err := f.Modulate(qpskSymbols(t, 40, 6), 1e6)
	require.NoError(t, err)
	assert.Equal(t, 2*60, w.Len())
	spectrum := fft.FFT(w.Samples[12:60])
	assert.True(t, dsputils.PrettyCloseC(frames[0], spectrum))
}

func TestAddCyclicPrefix(t *testing.T) {
	block := []complex128{1, 2, 3, 4, 5}
	assert.Equal(t, []complex128{4, 5, 1, 2, 3, 4, 5}, AddCyclicPrefix(block, 2))
	assert.Equal(t, block, AddCyclicPrefix(block, 0))
	assert.Equal(t, []complex128{1, 2, 3, 4, 5}, block)
}

// activeBins gathers the active bins of a frame in active order.
func activeBins(spectrum []complex128, active []int) []complex128 {
	data := make([]complex128, len(active))
	for i, k := range active {
		data[i] = spectrum[k]
	}
	return data
}
