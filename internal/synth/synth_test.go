package synth

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/iqsynth/internal/config"
	"github.com/jeongseonghan/iqsynth/internal/fec"
	"github.com/jeongseonghan/iqsynth/internal/modem"
)

func TestParseScheme(t *testing.T) {
	for in, want := range map[string]Scheme{
		"bpsk":   BPSK,
		"QPSK":   QPSK,
		"16-QAM": QAM16,
		"16qam":  QAM16,
		"qam16":  QAM16,
		" ofdm ": OFDM,
		"chirp":  Chirp,
	} {
		got, err := ParseScheme(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseScheme("fsk")
	assert.Error(t, err)
}

func TestSchemeSeed_Distinct(t *testing.T) {
	seen := map[uint64]Scheme{}
	for _, s := range AllSchemes() {
		seed := s.Seed(1)
		_, dup := seen[seed]
		assert.False(t, dup, "scheme %s reuses seed", s)
		seen[seed] = s
	}
	assert.Equal(t, uint64(1), BPSK.Seed(1))
}

func TestGenerate_Lengths(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		scheme      Scheme
		bits        int
		symbols     int
		samples     int
		policy      modem.DACPolicy
		hasTaps     bool
		frames      int
		hasDecimate bool
	}{
		// 100 bits at S=20, 101 taps, full convolution.
		{BPSK, 100, 100, 100*20 + 100, modem.PolicyMinMax, true, 0, true},
		// 50 symbols at S=10, 101 taps, full convolution.
		{QPSK, 100, 50, 50*10 + 100, modem.PolicyMinMax, true, 0, true},
		// 250 symbols at S=10, same-length convolution.
		{QAM16, 1000, 250, 2500, modem.PolicyMinMax, true, 0, true},
		{OFDM, 20 * 52 * 2, 20 * 52, 20 * 80, modem.PolicyMinMax, false, 20, false},
		{Chirp, 0, 0, 10000, modem.PolicyFixed, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			res, err := Generate(cfg, tt.scheme)
			require.NoError(t, err)

			assert.Len(t, res.Bits, tt.bits)
			assert.Len(t, res.Symbols, tt.symbols)
			assert.Equal(t, tt.samples, res.Waveform.Len())
			assert.Len(t, res.DACI, tt.samples)
			assert.Len(t, res.DACQ, tt.samples)
			assert.Equal(t, tt.policy, res.Policy)
			assert.Equal(t, 12, res.DACBits)
			assert.Equal(t, tt.hasTaps, len(res.Taps) > 0)
			assert.Len(t, res.Frames, tt.frames)
			assert.Equal(t, tt.hasDecimate, res.Decimated != nil)
			assert.Zero(t, res.Clipped)

			for n := range res.DACI {
				require.LessOrEqual(t, res.DACI[n], modem.MaxCode(12))
				require.LessOrEqual(t, res.DACQ[n], modem.MaxCode(12))
			}
		})
	}
}

func TestGenerate_UnitSymbolEnergy(t *testing.T) {
	cfg := config.Default()
	cfg.BPSK.NumBits = 4000
	cfg.QPSK.NumBits = 8000
	cfg.QAM16.NumBits = 16000

	for _, scheme := range []Scheme{BPSK, QPSK, QAM16, OFDM} {
		res, err := Generate(cfg, scheme)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, res.Summary().SymbolEnergy, 0.05, "scheme %s", scheme)
	}
}

func TestGenerate_BPSKRealOnly(t *testing.T) {
	res, err := Generate(config.Default(), BPSK)
	require.NoError(t, err)
	for _, q := range res.Waveform.Q() {
		require.Zero(t, q)
	}
	// A constant channel sits at midscale under the min-max policy.
	for _, c := range res.DACQ {
		require.Equal(t, uint16(2048), c)
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	cfg := config.Default()
	for _, scheme := range AllSchemes() {
		a, err := Generate(cfg, scheme)
		require.NoError(t, err)
		b, err := Generate(cfg, scheme)
		require.NoError(t, err)
		assert.Equal(t, a.Bits, b.Bits, "scheme %s", scheme)
		assert.Equal(t, a.Waveform.Samples, b.Waveform.Samples, "scheme %s", scheme)
		assert.Equal(t, a.DACI, b.DACI, "scheme %s", scheme)
		assert.Equal(t, a.DACQ, b.DACQ, "scheme %s", scheme)
	}

	other := cfg
	other.Seed = 2
	a, err := Generate(cfg, QPSK)
	require.NoError(t, err)
	b, err := Generate(other, QPSK)
	require.NoError(t, err)
	assert.NotEqual(t, a.Bits, b.Bits)
}

func TestGenerate_RemainderPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.QAM16.NumBits = 1002

	_, err := Generate(cfg, QAM16)
	require.Error(t, err)
	assert.True(t, errors.Is(err, modem.ErrLengthMismatch))
	assert.Contains(t, err.Error(), "qam16")

	cfg.Remainder = "truncate"
	res, err := Generate(cfg, QAM16)
	require.NoError(t, err)
	assert.Len(t, res.Bits, 1002)
	assert.Len(t, res.Symbols, 250)
}

func TestGenerate_StageErrors(t *testing.T) {
	cfg := config.Default()
	cfg.QPSK.Taps = 100
	_, err := Generate(cfg, QPSK)
	assert.True(t, errors.Is(err, modem.ErrFilterDesign))

	cfg = config.Default()
	cfg.OFDM.Active = []int{1, 1}
	_, err = Generate(cfg, OFDM)
	assert.True(t, errors.Is(err, modem.ErrFrameConfig))

	cfg = config.Default()
	cfg.Chirp.SampleRate = 0
	_, err = Generate(cfg, Chirp)
	assert.True(t, errors.Is(err, modem.ErrParam))

	cfg = config.Default()
	cfg.DAC.Bits = 0
	_, err = Generate(cfg, BPSK)
	assert.True(t, errors.Is(err, modem.ErrParam))

	_, err = Generate(config.Default(), Scheme("fsk"))
	assert.Error(t, err)
}

func TestGenerate_FixedPolicyClipping(t *testing.T) {
	cfg := config.Default()
	cfg.DAC.Policy = "fixed"
	cfg.DAC.Lo, cfg.DAC.Hi = -0.1, 0.1

	res, err := Generate(cfg, QAM16)
	require.Error(t, err)
	assert.ErrorIs(t, err, modem.ErrRange)
	assert.Contains(t, err.Error(), "qam16")
	var re *modem.RangeError
	require.True(t, errors.As(err, &re))

	// The clamped codes still come back with the error.
	require.NotNil(t, res)
	assert.Equal(t, modem.PolicyFixed, res.Policy)
	assert.Positive(t, res.Clipped)
	assert.Len(t, res.DACI, res.Waveform.Len())
	assert.Len(t, res.DACQ, res.Waveform.Len())

	_, err = GenerateAll(context.Background(), cfg, []Scheme{BPSK, QAM16})
	assert.ErrorIs(t, err, modem.ErrRange)

	cfg.DAC.OnClip = config.ClipWarn
	warned, err := Generate(cfg, QAM16)
	require.NoError(t, err)
	assert.Equal(t, res.Clipped, warned.Clipped)
	assert.Equal(t, res.DACI, warned.DACI)

	cfg.DAC.OnClip = "ignore"
	_, err = Generate(cfg, QAM16)
	assert.Error(t, err)
}

func TestGenerate_OFDMInactiveBinsZero(t *testing.T) {
	cfg := config.Default()
	res, err := Generate(cfg, OFDM)
	require.NoError(t, err)
	inactive := modem.InactiveSubcarriers(cfg.OFDM.FFTSize, cfg.OFDM.Active)
	for _, frame := range res.Frames {
		for _, k := range inactive {
			require.Equal(t, complex128(0), frame[k])
		}
	}
}

func TestGenerate_PayloadWithFEC(t *testing.T) {
	cfg := config.Default()
	cfg.Source = config.Source{Kind: config.SourcePayload, Payload: "iq synth", FEC: true}

	codec, err := fec.NewCodec()
	require.NoError(t, err)
	protected, err := codec.Protect([]byte("iq synth"))
	require.NoError(t, err)

	for _, scheme := range []Scheme{BPSK, QPSK, QAM16, OFDM} {
		res, err := Generate(cfg, scheme)
		require.NoError(t, err, "scheme %s", scheme)
		require.GreaterOrEqual(t, len(res.Bits), len(protected)*8)

		data := modem.BitsToBytes(res.Bits)[:len(protected)]
		got, err := codec.Recover(data)
		require.NoError(t, err, "scheme %s", scheme)
		assert.Equal(t, "iq synth", string(got))
		assert.Equal(t, "iq synth", string(res.Payload), "scheme %s", scheme)
	}

	res, err := Generate(cfg, OFDM)
	require.NoError(t, err)
	assert.Zero(t, len(res.Bits)%(52*2), "payload padded to whole OFDM symbols")
}

func TestGenerate_PayloadPlain(t *testing.T) {
	cfg := config.Default()
	cfg.Source = config.Source{Kind: config.SourcePayload, Payload: "A"}
	res, err := Generate(cfg, QAM16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 0, 0, 0, 0, 0, 1}, res.Bits)
	assert.Len(t, res.Symbols, 2)
	assert.Equal(t, "A", string(res.Payload))

	cfg.Source.Payload = ""
	_, err = Generate(cfg, QAM16)
	assert.Error(t, err)
}

func TestGenerate_BitsSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source = config.Source{Kind: config.SourceBits, Bits: "1011 01"}

	res, err := Generate(cfg, QAM16)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1, 1, 0, 1, 0, 0}, res.Bits, "padded to whole symbols")
	assert.Len(t, res.Symbols, 2)
	assert.Nil(t, res.Payload)

	res, err = Generate(cfg, BPSK)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1, 1, 0, 1}, res.Bits)

	cfg.Source.Bits = "10x1"
	_, err = Generate(cfg, QPSK)
	assert.ErrorIs(t, err, modem.ErrInvalidSymbol)

	cfg.Source.Bits = ""
	_, err = Generate(cfg, QPSK)
	assert.Error(t, err)
}

func TestGenerateAll_MatchesSequential(t *testing.T) {
	cfg := config.Default()
	results, err := GenerateAll(context.Background(), cfg, AllSchemes())
	require.NoError(t, err)
	require.Len(t, results, len(AllSchemes()))

	for i, scheme := range AllSchemes() {
		want, err := Generate(cfg, scheme)
		require.NoError(t, err)
		assert.Equal(t, scheme, results[i].Scheme)
		assert.Equal(t, want.Waveform.Samples, results[i].Waveform.Samples)
		assert.Equal(t, want.DACI, results[i].DACI)
	}
}

func TestGenerateAll_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.OFDM.CPLen = -1
	_, err := GenerateAll(context.Background(), cfg, []Scheme{BPSK, OFDM})
	assert.True(t, errors.Is(err, modem.ErrFrameConfig))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = GenerateAll(ctx, config.Default(), []Scheme{BPSK})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_JSON(t *testing.T) {
	cfg := config.Default()
	cfg.QPSK.NumBits = 8
	res, err := Generate(cfg, QPSK)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var got struct {
		Scheme   string `json:"scheme"`
		Bits     []int  `json:"bits"`
		Symbols  IQ     `json:"symbols"`
		Waveform IQ     `json:"waveform"`
		DAC      struct {
			Bits   int      `json:"bits"`
			Policy string   `json:"policy"`
			I      []uint16 `json:"i"`
		} `json:"dac"`
		Summary Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "qpsk", got.Scheme)
	assert.Len(t, got.Bits, 8)
	require.Len(t, got.Symbols.I, 4)
	for n, s := range res.Symbols {
		assert.Equal(t, real(s), got.Symbols.I[n])
		assert.Equal(t, imag(s), got.Symbols.Q[n])
	}
	assert.Len(t, got.Waveform.I, res.Waveform.Len())
	assert.Equal(t, "minmax", got.DAC.Policy)
	assert.Equal(t, res.DACI, got.DAC.I)
	assert.Equal(t, 4, got.Summary.NumSymbols)
}

func TestSummary(t *testing.T) {
	res, err := Generate(config.Default(), Chirp)
	require.NoError(t, err)
	s := res.Summary()

	assert.Equal(t, Chirp, s.Scheme)
	assert.Equal(t, 10000, s.NumSamples)
	assert.InDelta(t, 10e-6, s.Duration, 1e-15)
	assert.InDelta(t, 1.0, s.Peak, 1e-9)
	assert.Equal(t, "fixed", s.Policy)
	assert.Zero(t, s.SymbolEnergy)
	assert.LessOrEqual(t, s.CodeMin, uint16(8))
	assert.Equal(t, modem.MaxCode(12), s.CodeMax, "the first sample is cos(0) = 1")
	assert.False(t, math.IsNaN(s.SymbolEnergy))
}
