// Package synth runs the modem stages end to end for each waveform scheme.
package synth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jeongseonghan/iqsynth/internal/config"
	"github.com/jeongseonghan/iqsynth/internal/logx"
	"github.com/jeongseonghan/iqsynth/internal/modem"
)

// Generate synthesizes one scheme and quantizes it. Stage errors are wrapped
// with the scheme name and keep their modem sentinel for errors.Is.
//
// Fixed-policy clipping keeps the clamped codes and records the number of
// clipped samples in Result.Clipped. With dac.on_clip = error (the default)
// Generate returns that Result together with an error wrapping the
// *modem.RangeError; with warn it logs a warning and returns no error.
func Generate(cfg config.Config, scheme Scheme) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch scheme {
	case BPSK:
		res, err = generateLowpass(cfg, scheme, modem.ModBPSK, cfg.BPSK)
	case QPSK:
		res, err = generateLowpass(cfg, scheme, modem.ModQPSK, cfg.QPSK)
	case QAM16:
		res, err = generateQAM16(cfg)
	case OFDM:
		res, err = generateOFDM(cfg)
	case Chirp:
		res, err = generateChirp(cfg)
	default:
		return nil, fmt.Errorf("unknown scheme %q", scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scheme, err)
	}

	if cfg.Source.Kind == config.SourcePayload && len(res.Bits) > 0 {
		if res.Payload, err = recoverPayload(cfg.Source, res.Bits); err != nil {
			return nil, fmt.Errorf("%s: %w", scheme, err)
		}
	}

	if err := quantize(cfg.DAC, res); err != nil {
		if res.DACI == nil {
			return nil, fmt.Errorf("%s: %w", scheme, err)
		}
		return res, fmt.Errorf("%s: %w", scheme, err)
	}
	logx.Debugf("%s: %d bits, %d symbols, %d samples", scheme, len(res.Bits), len(res.Symbols), res.Waveform.Len())
	return res, nil
}

// GenerateAll runs the schemes concurrently. Results come back in the order
// of schemes; the first failure cancels the rest.
func GenerateAll(ctx context.Context, cfg config.Config, schemes []Scheme) ([]*Result, error) {
	results := make([]*Result, len(schemes))
	g, ctx := errgroup.WithContext(ctx)
	for i, scheme := range schemes {
		i, scheme := i, scheme
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Generate(cfg, scheme)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func mapper(cfg config.Config, mod modem.Modulation) (*modem.Mapper, error) {
	policy, err := cfg.RemainderPolicy()
	if err != nil {
		return nil, err
	}
	return &modem.Mapper{Mod: mod, Remainder: policy}, nil
}

func generateLowpass(cfg config.Config, scheme Scheme, mod modem.Modulation, p config.Lowpass) (*Result, error) {
	sps, err := p.SamplesPerSymbol()
	if err != nil {
		return nil, err
	}
	taps, err := modem.DesignLowpass(p.Taps, p.Cutoff)
	if err != nil {
		return nil, err
	}
	return shapeScheme(cfg, scheme, mod, p.NumBits, p.SampleRate, taps, sps, modem.ConvFull)
}

func generateQAM16(cfg config.Config) (*Result, error) {
	p := cfg.QAM16
	sps, err := p.SamplesPerSymbol()
	if err != nil {
		return nil, err
	}
	taps, err := modem.DesignRaisedCosine(p.Rolloff, sps, p.Span)
	if err != nil {
		return nil, err
	}
	return shapeScheme(cfg, QAM16, modem.Mod16QAM, p.NumBits, p.SampleRate, taps, sps, modem.ConvSame)
}

func shapeScheme(cfg config.Config, scheme Scheme, mod modem.Modulation, numBits int, fs float64, taps []float64, sps int, mode modem.ConvMode) (*Result, error) {
	m, err := mapper(cfg, mod)
	if err != nil {
		return nil, err
	}
	shaper, err := modem.NewShaper(taps, sps, mode)
	if err != nil {
		return nil, err
	}

	bits, err := sourceBits(cfg, scheme, numBits, mod.BitsPerSymbol())
	if err != nil {
		return nil, err
	}
	symbols, err := m.Map(bits)
	if err != nil {
		return nil, err
	}
	w, err := shaper.Shape(symbols, fs)
	if err != nil {
		return nil, err
	}
	decimated, err := shaper.Decimate(w, len(symbols))
	if err != nil {
		return nil, err
	}

	return &Result{
		Scheme:     scheme,
		Modulation: mod.String(),
		SampleRate: fs,
		Bits:       bits,
		Symbols:    symbols,
		Taps:       taps,
		Waveform:   w,
		Decimated:  decimated,
	}, nil
}

func generateOFDM(cfg config.Config) (*Result, error) {
	p := cfg.OFDM
	mod, err := modem.ParseModulation(p.Modulation)
	if err != nil {
		return nil, &modem.ParamError{Stage: modem.StageOFDM, Param: "modulation", Value: 0, Reason: err.Error()}
	}
	framer, err := modem.NewFramer(p.Layout())
	if err != nil {
		return nil, err
	}
	m, err := mapper(cfg, mod)
	if err != nil {
		return nil, err
	}

	block := framer.Config().NumActive() * mod.BitsPerSymbol()
	bits, err := sourceBits(cfg, OFDM, p.NumSymbols*block, block)
	if err != nil {
		return nil, err
	}
	symbols, err := m.Map(bits)
	if err != nil {
		return nil, err
	}
	w, frames, err := framer.Modulate(symbols, p.SampleRate)
	if err != nil {
		return nil, err
	}

	return &Result{
		Scheme:     OFDM,
		Modulation: mod.String(),
		SampleRate: p.SampleRate,
		Bits:       bits,
		Symbols:    symbols,
		Waveform:   w,
		Frames:     frames,
	}, nil
}

func generateChirp(cfg config.Config) (*Result, error) {
	w, err := cfg.Chirp.Config().New()
	if err != nil {
		return nil, err
	}
	return &Result{
		Scheme:     Chirp,
		Modulation: "LFM",
		SampleRate: w.SampleRate,
		Waveform:   w,
	}, nil
}

func quantize(d config.DAC, res *Result) error {
	fatal, err := d.ClipFatal()
	if err != nil {
		return err
	}
	q, err := d.Quantizer(res.Scheme.DefaultPolicy())
	if err != nil {
		return err
	}
	ic, qc, err := q.QuantizeIQ(res.Waveform)
	if err != nil && (ic == nil || !errors.Is(err, modem.ErrRange)) {
		return err
	}
	res.DACI, res.DACQ = ic, qc
	res.DACBits = q.Bits
	res.Policy = q.Policy
	if err == nil {
		return nil
	}
	res.Clipped = clippedCount(err)
	if fatal {
		return err
	}
	logx.Warnf("%s: %d samples clipped to the DAC range [%g, %g]", res.Scheme, res.Clipped, q.Lo, q.Hi)
	return nil
}

// clippedCount sums the clamp counts of every RangeError in err's tree.
func clippedCount(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n := 0
		for _, e := range joined.Unwrap() {
			n += clippedCount(e)
		}
		return n
	}
	var re *modem.RangeError
	if errors.As(err, &re) {
		return re.Count
	}
	return 0
}
