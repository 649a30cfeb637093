package synth

import (
	"fmt"

	"github.com/jeongseonghan/iqsynth/internal/config"
	"github.com/jeongseonghan/iqsynth/internal/fec"
	"github.com/jeongseonghan/iqsynth/internal/logx"
	"github.com/jeongseonghan/iqsynth/internal/modem"
)

// sourceBits returns the bitstream for one generation.
//
// Random sources draw n bits from a generator seeded for the scheme. Payload
// sources expand the configured payload (FEC-protected when enabled) and bits
// sources parse the configured "1011..." string; both are zero-padded to a
// multiple of block, so n is ignored.
func sourceBits(cfg config.Config, scheme Scheme, n, block int) ([]byte, error) {
	switch cfg.Source.Kind {
	case "", config.SourceRandom:
		return modem.NewSeededBitSource(scheme.Seed(cfg.Seed)).Bits(n)
	case config.SourcePayload:
		data, err := payloadBytes(cfg.Source)
		if err != nil {
			return nil, err
		}
		bits := modem.PadBits(modem.BitsFromBytes(data), block)
		logx.Debugf("%s: payload %d bytes -> %d bits", scheme, len(data), len(bits))
		return bits, nil
	case config.SourceBits:
		bits, err := modem.ParseBits(cfg.Source.Bits)
		if err != nil {
			return nil, err
		}
		if len(bits) == 0 {
			return nil, fmt.Errorf("bits source has no bits")
		}
		return modem.PadBits(bits, block), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

// payloadBytes returns the payload, protected with CRC and Reed-Solomon
// parity when src.FEC is set.
func payloadBytes(src config.Source) ([]byte, error) {
	if src.Payload == "" {
		return nil, fmt.Errorf("payload source has no payload")
	}
	data := []byte(src.Payload)
	if !src.FEC {
		return data, nil
	}
	codec, err := fec.NewCodec()
	if err != nil {
		return nil, err
	}
	protected, err := codec.Protect(data)
	if err != nil {
		return nil, fmt.Errorf("protect payload: %w", err)
	}
	return protected, nil
}

// recoverPayload packs bits back into bytes. FEC-protected payloads are
// trimmed to the protected block, reconstructed and CRC-checked; plain
// payloads keep any whole bytes of zero padding.
func recoverPayload(src config.Source, bits []byte) ([]byte, error) {
	data := modem.BitsToBytes(bits)
	if !src.FEC {
		return data, nil
	}
	codec, err := fec.NewCodec()
	if err != nil {
		return nil, err
	}
	n, err := codec.EncodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("recover payload: %w", err)
	}
	payload, err := codec.Recover(data[:n])
	if err != nil {
		return nil, fmt.Errorf("recover payload: %w", err)
	}
	return payload, nil
}
