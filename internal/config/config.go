// Package config holds the synthesizer parameters, loaded from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeongseonghan/iqsynth/internal/modem"
)

// Source kinds.
const (
	SourceRandom  = "random"
	SourcePayload = "payload"
	SourceBits    = "bits"
)

// PolicyAuto lets each scheme pick its own DAC policy.
const PolicyAuto = "auto"

// Fixed-policy clipping behaviour.
const (
	ClipError = "error"
	ClipWarn  = "warn"
)

// MaxNumBits bounds the random bit count of a single generation.
const MaxNumBits = 1 << 24

// Environment variables read by ApplyEnv.
const (
	EnvSeed      = "IQSYNTH_SEED"
	EnvDACBits   = "IQSYNTH_DAC_BITS"
	EnvDACPolicy = "IQSYNTH_DAC_POLICY"
	EnvRemainder = "IQSYNTH_REMAINDER"
	EnvPayload   = "IQSYNTH_PAYLOAD"
	EnvOnClip    = "IQSYNTH_DAC_ON_CLIP"
)

type Config struct {
	Seed      uint64 `yaml:"seed" json:"seed"`
	Remainder string `yaml:"remainder" json:"remainder"`

	Source Source       `yaml:"source" json:"source"`
	BPSK   Lowpass      `yaml:"bpsk" json:"bpsk"`
	QPSK   Lowpass      `yaml:"qpsk" json:"qpsk"`
	QAM16  RaisedCosine `yaml:"qam16" json:"qam16"`
	OFDM   OFDM         `yaml:"ofdm" json:"ofdm"`
	Chirp  Chirp        `yaml:"chirp" json:"chirp"`
	DAC    DAC          `yaml:"dac" json:"dac"`
}

// Source selects where the bitstream comes from. Bits holds a "1011..."
// string for the bits kind.
type Source struct {
	Kind    string `yaml:"kind" json:"kind"`
	Payload string `yaml:"payload" json:"payload,omitempty"`
	Bits    string `yaml:"bits" json:"bits,omitempty"`
	FEC     bool   `yaml:"fec" json:"fec"`
}

// Lowpass configures a PSK chain shaped by a windowed-sinc low-pass filter.
// For BPSK the symbol rate is the bit rate.
type Lowpass struct {
	SampleRate float64 `yaml:"sample_rate" json:"sampleRate"`
	SymbolRate float64 `yaml:"symbol_rate" json:"symbolRate"`
	NumBits    int     `yaml:"num_bits" json:"numBits"`
	Taps       int     `yaml:"taps" json:"taps"`
	Cutoff     float64 `yaml:"cutoff" json:"cutoff"`
}

// RaisedCosine configures the 16-QAM chain.
type RaisedCosine struct {
	SampleRate float64 `yaml:"sample_rate" json:"sampleRate"`
	SymbolRate float64 `yaml:"symbol_rate" json:"symbolRate"`
	NumBits    int     `yaml:"num_bits" json:"numBits"`
	Rolloff    float64 `yaml:"rolloff" json:"rolloff"`
	Span       int     `yaml:"span" json:"span"`
}

type OFDM struct {
	SampleRate float64 `yaml:"sample_rate" json:"sampleRate"`
	FFTSize    int     `yaml:"fft_size" json:"fftSize"`
	CPLen      int     `yaml:"cp_len" json:"cpLen"`
	NumSymbols int     `yaml:"num_symbols" json:"numSymbols"`
	Modulation string  `yaml:"modulation" json:"modulation"`
	Active     []int   `yaml:"active_subcarriers" json:"activeSubcarriers"`
}

type Chirp struct {
	SampleRate float64 `yaml:"sample_rate" json:"sampleRate"`
	Duration   float64 `yaml:"duration" json:"duration"`
	Bandwidth  float64 `yaml:"bandwidth" json:"bandwidth"`
	StartFreq  float64 `yaml:"start_freq" json:"startFreq"`
}

type DAC struct {
	Bits   int     `yaml:"bits" json:"bits"`
	Policy string  `yaml:"policy" json:"policy"`
	Lo     float64 `yaml:"lo" json:"lo"`
	Hi     float64 `yaml:"hi" json:"hi"`
	OnClip string  `yaml:"on_clip" json:"onClip"`
}

// Default returns the reference parameter set.
func Default() Config {
	return Config{
		Seed:      1,
		Remainder: "reject",
		Source:    Source{Kind: SourceRandom},
		BPSK: Lowpass{
			SampleRate: 100e6,
			SymbolRate: 5e6,
			NumBits:    100,
			Taps:       101,
			Cutoff:     0.2,
		},
		QPSK: Lowpass{
			SampleRate: 100e6,
			SymbolRate: 10e6,
			NumBits:    100,
			Taps:       101,
			Cutoff:     0.2,
		},
		QAM16: RaisedCosine{
			SampleRate: 100e6,
			SymbolRate: 10e6,
			NumBits:    1000,
			Rolloff:    0.35,
			Span:       10,
		},
		OFDM: OFDM{
			SampleRate: modem.RefSampleRate,
			FFTSize:    modem.RefFFTSize,
			CPLen:      modem.RefCPLen,
			NumSymbols: 20,
			Modulation: "qpsk",
			Active:     modem.ReferenceSubcarriers(),
		},
		Chirp: Chirp{
			SampleRate: 1e9,
			Duration:   10e-6,
			Bandwidth:  250e6,
		},
		DAC: DAC{
			Bits:   12,
			Policy: PolicyAuto,
			Lo:     -1,
			Hi:     1,
			OnClip: ClipError,
		},
	}
}

// Load reads a YAML file over the defaults, so a file may set only the
// fields it cares about.
func Load(filename string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (if non-empty) into the process environment and
// then applies the IQSYNTH_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv(EnvDACBits); ok {
		bits, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDACBits, err)
		}
		c.DAC.Bits = bits
	}
	if v, ok := os.LookupEnv(EnvDACPolicy); ok {
		c.DAC.Policy = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvRemainder); ok {
		c.Remainder = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvPayload); ok {
		c.Source.Kind = SourcePayload
		c.Source.Payload = v
	}
	if v, ok := os.LookupEnv(EnvOnClip); ok {
		c.DAC.OnClip = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.RemainderPolicy(); err != nil {
		errs = append(errs, err)
	}
	switch c.Source.Kind {
	case SourceRandom:
	case SourcePayload:
		if c.Source.Payload == "" {
			errs = append(errs, errors.New("source: payload kind needs a non-empty payload"))
		}
	case SourceBits:
		if bits, err := modem.ParseBits(c.Source.Bits); err != nil {
			errs = append(errs, fmt.Errorf("source: %w", err))
		} else if len(bits) == 0 || len(bits) > MaxNumBits {
			errs = append(errs, fmt.Errorf("source: bits kind needs 1 to %d bits, got %d", MaxNumBits, len(bits)))
		}
	default:
		errs = append(errs, fmt.Errorf("source: unknown kind %q", c.Source.Kind))
	}

	errs = append(errs, c.BPSK.validate("bpsk"), c.QPSK.validate("qpsk"), c.QAM16.validate(), c.OFDM.validate())
	if _, err := c.Chirp.Config().Phase(); err != nil {
		errs = append(errs, fmt.Errorf("chirp: %w", err))
	}
	if _, err := c.DAC.Quantizer(modem.PolicyFixed); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DAC.ClipFatal(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RemainderPolicy parses the remainder field.
func (c Config) RemainderPolicy() (modem.RemainderPolicy, error) {
	p, err := modem.ParseRemainderPolicy(c.Remainder)
	if err != nil {
		return p, fmt.Errorf("remainder: %w", err)
	}
	return p, nil
}

// SamplesPerSymbol returns sampleRate/symbolRate, which must be a positive
// integer.
func SamplesPerSymbol(sampleRate, symbolRate float64) (int, error) {
	if !(sampleRate > 0) || !(symbolRate > 0) || math.IsInf(sampleRate, 0) || math.IsInf(symbolRate, 0) {
		return 0, fmt.Errorf("sample rate %g and symbol rate %g must be positive", sampleRate, symbolRate)
	}
	ratio := sampleRate / symbolRate
	sps := math.Round(ratio)
	if sps < 1 || math.Abs(ratio-sps) > 1e-9*ratio {
		return 0, fmt.Errorf("sample rate %g is not an integer multiple of symbol rate %g", sampleRate, symbolRate)
	}
	return int(sps), nil
}

// checkNumBits rejects negative counts and counts above MaxNumBits.
func checkNumBits(n int) error {
	if n < 0 || n > MaxNumBits {
		return fmt.Errorf("num_bits %d outside [0, %d]", n, MaxNumBits)
	}
	return nil
}

func (l Lowpass) SamplesPerSymbol() (int, error) {
	return SamplesPerSymbol(l.SampleRate, l.SymbolRate)
}

func (l Lowpass) validate(name string) error {
	if _, err := l.SamplesPerSymbol(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := checkNumBits(l.NumBits); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := modem.DesignLowpass(l.Taps, l.Cutoff); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r RaisedCosine) SamplesPerSymbol() (int, error) {
	return SamplesPerSymbol(r.SampleRate, r.SymbolRate)
}

func (r RaisedCosine) validate() error {
	sps, err := r.SamplesPerSymbol()
	if err != nil {
		return fmt.Errorf("qam16: %w", err)
	}
	if err := checkNumBits(r.NumBits); err != nil {
		return fmt.Errorf("qam16: %w", err)
	}
	if _, err := modem.DesignRaisedCosine(r.Rolloff, sps, r.Span); err != nil {
		return fmt.Errorf("qam16: %w", err)
	}
	return nil
}

// Layout returns the framer configuration.
func (o OFDM) Layout() modem.OFDMConfig {
	active := make([]int, len(o.Active))
	copy(active, o.Active)
	return modem.OFDMConfig{FFTSize: o.FFTSize, CPLen: o.CPLen, Active: active}
}

func (o OFDM) validate() error {
	if !(o.SampleRate > 0) {
		return fmt.Errorf("ofdm: sample rate %g must be positive", o.SampleRate)
	}
	if o.NumSymbols < 1 {
		return fmt.Errorf("ofdm: num_symbols %d must be at least 1", o.NumSymbols)
	}
	mod, err := modem.ParseModulation(o.Modulation)
	if err != nil {
		return fmt.Errorf("ofdm: %w", err)
	}
	if err := o.Layout().Validate(); err != nil {
		return fmt.Errorf("ofdm: %w", err)
	}
	if o.NumSymbols > MaxNumBits/(len(o.Active)*mod.BitsPerSymbol()) {
		return fmt.Errorf("ofdm: num_symbols %d carries more than %d bits", o.NumSymbols, MaxNumBits)
	}
	return nil
}

// Config returns the generator parameters.
func (c Chirp) Config() modem.ChirpConfig {
	return modem.ChirpConfig{
		SampleRate: c.SampleRate,
		Duration:   c.Duration,
		Bandwidth:  c.Bandwidth,
		StartFreq:  c.StartFreq,
	}
}

// Quantizer builds the converter. auto is used when Policy is "auto" or empty.
func (d DAC) Quantizer(auto modem.DACPolicy) (*modem.Quantizer, error) {
	policy := auto
	if d.Policy != "" && !strings.EqualFold(d.Policy, PolicyAuto) {
		p, err := modem.ParseDACPolicy(d.Policy)
		if err != nil {
			return nil, fmt.Errorf("dac: %w", err)
		}
		policy = p
	}
	q := &modem.Quantizer{Bits: d.Bits, Policy: policy, Lo: d.Lo, Hi: d.Hi}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("dac: %w", err)
	}
	return q, nil
}

// ClipFatal reports whether Fixed-policy clipping fails a generation.
// An empty OnClip means ClipError.
func (d DAC) ClipFatal() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(d.OnClip)) {
	case "", ClipError:
		return true, nil
	case ClipWarn:
		return false, nil
	}
	return true, fmt.Errorf("dac: unknown on_clip %q (want %s or %s)", d.OnClip, ClipError, ClipWarn)
}
