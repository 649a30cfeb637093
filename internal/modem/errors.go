package modem

import (
	"errors"
	"fmt"
)

// Stage names the pipeline stage that rejected its input.
type Stage string

const (
	StageSource Stage = "source"
	StageMapper Stage = "mapper"
	StageFilter Stage = "filter"
	StageShaper Stage = "shaper"
	StageOFDM   Stage = "ofdm"
	StageChirp  Stage = "chirp"
	StageDAC    Stage = "dac"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrLengthMismatch = errors.New("modem: bit count not a multiple of bits per symbol")
	ErrInvalidSymbol  = errors.New("modem: bit group not in mapping table")
	ErrFilterDesign   = errors.New("modem: invalid filter design parameter")
	ErrFrameConfig    = errors.New("modem: invalid OFDM frame configuration")
	ErrRange          = errors.New("modem: sample outside quantizer range")
	ErrParam          = errors.New("modem: invalid stage parameter")
)

// LengthMismatchError reports a bitstream whose length leaves a partial symbol.
type LengthMismatchError struct {
	Modulation    Modulation
	Length        int
	BitsPerSymbol int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: %s needs a multiple of %d bits, got %d (%d left over)",
		StageMapper, e.Modulation, e.BitsPerSymbol, e.Length, e.Length%e.BitsPerSymbol)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// InvalidSymbolError reports a bit group holding something other than 0/1.
type InvalidSymbolError struct {
	Stage Stage
	Index int // group index (mapper) or rune offset (bit parsing)
	Group []byte
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("%s: bit group %d %v is not binary", e.Stage, e.Index, e.Group)
}

func (e *InvalidSymbolError) Is(target error) bool { return target == ErrInvalidSymbol }

// FilterDesignError reports a filter parameter outside its valid domain.
type FilterDesignError struct {
	Design string
	Param  string
	Value  float64
	Reason string
}

func (e *FilterDesignError) Error() string {
	return fmt.Sprintf("%s: %s design: %s=%g %s", StageFilter, e.Design, e.Param, e.Value, e.Reason)
}

func (e *FilterDesignError) Is(target error) bool { return target == ErrFilterDesign }

// FrameConfigError reports an OFDM configuration or symbol count that cannot be framed.
type FrameConfigError struct {
	Reason string
}

func (e *FrameConfigError) Error() string {
	return fmt.Sprintf("%s: %s", StageOFDM, e.Reason)
}

func (e *FrameConfigError) Is(target error) bool { return target == ErrFrameConfig }

// RangeError reports samples that fall outside the quantizer's range.
// Index and Value describe the first offending sample.
type RangeError struct {
	Index int
	Value float64
	Lo    float64
	Hi    float64
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %d sample(s) outside [%g, %g], first at %d = %g",
		StageDAC, e.Count, e.Lo, e.Hi, e.Index, e.Value)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// ParamError reports a stage parameter that none of the specific errors cover.
type ParamError struct {
	Stage  Stage
	Param  string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s=%g %s", e.Stage, e.Param, e.Value, e.Reason)
}

func (e *ParamError) Is(target error) bool { return target == ErrParam }
