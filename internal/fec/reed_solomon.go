package fec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Default RS(255,223) layout: 223 data shards, 32 parity shards.
const (
	DefaultDataShards   = 223
	DefaultParityShards = 32
)

// lengthPrefix is the size of the payload length stored ahead of the data.
const lengthPrefix = 4

// ErrCorrupt is returned when a protected block fails its CRC after
// Reed-Solomon reconstruction.
var ErrCorrupt = errors.New("fec: payload failed CRC check")

// Codec protects payload bytes with a CRC-32 and Reed-Solomon parity before
// they are expanded into a bitstream.
//
// Layout before sharding: [len(4B)][payload][CRC-32(4B)], split over the data
// shards with zero padding, followed by the parity shards.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec creates the default RS(255,223) codec.
func NewCodec() (*Codec, error) {
	return NewCodecCustom(DefaultDataShards, DefaultParityShards)
}

// NewCodecCustom creates a codec with custom shard counts.
func NewCodecCustom(dataShards, parityShards int) (*Codec, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("create reed-solomon encoder: %w", err)
	}
	return &Codec{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

// DataShards returns the number of data shards.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the number of parity shards.
func (c *Codec) ParityShards() int { return c.parityShards }

// Protect frames payload with its length and CRC-32 and appends parity.
// The result length is a multiple of DataShards+ParityShards.
func (c *Codec) Protect(payload []byte) ([]byte, error) {
	framed := make([]byte, lengthPrefix, lengthPrefix+len(payload)+CRCSize)
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	framed = append(framed, payload...)
	framed = AppendCRC32(framed)

	shards, err := c.enc.Split(framed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	out := make([]byte, 0, len(shards)*len(shards[0]))
	for _, shard := range shards {
		out = append(out, shard...)
	}
	return out, nil
}

// EncodedLen reads the length prefix at the head of a Protect output and
// returns the size of the whole protected block. Trailing bytes past that
// size, such as symbol padding, are not part of the block.
func (c *Codec) EncodedLen(encoded []byte) (int, error) {
	if len(encoded) < lengthPrefix {
		return 0, ErrCorrupt
	}
	framed := lengthPrefix + int(binary.BigEndian.Uint32(encoded)) + CRCSize
	shardSize := (framed + c.dataShards - 1) / c.dataShards
	n := shardSize * (c.dataShards + c.parityShards)
	if n > len(encoded) {
		return 0, fmt.Errorf("%w: block of %d bytes truncated to %d", ErrCorrupt, n, len(encoded))
	}
	return n, nil
}

// Recover reverses Protect. Shards listed in erasures are treated as lost
// and rebuilt from parity before the CRC is checked.
func (c *Codec) Recover(encoded []byte, erasures ...int) ([]byte, error) {
	total := c.dataShards + c.parityShards
	if len(encoded) == 0 || len(encoded)%total != 0 {
		return nil, fmt.Errorf("encoded size %d not divisible by %d shards", len(encoded), total)
	}
	size := len(encoded) / total

	shards := make([][]byte, total)
	for i := range shards {
		shards[i] = make([]byte, size)
		copy(shards[i], encoded[i*size:(i+1)*size])
	}
	for _, idx := range erasures {
		if idx >= 0 && idx < total {
			shards[idx] = nil
		}
	}

	if err := c.enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if !ok {
		return nil, ErrCorrupt
	}

	var framed []byte
	for _, shard := range shards[:c.dataShards] {
		framed = append(framed, shard...)
	}
	if len(framed) < lengthPrefix+CRCSize {
		return nil, ErrCorrupt
	}
	n := int(binary.BigEndian.Uint32(framed))
	if n > len(framed)-lengthPrefix-CRCSize {
		return nil, ErrCorrupt
	}
	body, ok := VerifyCRC32(framed[:lengthPrefix+n+CRCSize])
	if !ok {
		return nil, ErrCorrupt
	}
	return body[lengthPrefix:], nil
}
