// Package lfsr implements fixed-width linear-feedback shift registers
// clocked in the Fibonacci configuration: the output bit is the register's
// least significant bit, and the feedback bit (the XOR of the bits at the
// tap offsets) is shifted in at the most significant position.
package lfsr

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
)

// MaxWidth is the largest supported register width, so that a register
// state always fits a uint64.
const MaxWidth = 64

var (
	// ErrInvalidTap is returned when a raw tap position falls outside
	// [1, width].
	ErrInvalidTap = errors.New("tap position out of range")

	// ErrInvalidWidth is returned when the register width falls outside
	// [1, MaxWidth].
	ErrInvalidWidth = errors.New("register width out of range")
)

// RegisterSpec describes one register: its width in bits and the set of
// tap offsets feeding the feedback bit. It is immutable once constructed
// and safe to share across goroutines.
type RegisterSpec struct {
	width   uint
	offsets []uint // 0-based from LSB, input order preserved
	taps    *bitset.BitSet
	mask    uint64 // (1 << width) - 1
	fbMask  uint64 // OR of 1 << offset, for the feedback parity
}

// NewRegisterSpec builds a RegisterSpec from a width and raw tap positions.
//
// Raw taps are 1-based and counted from the most significant bit, the way
// generator polynomials are usually written down; tap t maps to the 0-based
// offset width-t from the least significant bit. A tap outside [1, width]
// or given twice is a configuration error.
func NewRegisterSpec(width uint, rawTaps []int) (*RegisterSpec, error) {
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidWidth, width, MaxWidth)
	}
	if len(rawTaps) == 0 {
		return nil, errors.New("at least one tap is required")
	}

	spec := &RegisterSpec{
		width:   width,
		offsets: make([]uint, 0, len(rawTaps)),
		taps:    bitset.New(width),
	}
	if width == MaxWidth {
		spec.mask = ^uint64(0)
	} else {
		spec.mask = 1<<width - 1
	}

	for _, t := range rawTaps {
		if t < 1 || uint(t) > width {
			return nil, fmt.Errorf("%w: %d (width %d)", ErrInvalidTap, t, width)
		}
		offset := width - uint(t)
		if spec.taps.Test(offset) {
			return nil, fmt.Errorf("duplicate tap position %d (width %d)", t, width)
		}
		spec.taps.Set(offset)
		spec.offsets = append(spec.offsets, offset)
		spec.fbMask |= 1 << offset
	}

	return spec, nil
}

// Width returns the register width in bits.
func (spec *RegisterSpec) Width() uint {
	return spec.width
}

// Mask returns the width-bit mask applied after every transition.
func (spec *RegisterSpec) Mask() uint64 {
	return spec.mask
}

// TapOffsets returns the 0-based tap offsets, in the order the raw taps
// were given.
func (spec *RegisterSpec) TapOffsets() []uint {
	r := make([]uint, len(spec.offsets))
	copy(r, spec.offsets)
	return r
}

// Taps returns the tap offsets as a set.
func (spec *RegisterSpec) Taps() *bitset.BitSet {
	return spec.taps.Clone()
}

// SeedSpace returns the number of candidate seeds, 2^width.
// For width 64 the space does not fit a uint64 and 0 is returned.
func (spec *RegisterSpec) SeedSpace() uint64 {
	if spec.width == MaxWidth {
		return 0
	}
	return 1 << spec.width
}

func (spec *RegisterSpec) String() string {
	return fmt.Sprintf("lfsr(width=%d, taps=%v)", spec.width, spec.offsets)
}

// State is the running state of one register. The zero State is not usable;
// obtain one through RegisterSpec.NewState.
type State struct {
	spec  *RegisterSpec
	value uint64
}

// NewState seeds a register. Seeds wider than the register are masked.
func (spec *RegisterSpec) NewState(seed uint64) State {
	return State{spec: spec, value: seed & spec.mask}
}

// Value returns the current register value. It is always < 2^width.
func (s *State) Value() uint64 {
	return s.value
}

// NextBit clocks the register once and returns the output bit.
func (s *State) NextBit() uint8 {
	out := uint8(s.value & 1)
	fb := uint64(bits.OnesCount64(s.value&s.spec.fbMask)) & 1
	s.value = (s.value>>1 | fb<<(s.spec.width-1)) & s.spec.mask
	return out
}

// NextByte clocks the register eight times and packs the output bits
// LSB-first: the bit from clock i becomes bit i of the byte.
func (s *State) NextByte() byte {
	var b byte
	for i := 0; i < 8; i++ {
		b |= byte(s.NextBit()) << i
	}
	return b
}

// AppendStream clocks the register for n more bytes, appending them to dst.
// Generating n bytes and then m more from the same State equals the last m
// of a single n+m byte run.
func (s *State) AppendStream(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		dst = append(dst, s.NextByte())
	}
	return dst
}

// Stream returns the first n output bytes for the given seed. It is a pure
// function of (seed, width, taps, n).
func (spec *RegisterSpec) Stream(seed uint64, n int) []byte {
	s := spec.NewState(seed)
	return s.AppendStream(make([]byte, 0, n), n)
}
