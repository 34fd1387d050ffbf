package lfsr

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func TestNewRegisterSpec(t *testing.T) {
	assert := require.New(t)

	// taps are 1-based from the MSB; offset = width - t, input order kept
	for _, tc := range []struct {
		width   uint
		rawTaps []int
		offsets []uint
	}{
		{4, []int{1, 2}, []uint{3, 2}},
		{5, []int{1, 3}, []uint{4, 2}},
		{12, []int{2, 7}, []uint{10, 5}},
		{19, []int{5, 11}, []uint{14, 8}},
		{8, []int{8, 1}, []uint{0, 7}},
	} {
		spec, err := NewRegisterSpec(tc.width, tc.rawTaps)
		assert.NoError(err)
		assert.Equal(tc.offsets, spec.TapOffsets())
		assert.Equal(tc.width, spec.Width())
	}

	_, err := NewRegisterSpec(4, []int{0})
	assert.ErrorIs(err, ErrInvalidTap)
	_, err = NewRegisterSpec(4, []int{5})
	assert.ErrorIs(err, ErrInvalidTap)
	_, err = NewRegisterSpec(4, []int{-1})
	assert.ErrorIs(err, ErrInvalidTap)
	_, err = NewRegisterSpec(4, []int{1, 1})
	assert.Error(err)
	_, err = NewRegisterSpec(4, nil)
	assert.Error(err)
	_, err = NewRegisterSpec(0, []int{1})
	assert.ErrorIs(err, ErrInvalidWidth)
	_, err = NewRegisterSpec(65, []int{1})
	assert.ErrorIs(err, ErrInvalidWidth)
}

// reference vectors computed with the lab's reference implementation
func TestStreamVectors(t *testing.T) {
	assert := require.New(t)

	spec4, err := NewRegisterSpec(4, []int{1, 2})
	assert.NoError(err)
	assert.Equal([]byte{217, 182, 109, 219}, spec4.Stream(9, 4))

	spec12, err := NewRegisterSpec(12, []int{2, 7})
	assert.NoError(err)
	// seed 1 collapses to the zero state after one byte: non-primitive taps
	assert.Equal([]byte{1, 0, 0, 0, 0, 0, 0, 0}, spec12.Stream(1, 8))

	spec19, err := NewRegisterSpec(19, []int{5, 11})
	assert.NoError(err)
	assert.Equal([]byte{52, 18, 144, 210, 78, 159, 201, 245}, spec19.Stream(0x1234, 8))

	s := spec19.NewState(0x1234)
	s.AppendStream(nil, 8)
	assert.Equal(uint64(242096), s.Value())
}

func TestStreamComposability(t *testing.T) {
	assert := require.New(t)

	spec, err := NewRegisterSpec(12, []int{2, 7})
	assert.NoError(err)

	for _, seed := range []uint64{0, 1, 9, 0x5a3, 0xfff} {
		full := spec.Stream(seed, 12)

		s := spec.NewState(seed)
		head := s.AppendStream(nil, 5)
		tail := s.AppendStream(nil, 7)
		assert.Equal(full, append(head, tail...))
	}
}

func TestSeedMasking(t *testing.T) {
	assert := require.New(t)

	spec, err := NewRegisterSpec(4, []int{1, 2})
	assert.NoError(err)

	// seeds wider than the register behave as their masked value
	assert.Equal(spec.Stream(9, 4), spec.Stream(9|1<<10, 4))
	s := spec.NewState(^uint64(0))
	assert.Less(s.Value(), uint64(16))
}

func TestRegisterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("tap offsets are in [0, width-1]", prop.ForAll(
		func(width uint8, tap uint8) bool {
			w := uint(width%32) + 1
			t := int(uint(tap)%w) + 1
			spec, err := NewRegisterSpec(w, []int{t})
			if err != nil {
				return false
			}
			return spec.TapOffsets()[0] < w
		},
		gen.UInt8(), gen.UInt8(),
	))

	properties.Property("state stays below 2^width", prop.ForAll(
		func(seed uint64) bool {
			spec, err := NewRegisterSpec(19, []int{5, 11})
			if err != nil {
				return false
			}
			s := spec.NewState(seed)
			for i := 0; i < 64; i++ {
				s.NextBit()
				if s.Value() >= 1<<19 {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
	))

	properties.Property("streams are a pure function of the seed", prop.ForAll(
		func(seed uint64) bool {
			spec, err := NewRegisterSpec(12, []int{2, 7})
			if err != nil {
				return false
			}
			return bytes.Equal(spec.Stream(seed, 16), spec.Stream(seed, 16))
		},
		gen.UInt64(),
	))

	properties.Property("generation composes", prop.ForAll(
		func(seed uint64, split uint8) bool {
			spec, err := NewRegisterSpec(19, []int{5, 11})
			if err != nil {
				return false
			}
			n := int(split % 16)
			full := spec.Stream(seed, 16)
			s := spec.NewState(seed)
			got := s.AppendStream(nil, n)
			got = s.AppendStream(got, 16-n)
			return bytes.Equal(full, got)
		},
		gen.UInt64(), gen.UInt8(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPeriod(t *testing.T) {
	assert := require.New(t)

	spec, err := NewRegisterSpec(4, []int{1, 2})
	assert.NoError(err)

	// {6, 11, 13} is a 3-cycle; 9 sits on a tail leading into it
	assert.Equal(uint64(3), spec.Period(6))
	assert.Equal(uint64(0), spec.Period(9))
	// the zero state is a fixed point
	assert.Equal(uint64(1), spec.Period(0))
}

func TestWriteBits(t *testing.T) {
	assert := require.New(t)

	spec, err := NewRegisterSpec(4, []int{1, 2})
	assert.NoError(err)

	// first byte of Stream(9, .) is 217 = 0b11011001 LSB-first,
	// i.e. output bits 1,0,0,1,1,0,1,1 -> 0b10011011 written MSB-first
	var buf bytes.Buffer
	assert.NoError(spec.WriteBits(&buf, 9, 8))
	assert.Equal([]byte{0b10011011}, buf.Bytes())

	// partial byte is zero padded
	buf.Reset()
	assert.NoError(spec.WriteBits(&buf, 9, 4))
	assert.Equal([]byte{0b10010000}, buf.Bytes())
}

func BenchmarkNextByte(b *testing.B) {
	spec, err := NewRegisterSpec(19, []int{5, 11})
	if err != nil {
		b.Fatal(err)
	}
	s := spec.NewState(0x1234)
	b.ResetTimer()
	var sink byte
	for i := 0; i < b.N; i++ {
		sink ^= s.NextByte()
	}
	_ = sink
}
