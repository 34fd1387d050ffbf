package lfsr

import (
	"io"

	"github.com/icza/bitio"
)

// Period returns the number of clocks after which the register returns to
// its starting value. The cycle length is bounded by 2^width but is shorter
// for non-primitive tap polynomials. If the seed sits on a tail leading
// into a cycle rather than on a cycle itself, 0 is returned.
func (spec *RegisterSpec) Period(seed uint64) uint64 {
	s := spec.NewState(seed)
	start := s.value
	var period uint64
	for {
		s.NextBit()
		period++
		if s.value == start {
			return period
		}
		if period > spec.mask {
			return 0
		}
	}
}

// WriteBits clocks the register nbits times and writes the raw output bit
// sequence to w, most significant bit of each byte first. The final partial
// byte, if any, is zero padded.
func (spec *RegisterSpec) WriteBits(w io.Writer, seed uint64, nbits int) error {
	bw := bitio.NewWriter(w)
	s := spec.NewState(seed)
	for i := 0; i < nbits; i++ {
		if err := bw.WriteBool(s.NextBit() == 1); err != nil {
			return err
		}
	}
	return bw.Close()
}
