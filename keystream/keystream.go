// Package keystream produces the cipher's keystream by clocking two
// registers in lockstep and combining their output bytes.
package keystream

import (
	"github.com/cryptolab/lfsrcrack/lfsr"
)

// Combine merges one output byte from each register into a keystream byte.
// The wire format sums modulo 255, not 256; the result is in [0, 254] and
// the value 255 never appears in a keystream.
func Combine(b1, b2 byte) byte {
	return byte((uint16(b1) + uint16(b2)) % 255)
}

// Generator holds the running state of both registers.
type Generator struct {
	r1, r2 lfsr.State
}

// New seeds both registers. The Generator restarted with the same seeds
// always produces the same sequence.
func New(spec1, spec2 *lfsr.RegisterSpec, seed1, seed2 uint64) *Generator {
	return &Generator{
		r1: spec1.NewState(seed1),
		r2: spec2.NewState(seed2),
	}
}

// Next advances both registers one byte and returns the combined keystream byte.
func (g *Generator) Next() byte {
	return Combine(g.r1.NextByte(), g.r2.NextByte())
}

// Append generates n more keystream bytes, appending them to dst.
func (g *Generator) Append(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		dst = append(dst, g.Next())
	}
	return dst
}

// Generate returns the next n keystream bytes.
func (g *Generator) Generate(n int) []byte {
	return g.Append(make([]byte, 0, n), n)
}

// XORBytes sets dst[i] = a[i] ^ b[i] for i < n where n is the shorter of
// a and b, and returns n. dst must have room for n bytes.
func XORBytes(dst, a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
	return n
}
