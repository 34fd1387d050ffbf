// Package mitm recovers the seeds of the two-register keystream generator
// from a short keystream header using a meet-in-the-middle search: the
// output space of the second register is tabulated once, then the first
// register's space is scanned against the table. This costs
// O((2^w1 + 2^w2)·n) time and O(2^w2·n) memory instead of the O(2^w1·2^w2)
// pairwise search.
package mitm

import (
	"math/bits"

	"github.com/cryptolab/lfsrcrack/lfsr"
)

// maxPackedLen is the longest sequence that packs into a single uint64 key.
const maxPackedLen = 8

// Table maps the first-n-byte output sequence of the enumerated register to
// the smallest seed observed to produce it. It is built once per recovery,
// read-only during the scan.
//
// When two seeds share the same n-byte prefix only the smaller is kept.
// If they diverge after byte n, a header-only match may therefore recover a
// seed other than the one that produced the ciphertext; callers should
// verify the full decryption against a structural marker and not trust the
// header match alone.
type Table struct {
	n       int    // sequence length in bytes
	width   uint   // width of the enumerated register
	offsets []uint // its tap offsets, to reject mismatched reuse

	// open addressing over a flat entry arena, for n <= maxPackedLen
	entries []tableEntry
	shift   uint

	// fallback for longer sequences
	m map[string]uint64

	count   int    // unique sequences stored
	dropped uint64 // inserts discarded by the smallest-seed policy
}

type tableEntry struct {
	key  uint64
	seed uint64 // stored as seed+1; 0 marks a free slot
}

// newTable sizes a table for up to space sequences of n bytes each.
func newTable(n int, spec *lfsr.RegisterSpec, space uint64) *Table {
	t := &Table{
		n:       n,
		width:   spec.Width(),
		offsets: spec.TapOffsets(),
	}
	if n > maxPackedLen {
		t.m = make(map[string]uint64, space)
		return t
	}
	// next power of two >= 2*space keeps the load factor under 1/2
	size := uint64(1)
	for size < 2*space {
		size <<= 1
	}
	t.entries = make([]tableEntry, size)
	t.shift = shiftFor(size)
	return t
}

// shiftFor returns the right shift mapping a mixed 64-bit key onto the
// arena of the given power-of-two size.
func shiftFor(size uint64) uint {
	return uint(64 - bits.TrailingZeros64(size))
}

// packSeq packs up to 8 sequence bytes into a uint64 key, first byte lowest.
func packSeq(seq []byte) uint64 {
	var k uint64
	for i, b := range seq {
		k |= uint64(b) << (8 * i)
	}
	return k
}

// mix is the 64-bit murmur3 finalizer, used to spread packed keys over the
// entry arena.
func mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// insert records seq -> seed, keeping the smallest seed per sequence.
func (t *Table) insert(seq []byte, seed uint64) {
	if t.m != nil {
		k := string(seq)
		if prev, ok := t.m[k]; ok {
			t.dropped++
			if seed < prev {
				t.m[k] = seed
			}
			return
		}
		t.m[k] = seed
		t.count++
		return
	}

	key := packSeq(seq)
	mask := uint64(len(t.entries) - 1)
	for i := mix(key) >> t.shift; ; i = (i + 1) & mask {
		e := &t.entries[i]
		if e.seed == 0 {
			e.key = key
			e.seed = seed + 1
			t.count++
			return
		}
		if e.key == key {
			t.dropped++
			if seed+1 < e.seed {
				e.seed = seed + 1
			}
			return
		}
	}
}

// lookup returns the smallest seed recorded for seq, if any.
func (t *Table) lookup(seq []byte) (uint64, bool) {
	if t.m != nil {
		seed, ok := t.m[string(seq)]
		return seed, ok
	}

	key := packSeq(seq)
	mask := uint64(len(t.entries) - 1)
	for i := mix(key) >> t.shift; ; i = (i + 1) & mask {
		e := t.entries[i]
		if e.seed == 0 {
			return 0, false
		}
		if e.key == key {
			return e.seed - 1, true
		}
	}
}

// Len returns the number of unique sequences stored.
func (t *Table) Len() int {
	return t.count
}

// SeqLen returns the sequence length the table was built for.
func (t *Table) SeqLen() int {
	return t.n
}

// NbDropped returns how many inserts were discarded in favor of a smaller
// seed producing the same sequence.
func (t *Table) NbDropped() uint64 {
	return t.dropped
}

// matches reports whether the table was built from the given register spec
// and sequence length.
func (t *Table) matches(spec *lfsr.RegisterSpec, n int) bool {
	if t.n != n || t.width != spec.Width() {
		return false
	}
	offsets := spec.TapOffsets()
	if len(offsets) != len(t.offsets) {
		return false
	}
	for i := range offsets {
		if offsets[i] != t.offsets[i] {
			return false
		}
	}
	return true
}
