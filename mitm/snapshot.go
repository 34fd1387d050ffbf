package mitm

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// tableSnapshot is the serialized form of a packed Table. Only the occupied
// slots are written; the arena is rebuilt on load.
type tableSnapshot struct {
	N       int      `cbor:"n"`
	Width   uint     `cbor:"width"`
	Offsets []uint   `cbor:"offsets"`
	Keys    []uint64 `cbor:"keys"`
	Seeds   []uint64 `cbor:"seeds"`
	Dropped uint64   `cbor:"dropped"`
}

// WriteTo serializes the table so a later run against the same register
// specification can skip the enumeration phase. Only tables whose sequences
// pack into uint64 keys can be serialized.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	if t.m != nil {
		return 0, fmt.Errorf("mitm: tables with %d-byte sequences cannot be serialized (max %d)", t.n, maxPackedLen)
	}
	snap := tableSnapshot{
		N:       t.n,
		Width:   t.width,
		Offsets: t.offsets,
		Keys:    make([]uint64, 0, t.count),
		Seeds:   make([]uint64, 0, t.count),
		Dropped: t.dropped,
	}
	for _, e := range t.entries {
		if e.seed != 0 {
			snap.Keys = append(snap.Keys, e.key)
			snap.Seeds = append(snap.Seeds, e.seed-1)
		}
	}

	cw := &countWriter{w: w}
	if err := cbor.NewEncoder(cw).Encode(&snap); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

// ReadFrom rebuilds the table from a snapshot written by WriteTo.
func (t *Table) ReadFrom(r io.Reader) (int64, error) {
	cr := &countReader{r: r}
	var snap tableSnapshot
	if err := cbor.NewDecoder(cr).Decode(&snap); err != nil {
		return cr.n, err
	}
	if snap.N < 1 || snap.N > maxPackedLen {
		return cr.n, fmt.Errorf("mitm: invalid snapshot sequence length %d", snap.N)
	}
	if len(snap.Keys) != len(snap.Seeds) {
		return cr.n, errors.New("mitm: corrupted snapshot, keys/seeds length mismatch")
	}

	size := uint64(1)
	for size < 2*uint64(len(snap.Keys)) {
		size <<= 1
	}
	*t = Table{
		n:       snap.N,
		width:   snap.Width,
		offsets: snap.Offsets,
		entries: make([]tableEntry, size),
		dropped: snap.Dropped,
	}
	t.shift = shiftFor(size)

	mask := size - 1
	for i, key := range snap.Keys {
		for j := mix(key) >> t.shift; ; j = (j + 1) & mask {
			e := &t.entries[j]
			if e.seed == 0 {
				e.key = key
				e.seed = snap.Seeds[i] + 1
				t.count++
				break
			}
			if e.key == key {
				return cr.n, errors.New("mitm: corrupted snapshot, duplicate key")
			}
		}
	}
	return cr.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countReader struct {
	r io.Reader
	n int64
}

func (cr *countReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
