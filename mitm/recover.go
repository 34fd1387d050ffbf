package mitm

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cryptolab/lfsrcrack/keystream"
	"github.com/cryptolab/lfsrcrack/lfsr"
	"github.com/cryptolab/lfsrcrack/logger"
	"github.com/cryptolab/lfsrcrack/utils/parallel"
)

// ErrSeedNotFound is returned when the full seed space of the first
// register is exhausted without a table hit. It is a defined outcome, not a
// failure of the search itself; the caller may retry with a longer header.
var ErrSeedNotFound = errors.New("mitm: seed space exhausted without a match")

// Recoverer runs the meet-in-the-middle seed search for a fixed pair of
// register specifications.
type Recoverer struct {
	spec1, spec2 *lfsr.RegisterSpec
	nbTasks      int
	table        *Table
}

// Option configures a Recoverer.
type Option func(*Recoverer) error

// WithNbTasks sets the number of goroutines used by the seed scan;
// 1 forces a fully sequential search. Defaults to runtime.NumCPU().
func WithNbTasks(n int) Option {
	return func(r *Recoverer) error {
		if n < 1 {
			return fmt.Errorf("mitm: invalid number of tasks %d", n)
		}
		r.nbTasks = n
		return nil
	}
}

// WithTable reuses a previously built (or deserialized) recovery table
// instead of re-enumerating the second register. The table must have been
// built from the same register specification; this is checked when the
// header is supplied.
func WithTable(t *Table) Option {
	return func(r *Recoverer) error {
		if t == nil {
			return errors.New("mitm: nil table")
		}
		r.table = t
		return nil
	}
}

// NewRecoverer builds a Recoverer for the given register pair. spec1 is the
// register whose seed space is scanned, spec2 the one that is tabulated.
func NewRecoverer(spec1, spec2 *lfsr.RegisterSpec, opts ...Option) (*Recoverer, error) {
	if spec1 == nil || spec2 == nil {
		return nil, errors.New("mitm: nil register spec")
	}
	if spec1.SeedSpace() == 0 || spec2.SeedSpace() == 0 {
		return nil, fmt.Errorf("mitm: seed space of a %d-bit register cannot be enumerated", lfsr.MaxWidth)
	}
	r := &Recoverer{
		spec1:   spec1,
		spec2:   spec2,
		nbTasks: runtime.NumCPU(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RecoverSeeds returns the smallest seed1 for which some seed2 in the table
// reproduces the keystream header, together with that seed2.
//
// header[i] is ciphertext[i] XOR knownPlaintext[i] for the known-plaintext
// prefix. If no pair reproduces the header, ErrSeedNotFound is returned.
func (r *Recoverer) RecoverSeeds(header []byte) (seed1, seed2 uint64, err error) {
	if len(header) == 0 {
		return 0, 0, errors.New("mitm: empty keystream header")
	}
	log := logger.Logger()

	table := r.table
	if table == nil {
		start := time.Now()
		table = r.BuildTable(len(header))
		log.Debug().
			Dur("took", time.Since(start)).
			Int("sequences", table.Len()).
			Uint64("dropped", table.NbDropped()).
			Msg("recovery table built")
	} else if !table.matches(r.spec2, len(header)) {
		return 0, 0, errors.New("mitm: table does not match register 2 spec and header length")
	}

	start := time.Now()
	seed1, seed2, found := r.scan(table, header)
	log.Debug().
		Dur("took", time.Since(start)).
		Msg("seed scan done")
	if !found {
		return 0, 0, ErrSeedNotFound
	}
	return seed1, seed2, nil
}

// BuildTable enumerates every seed of the second register and stores its
// first-n-byte output sequence. Ties between seeds producing the same
// sequence keep the smallest seed.
func (r *Recoverer) BuildTable(n int) *Table {
	space := r.spec2.SeedSpace()

	// enumerate in parallel into a flat buffer, then insert in ascending
	// seed order so that the smallest-seed tie-break holds by construction
	seqs := make([]byte, int(space)*n)
	fill := func(from, to int) {
		for seed := from; seed < to; seed++ {
			s := r.spec2.NewState(uint64(seed))
			s.AppendStream(seqs[seed*n:seed*n], n)
		}
	}
	if r.nbTasks == 1 {
		fill(0, int(space))
	} else {
		parallel.Execute(0, int(space), fill)
	}

	t := newTable(n, r.spec2, space)
	for seed := uint64(0); seed < space; seed++ {
		t.insert(seqs[int(seed)*n:(int(seed)+1)*n], seed)
	}
	return t
}

// scan walks the first register's seed space in ascending order and returns
// the first seed whose required counterpart sequence is in the table and
// whose full header verifies.
func (r *Recoverer) scan(t *Table, header []byte) (uint64, uint64, bool) {
	space := r.spec1.SeedSpace()

	if r.nbTasks == 1 {
		return r.scanRange(t, header, 0, space, nil)
	}

	nbTasks := r.nbTasks
	if uint64(nbTasks) > space {
		nbTasks = int(space)
	}
	chunk := (space + uint64(nbTasks) - 1) / uint64(nbTasks)

	type match struct {
		seed1, seed2 uint64
		found        bool
	}
	results := make([]match, nbTasks)

	// tasks abandon their range once a hit exists in a lower range; the
	// final reduction below, not goroutine finish order, decides the winner
	var best atomic.Uint64
	best.Store(^uint64(0))

	var g errgroup.Group
	for task := 0; task < nbTasks; task++ {
		task := task
		from := uint64(task) * chunk
		to := from + chunk
		if to > space {
			to = space
		}
		g.Go(func() error {
			s1, s2, found := r.scanRange(t, header, from, to, &best)
			results[task] = match{seed1: s1, seed2: s2, found: found}
			return nil
		})
	}
	_ = g.Wait() // scanRange does not fail

	for _, m := range results {
		if m.found {
			return m.seed1, m.seed2, true
		}
	}
	return 0, 0, false
}

// scanRange scans seeds of register 1 in [from, to), ascending, and stops
// at the first verified hit. If best is non-nil the range is abandoned as
// soon as a lower-range hit is published.
func (r *Recoverer) scanRange(t *Table, header []byte, from, to uint64, best *atomic.Uint64) (uint64, uint64, bool) {
	n := t.n
	seq1 := make([]byte, 0, n)
	needed := make([]byte, n)

	for seed1 := from; seed1 < to; seed1++ {
		if best != nil && seed1&0x3ff == 0 && best.Load() < from {
			return 0, 0, false
		}

		s := r.spec1.NewState(seed1)
		seq1 = s.AppendStream(seq1[:0], n)
		for i := 0; i < n; i++ {
			// the byte register 2 must have produced at position i
			d := (int(header[i]) - int(seq1[i])) % 255
			if d < 0 {
				d += 255
			}
			needed[i] = byte(d)
		}

		seed2, ok := t.lookup(needed)
		if !ok {
			continue
		}
		// a header byte of 255 can never come out of the combiner; the
		// modular lookup alone would still hit, so re-check end to end
		if !r.headerMatches(seed1, seed2, header) {
			continue
		}
		if best != nil {
			// publish for early exit of higher ranges
			for {
				cur := best.Load()
				if seed1 >= cur || best.CompareAndSwap(cur, seed1) {
					break
				}
			}
		}
		return seed1, seed2, true
	}
	return 0, 0, false
}

// headerMatches regenerates the combined keystream for the candidate pair
// and compares it against the full header.
func (r *Recoverer) headerMatches(seed1, seed2 uint64, header []byte) bool {
	g := keystream.New(r.spec1, r.spec2, seed1, seed2)
	return bytes.Equal(g.Generate(len(header)), header)
}
