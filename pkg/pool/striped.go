package pool

import (
	"github.com/valyala/fastrand"

	"github.com/ajitpratap0/slotpool/pkg/lockfree"
)

// stripes is the striped-tail fallback scanner. Instead of one hot cursor
// shared by every goroutine, N cursors each walk the whole slot ring from
// their own offset, so contention on any single cursor drops to roughly
// goroutines/N.
type stripes struct {
	cursors []lockfree.PaddedCounter
}

func newStripes(n, capacity int) *stripes {
	s := &stripes{cursors: make([]lockfree.PaddedCounter, n)}
	s.spread(0, capacity)
	return s
}

// spread positions the cursors evenly over [from, to).
func (s *stripes) spread(from, to int) {
	n := len(s.cursors)
	span := to - from
	for i := range s.cursors {
		s.cursors[i].Store(uint64(from + i*span/n))
	}
}

// pick selects a stripe. Goroutines have no stable identity, so a cheap
// per-call random number stands in for a thread hash.
func (s *stripes) pick() *lockfree.PaddedCounter {
	if len(s.cursors) == 1 {
		return &s.cursors[0]
	}
	return &s.cursors[fastrand.Uint32n(uint32(len(s.cursors)))]
}

// probeStripe advances cursor up to limit times, claiming the first free slot
// it lands on. Busy slots are skipped with a plain load so that only likely
// winners issue a read-modify-write on the mask.
func probeStripe[T any](cursor *lockfree.PaddedCounter, st *state[T], limit int) (int, bool) {
	capacity := uint64(st.capacity)
	if capacity == 0 {
		return 0, false
	}
	for i := 0; i < limit; i++ {
		pos := int(cursor.Add(1) % capacity)
		if st.isFree(pos) && st.tryClaim(pos) {
			return pos, true
		}
	}
	return 0, false
}
