package pool

import (
	"math/bits"
	"sync/atomic"

	"github.com/ajitpratap0/slotpool/pkg/lockfree"
)

const (
	wordBits  = 64
	wordShift = 6
	wordMask  = wordBits - 1
)

// maskWord holds 64 availability bits on its own cache line.
// Bit i set means slot (word*64 + i) is free.
type maskWord struct {
	bits     atomic.Uint64
	_padding [lockfree.CacheLineSize - 8]byte //nolint:unused
}

// slot is one pool position. obj and filled are only touched by the goroutine
// that holds the slot's cleared bit, or before the slot is first published.
type slot[T any] struct {
	obj    T
	filled bool
}

// state is an immutable view of the slot table and availability mask.
// Expansion publishes a new state that shares every slot and word of the old
// one, so indices and object identities never move.
type state[T any] struct {
	capacity int
	slots    []*slot[T]
	words    []*maskWord
}

func wordsFor(capacity int) int {
	return (capacity + wordMask) >> wordShift
}

// validBits masks off bits at or beyond capacity in word w. Those bits belong
// to slots of a later state and must not be claimed through this one.
func (s *state[T]) validBits(w int) uint64 {
	rem := s.capacity - w<<wordShift
	if rem >= wordBits {
		return ^uint64(0)
	}
	return uint64(1)<<uint(rem) - 1
}

// tryClaim clears the free bit of slot i. It returns false when the bit was
// already clear, which just means another goroutine got there first.
func (s *state[T]) tryClaim(i int) bool {
	bit := uint64(1) << uint(i&wordMask)
	return s.words[i>>wordShift].bits.And(^bit)&bit != 0
}

// release sets the free bit of slot i. It returns false when the bit was
// already set, i.e. on a double release.
func (s *state[T]) release(i int) bool {
	bit := uint64(1) << uint(i&wordMask)
	return s.words[i>>wordShift].bits.Or(bit)&bit == 0
}

func (s *state[T]) isFree(i int) bool {
	bit := uint64(1) << uint(i&wordMask)
	return s.words[i>>wordShift].bits.Load()&bit != 0
}

// scanForFree returns the first free slot found when walking the words from
// startWord, wrapping around once. The result is a candidate only: the caller
// still has to tryClaim it.
func (s *state[T]) scanForFree(startWord int) (int, bool) {
	n := len(s.words)
	if n == 0 {
		return 0, false
	}
	w := startWord % n
	for k := 0; k < n; k++ {
		free := s.words[w].bits.Load() & s.validBits(w)
		if free != 0 {
			return w<<wordShift | bits.TrailingZeros64(free), true
		}
		w++
		if w == n {
			w = 0
		}
	}
	return 0, false
}

// freeCount counts set bits below capacity. Exact only when quiescent.
func (s *state[T]) freeCount() int {
	total := 0
	for w := range s.words {
		total += bits.OnesCount64(s.words[w].bits.Load() & s.validBits(w))
	}
	return total
}

// markFree sets the free bits of slots [from, to) word by word.
func (s *state[T]) markFree(from, to int) {
	for from < to {
		w := from >> wordShift
		lo := uint(from & wordMask)
		hi := wordBits
		if end := (w + 1) << wordShift; to < end {
			hi = to - w<<wordShift
		}
		var m uint64
		if hi == wordBits {
			m = ^uint64(0) << lo
		} else {
			m = (uint64(1)<<uint(hi) - 1) &^ (uint64(1)<<lo - 1)
		}
		s.words[w].bits.Or(m)
		from = w<<wordShift + hi
	}
}

// grown builds the state for newCapacity on top of s. Existing slots and words
// are shared; new slot cells are created empty and new words start all-busy.
func (s *state[T]) grown(newCapacity int) *state[T] {
	next := &state[T]{
		capacity: newCapacity,
		slots:    make([]*slot[T], newCapacity),
		words:    make([]*maskWord, wordsFor(newCapacity)),
	}
	copy(next.slots, s.slots)
	fresh := make([]slot[T], newCapacity-s.capacity)
	for i := range fresh {
		next.slots[s.capacity+i] = &fresh[i]
	}

	copy(next.words, s.words)
	if extra := len(next.words) - len(s.words); extra > 0 {
		cells := make([]maskWord, extra)
		for i := range cells {
			next.words[len(s.words)+i] = &cells[i]
		}
	}
	return next
}
