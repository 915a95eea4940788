// Package lockfree provides lock-free data structures for high-performance concurrent processing
package lockfree

import (
	"sync/atomic"
)

// MaxStackAttempts bounds the CAS retries of a single Push or Pop. After that
// many lost races the operation gives up instead of spinning.
const MaxStackAttempts = 16

// MaxStackSize is the largest capacity an IndexStack accepts. The depth is
// packed into the low 32 bits of the head word.
const MaxStackSize = 1 << 30

// IndexStack is a bounded lock-free LIFO of uint32 indices.
//
// The head is a single 64-bit word packing the stack depth (low 32 bits) and
// a generation (high 32 bits). Every successful Push or Pop publishes a new
// generation, so a goroutine holding a stale head can never win its CAS even
// when the depth has returned to the value it read (the ABA case).
//
// Each entry packs the index (low 32 bits) with a stamp (high 32 bits): the
// generation of the head that publishes it. A pusher claims the entry above
// the top with a CAS against the value it read, so a pusher holding a stale
// head cannot overwrite an entry that another push already made live. Pop
// reports an entry stamped for a head that is not yet published as a miss.
type IndexStack struct {
	head     atomic.Uint64
	_padding [cacheLineSize - 8]byte //nolint:unused // keep head on its own cache line

	entries []atomic.Uint64
}

// NewIndexStack creates a stack holding at most capacity indices.
// Capacity is clamped to [1, MaxStackSize].
func NewIndexStack(capacity int) *IndexStack {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > MaxStackSize {
		capacity = MaxStackSize
	}
	return &IndexStack{
		entries: make([]atomic.Uint64, capacity),
	}
}

func packHead(depth, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(depth)
}

func unpackHead(h uint64) (depth, gen uint32) {
	return uint32(h), uint32(h >> 32)
}

func packEntry(index, stamp uint32) uint64 {
	return uint64(stamp)<<32 | uint64(index)
}

func unpackEntry(e uint64) (index, stamp uint32) {
	return uint32(e), uint32(e >> 32)
}

// Push adds index on top of the stack.
// Returns false if the stack is full or the bounded CAS retries were exhausted.
func (s *IndexStack) Push(index uint32) bool {
	for attempt := 0; attempt < MaxStackAttempts; attempt++ {
		h := s.head.Load()
		depth, _ := unpackHead(h)
		if int(depth) >= len(s.entries) {
			return false
		}
		if s.pushOnto(h, s.entries[depth].Load(), index) {
			return true
		}
	}
	return false
}

// pushOnto makes one attempt to push index above head h, where prev is the
// entry value read after h.
func (s *IndexStack) pushOnto(h, prev uint64, index uint32) bool {
	depth, gen := unpackHead(h)
	if _, stamp := unpackEntry(prev); stamp == gen+1 {
		// another push on this head already claimed the entry
		return false
	}
	if !s.entries[depth].CompareAndSwap(prev, packEntry(index, gen+1)) {
		return false
	}
	return s.head.CompareAndSwap(h, packHead(depth+1, gen+1))
}

// Pop removes and returns the top index.
// Returns false if the stack is empty, the top entry carries a stamp from an
// unpublished head, or the bounded CAS retries were exhausted.
func (s *IndexStack) Pop() (uint32, bool) {
	for attempt := 0; attempt < MaxStackAttempts; attempt++ {
		h := s.head.Load()
		depth, gen := unpackHead(h)
		if depth == 0 {
			return 0, false
		}

		index, stamp := unpackEntry(s.entries[depth-1].Load())
		if stamp == gen+1 {
			return 0, false
		}
		if s.head.CompareAndSwap(h, packHead(depth-1, gen+1)) {
			return index, true
		}
	}
	return 0, false
}

// Len returns the current depth. This is an approximation in concurrent scenarios.
func (s *IndexStack) Len() int {
	depth, _ := unpackHead(s.head.Load())
	return int(depth)
}

// Cap returns the maximum number of indices the stack holds.
func (s *IndexStack) Cap() int {
	return len(s.entries)
}

// Generation returns the current head generation. It increases by one with
// every successful Push, Pop or Reset (modulo 2^32).
func (s *IndexStack) Generation() uint32 {
	_, gen := unpackHead(s.head.Load())
	return gen
}

// Reset empties the stack. Concurrent Push/Pop calls that read the old head
// fail their CAS and retry against the empty stack.
func (s *IndexStack) Reset() {
	for {
		h := s.head.Load()
		_, gen := unpackHead(h)
		if s.head.CompareAndSwap(h, packHead(0, gen+1)) {
			return
		}
	}
}
