package lockfree

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexStackLIFO(t *testing.T) {
	s := NewIndexStack(4)

	for i := uint32(1); i <= 4; i++ {
		require.True(t, s.Push(i))
	}
	assert.False(t, s.Push(5), "push into a full stack must fail")
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 4, s.Cap())

	for want := uint32(4); want >= 1; want-- {
		got, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := s.Pop()
	assert.False(t, ok, "pop from an empty stack must fail")
}

func TestIndexStackClampsCapacity(t *testing.T) {
	assert.Equal(t, 1, NewIndexStack(0).Cap())
	assert.Equal(t, 1, NewIndexStack(-5).Cap())
}

func TestIndexStackGenerationDefeatsABA(t *testing.T) {
	s := NewIndexStack(8)
	require.True(t, s.Push(5))

	stale := s.head.Load()

	// Another actor pops 5 and pushes 9: depth is back to 1.
	_, ok := s.Pop()
	require.True(t, ok)
	require.True(t, s.Push(9))

	depthStale, genStale := unpackHead(stale)
	depthNow, genNow := unpackHead(s.head.Load())
	assert.Equal(t, depthStale, depthNow)
	assert.NotEqual(t, genStale, genNow)

	// The stale pop must not succeed against the recycled depth.
	assert.False(t, s.head.CompareAndSwap(stale, packHead(depthStale-1, genStale+1)))

	got, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(9), got)
}

func TestIndexStackStalePusherCannotOverwriteLiveEntry(t *testing.T) {
	s := NewIndexStack(4)

	// A pusher reads the head and the entry above it, then stalls.
	h := s.head.Load()
	prev := s.entries[0].Load()

	// Meanwhile another push goes live at the same depth.
	require.True(t, s.Push(7))

	assert.False(t, s.pushOnto(h, prev, 9))
	index, stamp := unpackEntry(s.entries[0].Load())
	assert.Equal(t, uint32(7), index)
	assert.Equal(t, s.Generation(), stamp)

	got, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(7), got)
}

func TestIndexStackPushersShareOneEntryPerHead(t *testing.T) {
	s := NewIndexStack(4)
	h := s.head.Load()
	prev := s.entries[0].Load()

	// The first pusher claims the entry but has not published the head yet.
	_, gen := unpackHead(h)
	require.True(t, s.entries[0].CompareAndSwap(prev, packEntry(3, gen+1)))

	// A second pusher that read the same head must back off.
	assert.False(t, s.pushOnto(h, s.entries[0].Load(), 5))
	index, _ := unpackEntry(s.entries[0].Load())
	assert.Equal(t, uint32(3), index)
}

func TestIndexStackPopRejectsUnpublishedStamp(t *testing.T) {
	s := NewIndexStack(4)
	require.True(t, s.Push(1))
	require.True(t, s.Push(2))

	// Stamp the top entry with the next, unpublished generation.
	s.entries[1].Store(packEntry(2, s.Generation()+1))
	_, ok := s.Pop()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	s.entries[1].Store(packEntry(2, s.Generation()))
	got, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(2), got)
}

func TestIndexStackGenerationAdvances(t *testing.T) {
	s := NewIndexStack(2)
	g0 := s.Generation()
	s.Push(1)
	s.Pop()
	s.Reset()
	assert.Equal(t, g0+3, s.Generation())
	assert.Equal(t, 0, s.Len())
}

func TestIndexStackConcurrentPushesOnlyYieldPushedValues(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	s := NewIndexStack(goroutines * perGoroutine)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				for !s.Push(uint32(base + i)) {
					runtime.Gosched()
				}
			}
		}(g * perGoroutine)
	}
	wg.Wait()

	require.Equal(t, goroutines*perGoroutine, s.Len())
	popped := 0
	for {
		v, ok := s.Pop()
		if !ok {
			break
		}
		assert.Less(t, v, uint32(goroutines*perGoroutine))
		popped++
	}
	assert.Equal(t, goroutines*perGoroutine, popped)
}

// TestIndexStackStressNoDoubleOwnership drives a small set of indices through
// the stack from many goroutines. Ownership is validated with a per-index flag
// the way the pool validates candidates against its mask.
func TestIndexStackStressNoDoubleOwnership(t *testing.T) {
	const indices = 4
	const goroutines = 16
	const iterations = 5000

	s := NewIndexStack(indices)
	var free [indices]atomic.Bool
	for i := range free {
		free[i].Store(true)
		require.True(t, s.Push(uint32(i)))
	}

	var owners [indices]atomic.Int32
	var violations atomic.Int64

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				idx, ok := s.Pop()
				if !ok {
					// Fall back to scanning the flags like the pool does.
					for j := range free {
						if free[j].CompareAndSwap(true, false) {
							idx, ok = uint32(j), true
							break
						}
					}
					if !ok {
						runtime.Gosched()
						continue
					}
				} else if !free[idx].CompareAndSwap(true, false) {
					continue
				}

				if owners[idx].Add(1) != 1 {
					violations.Add(1)
				}
				owners[idx].Add(-1)

				free[idx].Store(true)
				s.Push(idx)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, violations.Load())
	for i := range free {
		assert.True(t, free[i].Load(), "index %d was lost", i)
	}
}

func TestPaddedCounterLayout(t *testing.T) {
	var c PaddedCounter
	assert.Equal(t, uintptr(CacheLineSize), unsafe.Sizeof(c))

	c.Increment()
	assert.Equal(t, uint64(6), c.Add(5))
	assert.Equal(t, uint64(6), c.Get())
	c.Store(42)
	assert.Equal(t, uint64(42), c.Get())
	c.Reset()
	assert.Zero(t, c.Get())
}
