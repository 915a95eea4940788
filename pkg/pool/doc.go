// Package pool implements a fixed-type, bounded, lock-free object pool. It
// lets many goroutines acquire and release instances of one object type
// without allocating on the hot path, and grows its capacity when demand
// outruns supply.
//
// # Architecture
//
// Every pooled object lives in a slot. Slot occupancy is tracked by an
// availability mask: one bit per slot, packed into 64-bit words that each own
// a full cache line. A set bit means the slot is free. Bits are only changed
// by atomic read-modify-write on their word, so a slot can never be handed to
// two goroutines at once.
//
// Acquire tries, in order:
//
//   - the free-index cache: a lock-free stack of recently released indices
//   - a mask scan from a rotating start word, using trailing-zero counts
//   - striped probing: N independent cursors, one picked per call
//   - auto-expansion, after which the strategies above are retried once
//   - the overflow policy: reject, or hand out a transient unpooled object
//
// Every candidate from the cache or a scan is only a hint; ownership is taken
// by clearing the bit. The mask is the single source of truth.
//
// # Expansion
//
// When all strategies miss, one goroutine wins the expansion flag and grows
// capacity by the configured percentage, bounded by the maximum expansion
// percentage:
//
//	newCapacity = min(ceil(capacity*(1+p)), ceil(initial*(1+m/100)))
//
// The new slot table and mask are built off to the side, reusing every
// existing slot and mask cell, and published with one atomic pointer swap.
// Goroutines that loaded the previous state keep working against it; they just
// do not see the new slots until their next load.
//
// # Usage
//
//	p, err := pool.New(1024, pool.Constructor(func() *Task { return &Task{} }),
//		pool.WithExpansion(0.5, 300),
//		pool.WithOverflowPolicy(pool.OverflowTransient),
//	)
//	if err != nil {
//		return err
//	}
//	defer p.Cleanup()
//
//	task, ok := p.Acquire()
//	if !ok {
//		return ErrBusy
//	}
//	defer p.Release(task)
//
// T must be comparable and should be a pointer type: Release maps an object
// back to its slot by equality, which for pointers is identity.
//
// # Metrics
//
// Stats returns an immutable snapshot of capacity, free and busy counts and
// cumulative counters per strategy. At any quiescent point
// FreeCount+BusyCount equals Capacity.
package pool
