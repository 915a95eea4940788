package pool

import (
	"runtime"

	"go.uber.org/zap"
)

// expandWaitSpins bounds how long a goroutine that lost the expansion race
// yields while waiting for the winner to publish.
const expandWaitSpins = 1024

// expand grows the pool after an acquisition missed against seen. It returns
// true when capacity is now larger than seen.capacity, whether this goroutine
// did the work or waited for the one that did.
//
// Only the goroutine that flips the expanding flag builds the new state. The
// new state reuses every slot and mask cell of the current one and is
// published with a single atomic store; new free bits are set afterwards so
// readers of the old state never observe slots they cannot index.
func (p *Pool[T]) expand(seen *state[T]) bool {
	if p.opts.expansionPercent == 0 || seen.capacity >= p.maxAllowed {
		return false
	}

	if !p.expanding.CompareAndSwap(false, true) {
		for spin := 0; spin < expandWaitSpins && p.expanding.Load(); spin++ {
			runtime.Gosched()
		}
		return p.state.Load().capacity > seen.capacity
	}
	defer p.expanding.Store(false)

	cur := p.state.Load()
	if cur.capacity > seen.capacity {
		return true
	}
	if p.closed.Load() {
		return false
	}

	newCapacity := p.nextCapacity(cur.capacity)
	if newCapacity <= cur.capacity {
		return false
	}

	next := cur.grown(newCapacity)
	added := newCapacity - cur.capacity
	if p.opts.lazy {
		p.unfilled.Add(int64(added))
	} else if err := p.populate(next, cur.capacity, newCapacity); err != nil {
		p.log.Warn("expansion aborted",
			zap.Int("capacity", cur.capacity),
			zap.Int("target_capacity", newCapacity),
			zap.Error(err))
		return false
	}

	p.state.Store(next)
	next.markFree(cur.capacity, newCapacity)
	p.stripes.spread(cur.capacity, newCapacity)
	p.stats.expansions.Increment()

	p.log.Debug("pool expanded",
		zap.Int("old_capacity", cur.capacity),
		zap.Int("new_capacity", newCapacity),
		zap.Int("max_capacity", p.maxAllowed),
		zap.Bool("lazy", p.opts.lazy))
	if newCapacity == p.maxAllowed {
		p.log.Debug("pool reached maximum capacity", zap.Int("capacity", newCapacity))
	}
	return true
}

// nextCapacity applies min(ceil(cur*(1+p)), maxAllowed), always moving by at
// least one slot while below the bound.
func (p *Pool[T]) nextCapacity(cur int) int {
	n := ceilCapacity(cur, 1+p.opts.expansionPercent)
	if n <= cur {
		n = cur + 1
	}
	if n > p.maxAllowed {
		n = p.maxAllowed
	}
	return n
}

// populate builds objects for slots [from, to) of st, which must not be
// published yet. On failure every object registered by this call is removed
// from the identity map and the error is returned.
func (p *Pool[T]) populate(st *state[T], from, to int) error {
	for i := from; i < to; i++ {
		obj, err := p.construct()
		if err == nil {
			err = p.register(obj, i)
		}
		if err != nil {
			for j := from; j < i; j++ {
				p.index.Delete(st.slots[j].obj)
			}
			return err
		}
		st.slots[i].obj = obj
		st.slots[i].filled = true
	}
	p.stats.creates.Add(uint64(to - from))
	return nil
}
