package pool

import (
	"math"
	"math/bits"
	"runtime"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/slotpool/pkg/errors"
	"github.com/ajitpratap0/slotpool/pkg/lockfree"
)

const (
	// cacheAttempts bounds how many cached indices one Acquire tries.
	cacheAttempts = 4
	// scanAttempts bounds how many scan candidates one Acquire tries to claim.
	scanAttempts = 8
	// adoptProbeLimit bounds the free slots inspected when adopting a foreign object.
	adoptProbeLimit = 256
)

// Factory produces one new instance of the pooled type. It is only called to
// populate slots and, with OverflowTransient, to build unpooled objects.
type Factory[T any] func() (T, error)

// Constructor adapts an infallible constructor to a Factory.
func Constructor[T any](fn func() T) Factory[T] {
	if fn == nil {
		return nil
	}
	return func() (T, error) {
		return fn(), nil
	}
}

// Pool is a concurrent pool of objects of type T. All methods are safe for
// concurrent use. Acquire and Release never block.
type Pool[T comparable] struct {
	state     atomic.Pointer[state[T]]
	expanding atomic.Bool
	closed    atomic.Bool
	unfilled  atomic.Int64

	scanHint lockfree.PaddedCounter
	stats    counters

	index   *xsync.MapOf[T, int]
	cache   *lockfree.IndexStack
	stripes *stripes

	factory    Factory[T]
	initial    int
	maxAllowed int
	opts       options
	log        *zap.Logger
}

// New creates a pool of initialCapacity objects, all built eagerly with
// factory. It fails fast on invalid arguments or when the factory fails during
// initial population; a pool is never returned partially constructed.
//
// Example:
//
//	p, err := pool.New(64, pool.Constructor(func() *Task { return new(Task) }),
//		pool.WithName("tasks"),
//		pool.WithoutExpansion(),
//	)
func New[T comparable](initialCapacity int, factory Factory[T], opts ...Option) (*Pool[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if factory == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "factory is required")
	}
	if err := o.validate(initialCapacity); err != nil {
		return nil, err
	}

	maxAllowed := initialCapacity
	if o.expansionPercent > 0 {
		maxAllowed = ceilCapacity(initialCapacity, 1+o.maxExpansionPercent/100)
	}
	if uint64(maxAllowed) > math.MaxUint32 {
		maxAllowed = math.MaxUint32
	}
	cacheSize := o.cacheSize
	if cacheSize > maxAllowed {
		cacheSize = maxAllowed
	}

	p := &Pool[T]{
		index:      xsync.NewMapOf[T, int](xsync.WithPresize(initialCapacity)),
		cache:      lockfree.NewIndexStack(cacheSize),
		stripes:    newStripes(o.stripes, initialCapacity),
		factory:    factory,
		initial:    initialCapacity,
		maxAllowed: maxAllowed,
		opts:       o,
		log:        o.logger,
	}

	st := (&state[T]{}).grown(initialCapacity)
	if err := p.populate(st, 0, initialCapacity); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFactory, "initial population failed").
			WithDetail("initial_capacity", initialCapacity)
	}
	st.markFree(0, initialCapacity)
	p.state.Store(st)

	p.log.Debug("pool created",
		zap.Int("capacity", initialCapacity),
		zap.Int("max_capacity", maxAllowed),
		zap.Stringer("strategies", o.strategies),
		zap.Stringer("overflow", o.overflow),
		zap.Int("stripes", o.stripes),
		zap.Int("cache_size", cacheSize),
		zap.Bool("lazy", o.lazy))

	return p, nil
}

// Acquire returns a pooled object, or applies the overflow policy when every
// strategy and expansion failed. With OverflowReject the second result is
// false and the first is the zero value. A transient object from
// OverflowTransient is not tracked by the pool; releasing it is allowed and
// either adopts it into spare capacity or drops it.
func (p *Pool[T]) Acquire() (T, bool) {
	var zero T
	if p.closed.Load() {
		p.stats.misses.Increment()
		return zero, false
	}

	st := p.state.Load()
	obj, ok, failed := p.acquireSlot(st)
	if ok {
		p.stats.gets.Increment()
		return obj, true
	}

	if !failed && p.expand(st) {
		obj, ok, failed = p.acquireSlot(p.state.Load())
		if ok {
			p.stats.gets.Increment()
			p.stats.autoExpansionHits.Increment()
			return obj, true
		}
	}

	return p.overflow()
}

// acquireSlot runs the enabled strategies against st. failed reports a factory
// error while populating a lazy slot, in which case the caller goes straight to
// the overflow policy.
func (p *Pool[T]) acquireSlot(st *state[T]) (obj T, ok bool, failed bool) {
	if st.capacity == 0 {
		return obj, false, false
	}
	strategies := p.opts.strategies

	if strategies.Has(StrategyCache) {
		for attempt := 0; attempt < cacheAttempts; attempt++ {
			idx, found := p.cache.Pop()
			if !found {
				break
			}
			i := int(idx)
			if i >= st.capacity || !st.tryClaim(i) {
				continue
			}
			return p.claimed(st, i, &p.stats.cacheHits)
		}
	}

	if strategies.Has(StrategyScan) {
		words := uint64(len(st.words))
		for attempt := 0; attempt < scanAttempts; attempt++ {
			i, found := st.scanForFree(int(p.scanHint.Add(1) % words))
			if !found {
				break
			}
			if st.tryClaim(i) {
				return p.claimed(st, i, &p.stats.scanHits)
			}
		}
	}

	if strategies.Has(StrategyStriped) {
		limit := p.opts.probeLimit
		if limit == 0 {
			limit = min(st.capacity, DefaultProbeLimit)
		}
		if i, found := probeStripe(p.stripes.pick(), st, limit); found {
			return p.claimed(st, i, &p.stats.stripedHits)
		}
	}

	return obj, false, false
}

// claimed finishes an acquisition of slot i and credits the strategy that
// found it.
func (p *Pool[T]) claimed(st *state[T], i int, hits *lockfree.PaddedCounter) (T, bool, bool) {
	obj, err := p.take(st, i)
	if err != nil {
		return obj, false, true
	}
	hits.Increment()
	return obj, true, false
}

// take hands out the object of the claimed slot i, building it first when the
// slot was left empty by a lazy expansion. On factory failure the slot is
// freed again.
func (p *Pool[T]) take(st *state[T], i int) (T, error) {
	s := st.slots[i]
	if s.filled {
		return s.obj, nil
	}

	obj, err := p.construct()
	if err == nil {
		err = p.register(obj, i)
	}
	if err != nil {
		st.release(i)
		p.log.Warn("lazy slot population failed", zap.Int("slot", i), zap.Error(err))
		var zero T
		return zero, err
	}

	s.obj = obj
	s.filled = true
	p.unfilled.Add(-1)
	p.stats.creates.Increment()
	return obj, nil
}

func (p *Pool[T]) overflow() (T, bool) {
	if p.opts.overflow == OverflowTransient {
		obj, err := p.construct()
		if err == nil {
			p.stats.creates.Increment()
			p.stats.overflowHits.Increment()
			p.stats.gets.Increment()
			return obj, true
		}
		p.log.Warn("transient object construction failed", zap.Error(err))
	}

	p.stats.misses.Increment()
	var zero T
	return zero, false
}

// Release returns obj to the pool. It reports true when the pool retained the
// object: either obj belongs to a slot, or it was adopted into an empty slot.
// Unknown objects without spare capacity, the zero value and double releases
// report false.
func (p *Pool[T]) Release(obj T) bool {
	var zero T
	if obj == zero || p.closed.Load() {
		p.stats.drops.Increment()
		return false
	}

	i, ok := p.index.Load(obj)
	if !ok {
		return p.adopt(obj)
	}

	st := p.state.Load()
	if i >= st.capacity || !st.release(i) {
		p.stats.drops.Increment()
		return false
	}
	if p.opts.strategies.Has(StrategyCache) {
		// Best effort: a full cache leaves the slot to the scanners.
		p.cache.Push(uint32(i))
	}
	p.stats.returns.Increment()
	return true
}

// adopt stores a foreign object into a free slot that has never been
// populated. Such slots only exist after a lazy expansion and sit at the end
// of the table, so the search walks the mask backwards.
func (p *Pool[T]) adopt(obj T) bool {
	if p.unfilled.Load() <= 0 {
		p.stats.drops.Increment()
		return false
	}

	st := p.state.Load()
	probes := 0
	for w := len(st.words) - 1; w >= 0 && probes < adoptProbeLimit; w-- {
		free := st.words[w].bits.Load() & st.validBits(w)
		for free != 0 && probes < adoptProbeLimit {
			b := bits.TrailingZeros64(free)
			free &^= uint64(1) << uint(b)
			probes++

			i := w<<wordShift | b
			if !st.tryClaim(i) {
				continue
			}
			s := st.slots[i]
			if s.filled {
				st.release(i)
				continue
			}
			if err := p.register(obj, i); err != nil {
				st.release(i)
				p.stats.drops.Increment()
				return false
			}

			s.obj = obj
			s.filled = true
			p.unfilled.Add(-1)
			st.release(i)
			if p.opts.strategies.Has(StrategyCache) {
				p.cache.Push(uint32(i))
			}
			p.stats.adoptions.Increment()
			p.stats.returns.Increment()
			return true
		}
	}

	p.stats.drops.Increment()
	return false
}

// construct calls the factory, turning errors, panics and zero values into
// factory errors.
func (p *Pool[T]) construct() (obj T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			obj = zero
			err = errors.Newf(errors.ErrorTypeFactory, "factory panicked: %v", r)
		}
	}()

	obj, err = p.factory()
	if err != nil {
		return obj, errors.Wrap(err, errors.ErrorTypeFactory, "factory failed")
	}
	var zero T
	if obj == zero {
		return obj, errors.New(errors.ErrorTypeFactory, "factory returned the zero value")
	}
	return obj, nil
}

// register records obj -> slot i in the identity map.
func (p *Pool[T]) register(obj T, i int) error {
	if _, loaded := p.index.LoadOrStore(obj, i); loaded {
		return errors.New(errors.ErrorTypeFactory, "object is already pooled").
			WithDetail("slot", i)
	}
	return nil
}

// Stats returns a snapshot of the pool. It is safe to call concurrently and
// never mutates the pool.
func (p *Pool[T]) Stats() Stats {
	st := p.state.Load()
	free := st.freeCount()
	return p.stats.snapshot(Stats{
		Capacity:  st.capacity,
		FreeCount: free,
		BusyCount: st.capacity - free,
	})
}

// Capacity returns the current number of slots.
func (p *Pool[T]) Capacity() int {
	return p.state.Load().capacity
}

// InitialCapacity returns the capacity the pool was created with.
func (p *Pool[T]) InitialCapacity() int {
	return p.initial
}

// MaxAllowedCapacity returns the bound expansion never exceeds. It equals the
// initial capacity when expansion is disabled.
func (p *Pool[T]) MaxAllowedCapacity() int {
	return p.maxAllowed
}

// OverflowPolicy returns the exhaustion behavior of this pool.
func (p *Pool[T]) OverflowPolicy() OverflowPolicy {
	return p.opts.overflow
}

// Name returns the pool label used in logs and metrics.
func (p *Pool[T]) Name() string {
	return p.opts.name
}

// Closed reports whether Cleanup has been called.
func (p *Pool[T]) Closed() bool {
	return p.closed.Load()
}

// Cleanup drops the identity map and slot table so pooled objects can be
// collected. It waits for an in-flight expansion. The pool must not be used
// afterwards: Acquire and Release then report false.
func (p *Pool[T]) Cleanup() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	// Hold the expansion flag for good so no expansion can republish state.
	for !p.expanding.CompareAndSwap(false, true) {
		runtime.Gosched()
	}

	capacity := p.state.Load().capacity
	p.state.Store(&state[T]{})
	p.index.Clear()
	p.cache.Reset()
	p.unfilled.Store(0)

	p.log.Debug("pool cleaned up", zap.Int("capacity", capacity))
}
