package lockfree

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// cacheLineSize is the platform cache line size (64 bytes on amd64, 128 on arm64).
const cacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

// CacheLineSize exposes the padding unit used by this package.
const CacheLineSize = int(cacheLineSize)

// PaddedCounter is an atomic uint64 that occupies a full cache line, so
// counters updated by different goroutines never share a line.
// The zero value is ready to use.
type PaddedCounter struct {
	value    atomic.Uint64
	_padding [cacheLineSize - 8]byte //nolint:unused
}

// Increment atomically increments the counter by one.
func (c *PaddedCounter) Increment() {
	c.value.Add(1)
}

// Add atomically adds delta and returns the new value.
func (c *PaddedCounter) Add(delta uint64) uint64 {
	return c.value.Add(delta)
}

// Get returns the current value of the counter atomically.
func (c *PaddedCounter) Get() uint64 {
	return c.value.Load()
}

// Store atomically replaces the value.
func (c *PaddedCounter) Store(v uint64) {
	c.value.Store(v)
}

// Reset atomically resets the counter to zero.
func (c *PaddedCounter) Reset() {
	c.value.Store(0)
}
