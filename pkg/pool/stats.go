package pool

import (
	"github.com/ajitpratap0/slotpool/pkg/lockfree"
)

// Stats is an immutable snapshot of pool state and cumulative counters.
// Creating one never mutates the pool.
type Stats struct {
	// Capacity is the number of slots at snapshot time
	Capacity int `json:"capacity"`
	// FreeCount is the number of free slots (populated or not)
	FreeCount int `json:"free_count"`
	// BusyCount is the number of slots handed out to callers
	BusyCount int `json:"busy_count"`
	// TotalGets counts successful acquisitions, transient objects included
	TotalGets uint64 `json:"total_gets"`
	// TotalReturns counts releases the pool retained, adoptions included
	TotalReturns uint64 `json:"total_returns"`
	// CacheHits counts acquisitions served by the free-index cache
	CacheHits uint64 `json:"cache_hits"`
	// ScanHits counts acquisitions served by the mask scan
	ScanHits uint64 `json:"scan_hits"`
	// StripedHits counts acquisitions served by striped probing
	StripedHits uint64 `json:"striped_hits"`
	// TotalExpansions counts completed capacity increases
	TotalExpansions uint64 `json:"total_expansions"`
	// AutoExpansionHits counts acquisitions served right after an expansion
	AutoExpansionHits uint64 `json:"auto_expansion_hits"`
	// TotalCreates counts objects built by the factory
	TotalCreates uint64 `json:"total_creates"`
	// TotalDrops counts released objects the pool did not retain
	TotalDrops uint64 `json:"total_drops"`
	// OverflowHits counts transient objects handed out by the overflow policy
	OverflowHits uint64 `json:"overflow_hits"`
	// Misses counts acquisitions that returned no object
	Misses uint64 `json:"misses"`
	// Adoptions counts foreign objects stored into empty slots
	Adoptions uint64 `json:"adoptions"`
}

// HitRate returns the share of acquisitions served from pooled slots.
func (s Stats) HitRate() float64 {
	attempts := s.TotalGets + s.Misses
	if attempts == 0 {
		return 0
	}
	return float64(s.CacheHits+s.ScanHits+s.StripedHits) / float64(attempts)
}

// counters are updated from every goroutine, so each one owns a cache line.
type counters struct {
	gets              lockfree.PaddedCounter
	returns           lockfree.PaddedCounter
	cacheHits         lockfree.PaddedCounter
	scanHits          lockfree.PaddedCounter
	stripedHits       lockfree.PaddedCounter
	expansions        lockfree.PaddedCounter
	autoExpansionHits lockfree.PaddedCounter
	creates           lockfree.PaddedCounter
	drops             lockfree.PaddedCounter
	overflowHits      lockfree.PaddedCounter
	misses            lockfree.PaddedCounter
	adoptions         lockfree.PaddedCounter
}

func (c *counters) snapshot(st Stats) Stats {
	st.TotalGets = c.gets.Get()
	st.TotalReturns = c.returns.Get()
	st.CacheHits = c.cacheHits.Get()
	st.ScanHits = c.scanHits.Get()
	st.StripedHits = c.stripedHits.Get()
	st.TotalExpansions = c.expansions.Get()
	st.AutoExpansionHits = c.autoExpansionHits.Get()
	st.TotalCreates = c.creates.Get()
	st.TotalDrops = c.drops.Get()
	st.OverflowHits = c.overflowHits.Get()
	st.Misses = c.misses.Get()
	st.Adoptions = c.adoptions.Get()
	return st
}
