// Package metrics exports pool statistics to Prometheus and provides small
// timing helpers for load runs.
//
// # Overview
//
// The metrics package provides:
//   - PoolCollector, a prometheus.Collector that reads pool Stats on scrape
//   - Timer and LatencyTracker for measuring acquisition latency
//
// # Basic Usage
//
//	p, _ := pool.New(1024, factory, pool.WithName("sessions"))
//	if _, err := metrics.Register(prometheus.DefaultRegisterer, p.Name(), p); err != nil {
//	    return err
//	}
//	http.Handle("/metrics", promhttp.Handler())
//
// # Metric Types
//
// Gauge: capacity, free and busy slot counts at scrape time
// Counter: every cumulative pool counter (gets, returns, hits per strategy, ...)
//
// # Performance Considerations
//
// The collector holds no state of its own. Each scrape takes one Stats
// snapshot, so scraping never touches the acquire/release hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/slotpool/pkg/pool"
)

// Namespace prefixes every exported metric name.
const Namespace = "slotpool"

// StatsSource is anything that can produce a pool stats snapshot. *pool.Pool
// satisfies it for every element type.
type StatsSource interface {
	Stats() pool.Stats
}

type statDesc struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(pool.Stats) float64
}

// PoolCollector implements prometheus.Collector for one pool.
type PoolCollector struct {
	name   string
	source StatsSource
	descs  []statDesc
}

// NewPoolCollector creates a collector reporting source under the label
// pool=name.
func NewPoolCollector(name string, source StatsSource) *PoolCollector {
	labels := prometheus.Labels{"pool": name}
	gauge := func(metric, help string, fn func(pool.Stats) float64) statDesc {
		return statDesc{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", metric), help, nil, labels),
			valueType: prometheus.GaugeValue,
			value:     fn,
		}
	}
	counter := func(metric, help string, fn func(pool.Stats) uint64) statDesc {
		return statDesc{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", metric), help, nil, labels),
			valueType: prometheus.CounterValue,
			value:     func(s pool.Stats) float64 { return float64(fn(s)) },
		}
	}

	return &PoolCollector{
		name:   name,
		source: source,
		descs: []statDesc{
			gauge("capacity", "Current number of slots",
				func(s pool.Stats) float64 { return float64(s.Capacity) }),
			gauge("free_slots", "Slots available for acquisition",
				func(s pool.Stats) float64 { return float64(s.FreeCount) }),
			gauge("busy_slots", "Slots currently held by callers",
				func(s pool.Stats) float64 { return float64(s.BusyCount) }),
			counter("gets_total", "Successful acquisitions",
				func(s pool.Stats) uint64 { return s.TotalGets }),
			counter("returns_total", "Releases retained by the pool",
				func(s pool.Stats) uint64 { return s.TotalReturns }),
			counter("cache_hits_total", "Acquisitions served by the free-index cache",
				func(s pool.Stats) uint64 { return s.CacheHits }),
			counter("scan_hits_total", "Acquisitions served by the mask scan",
				func(s pool.Stats) uint64 { return s.ScanHits }),
			counter("striped_hits_total", "Acquisitions served by striped probing",
				func(s pool.Stats) uint64 { return s.StripedHits }),
			counter("expansions_total", "Completed capacity increases",
				func(s pool.Stats) uint64 { return s.TotalExpansions }),
			counter("auto_expansion_hits_total", "Acquisitions served right after an expansion",
				func(s pool.Stats) uint64 { return s.AutoExpansionHits }),
			counter("creates_total", "Objects built by the factory",
				func(s pool.Stats) uint64 { return s.TotalCreates }),
			counter("drops_total", "Released objects the pool did not retain",
				func(s pool.Stats) uint64 { return s.TotalDrops }),
			counter("overflow_hits_total", "Transient objects handed out on exhaustion",
				func(s pool.Stats) uint64 { return s.OverflowHits }),
			counter("misses_total", "Acquisitions that returned no object",
				func(s pool.Stats) uint64 { return s.Misses }),
			counter("adoptions_total", "Foreign objects adopted into empty slots",
				func(s pool.Stats) uint64 { return s.Adoptions }),
		},
	}
}

// Name returns the pool label value.
func (c *PoolCollector) Name() string {
	return c.name
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.desc, d.valueType, d.value(stats))
	}
}

// Register creates a PoolCollector for source and registers it with reg.
func Register(reg prometheus.Registerer, name string, source StatsSource) (*PoolCollector, error) {
	c := NewPoolCollector(name, source)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
