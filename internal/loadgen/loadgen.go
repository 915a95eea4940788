// Package loadgen drives a pool with concurrent acquire/hold/release cycles
// and reports throughput, latency and resource usage.
package loadgen

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/slotpool/pkg/errors"
	"github.com/ajitpratap0/slotpool/pkg/metrics"
	"github.com/ajitpratap0/slotpool/pkg/observability"
	"github.com/ajitpratap0/slotpool/pkg/performance"
	"github.com/ajitpratap0/slotpool/pkg/pool"
)

// Config configures a load run
type Config struct {
	Workers        int           `json:"workers"`         // 0 = GOMAXPROCS
	Operations     int           `json:"operations"`      // Cycles per worker, 0 = until Duration elapses
	Duration       time.Duration `json:"duration"`        // 0 = until Operations complete
	Burst          int           `json:"burst"`           // Objects held at once per cycle
	HoldTime       time.Duration `json:"hold_time"`       // Time objects are held before release
	SampleInterval time.Duration `json:"sample_interval"` // Resource sampling period
	LatencySamples int           `json:"latency_samples"` // Acquisition latencies retained for percentiles
}

// DefaultConfig returns a short CPU-bound run.
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.GOMAXPROCS(0),
		Operations:     10000,
		Burst:          1,
		SampleInterval: 100 * time.Millisecond,
		LatencySamples: 10000,
	}
}

func (c *Config) validate() error {
	if c.Workers < 0 {
		return errors.New(errors.ErrorTypeValidation, "workers cannot be negative").
			WithDetail("workers", c.Workers)
	}
	if c.Operations < 0 || c.Duration < 0 {
		return errors.New(errors.ErrorTypeValidation, "operations and duration cannot be negative")
	}
	if c.Operations == 0 && c.Duration == 0 {
		return errors.New(errors.ErrorTypeValidation, "either operations or duration is required")
	}
	if c.Burst < 0 || c.HoldTime < 0 {
		return errors.New(errors.ErrorTypeValidation, "burst and hold time cannot be negative")
	}

	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Burst == 0 {
		c.Burst = 1
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = 100 * time.Millisecond
	}
	if c.LatencySamples <= 0 {
		c.LatencySamples = 10000
	}
	return nil
}

// Report summarizes a load run
type Report struct {
	Pool            string                     `json:"pool"`
	Workers         int                        `json:"workers"`
	Elapsed         time.Duration              `json:"elapsed"`
	Acquired        uint64                     `json:"acquired"`
	Misses          uint64                     `json:"misses"`
	Released        uint64                     `json:"released"`
	ReleaseRejected uint64                     `json:"release_rejected"`
	OpsPerSecond    float64                    `json:"ops_per_second"`
	LatencyP50      time.Duration              `json:"latency_p50"`
	LatencyP99      time.Duration              `json:"latency_p99"`
	Stats           pool.Stats                 `json:"stats"`
	Resources       *performance.ResourceUsage `json:"resources,omitempty"`
}

// Runner runs load against one pool
type Runner[T comparable] struct {
	pool    *pool.Pool[T]
	config  Config
	logger  *zap.Logger
	latency *metrics.LatencyTracker

	acquired        atomic.Uint64
	misses          atomic.Uint64
	released        atomic.Uint64
	releaseRejected atomic.Uint64
}

// NewRunner creates a runner for p.
func NewRunner[T comparable](p *pool.Pool[T], config Config, logger *zap.Logger) (*Runner[T], error) {
	if p == nil {
		return nil, errors.New(errors.ErrorTypeValidation, "pool is required")
	}
	if p.Closed() {
		return nil, errors.New(errors.ErrorTypeClosed, "pool has been cleaned up").
			WithDetail("pool", p.Name())
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner[T]{
		pool:    p,
		config:  config,
		logger:  logger.With(zap.String("pool", p.Name())),
		latency: metrics.NewLatencyTracker(config.LatencySamples),
	}, nil
}

// Run executes the configured load and returns its report. Cancelling ctx
// stops the workers early; the partial report is still returned.
func (r *Runner[T]) Run(ctx context.Context) (*Report, error) {
	ctx, span := observability.NewSpan(ctx, "loadgen.run")
	defer span.End()
	span.SetAttribute("pool", r.pool.Name())
	span.SetAttribute("workers", r.config.Workers)
	span.SetAttribute("operations", r.config.Operations)
	span.SetAttribute("burst", r.config.Burst)

	// Elapsed covers the whole deadline window.
	timer := metrics.NewTimer("loadgen.run")
	if r.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Duration)
		defer cancel()
	}

	monitor, err := performance.NewResourceMonitor()
	if err != nil {
		r.logger.Warn("resource monitoring unavailable", zap.Error(err))
	}
	stopSampling := r.sample(monitor)

	r.logger.Info("load run started",
		zap.Int("workers", r.config.Workers),
		zap.Int("operations", r.config.Operations),
		zap.Duration("duration", r.config.Duration),
		zap.Int("burst", r.config.Burst))

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.config.Workers; w++ {
		g.Go(func() error {
			return r.work(gctx)
		})
	}
	err = g.Wait()
	elapsed := timer.Stop()
	stopSampling()

	report := r.report(elapsed, monitor)
	span.SetAttribute("acquired", report.Acquired)
	span.SetAttribute("misses", report.Misses)
	span.SetAttribute("capacity", report.Stats.Capacity)
	span.SetAttribute("expansions", report.Stats.TotalExpansions)
	span.RecordError(err)

	r.logger.Info("load run finished",
		zap.Duration("elapsed", elapsed),
		zap.Uint64("acquired", report.Acquired),
		zap.Uint64("misses", report.Misses),
		zap.Float64("ops_per_second", report.OpsPerSecond),
		zap.Int("capacity", report.Stats.Capacity))

	return report, err
}

// work runs acquire/hold/release cycles until the operation budget is spent
// or ctx is done.
func (r *Runner[T]) work(ctx context.Context) error {
	held := make([]T, 0, r.config.Burst)
	sampleEvery := uint64(r.config.Workers)

	for op := 0; r.config.Operations == 0 || op < r.config.Operations; op++ {
		if ctx.Err() != nil {
			return nil
		}

		for i := 0; i < r.config.Burst; i++ {
			start := time.Now()
			obj, ok := r.pool.Acquire()
			n := r.acquired.Load()
			if !ok {
				r.misses.Add(1)
				continue
			}
			if n%sampleEvery == 0 {
				r.latency.Record(time.Since(start))
			}
			r.acquired.Add(1)
			held = append(held, obj)
		}

		if r.config.HoldTime > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.config.HoldTime):
			}
		}

		for _, obj := range held {
			if r.pool.Release(obj) {
				r.released.Add(1)
			} else {
				r.releaseRejected.Add(1)
			}
		}
		held = held[:0]
	}
	return nil
}

// sample polls resource usage so the report can carry peak RSS. The returned
// func stops polling and waits for the poller.
func (r *Runner[T]) sample(monitor *performance.ResourceMonitor) func() {
	if monitor == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.config.SampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				monitor.GetResourceUsage()
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (r *Runner[T]) report(elapsed time.Duration, monitor *performance.ResourceMonitor) *Report {
	report := &Report{
		Pool:            r.pool.Name(),
		Workers:         r.config.Workers,
		Elapsed:         elapsed,
		Acquired:        r.acquired.Load(),
		Misses:          r.misses.Load(),
		Released:        r.released.Load(),
		ReleaseRejected: r.releaseRejected.Load(),
		LatencyP50:      r.latency.GetPercentile(50),
		LatencyP99:      r.latency.GetPercentile(99),
		Stats:           r.pool.Stats(),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		report.OpsPerSecond = float64(report.Acquired) / secs
	}
	if monitor != nil {
		report.Resources = monitor.GetResourceUsage()
	}
	return report
}
