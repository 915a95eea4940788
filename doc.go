// Package slotpool provides a fixed-type, bounded, concurrent object pool for
// Go services that reuse expensive objects across many goroutines.
//
// The pool engine lives in pkg/pool. Around it sit the pieces needed to run
// and observe it in production:
//
//   - pkg/pool: slot table, availability mask, allocation strategies, expansion
//   - pkg/lockfree: generation-tagged index stack and padded counters
//   - pkg/config: YAML and environment configuration mapped to pool options
//   - pkg/metrics: Prometheus collector over pool statistics
//   - pkg/logger: zap logger setup shared by every package
//   - pkg/errors: typed errors with details and stack capture
//   - pkg/observability: OpenTelemetry tracing for load runs
//   - pkg/performance: process resource sampling
//   - pkg/json: goccy/go-json helpers with pooled scratch buffers
//   - internal/loadgen: concurrent acquire/hold/release load generator
//   - cmd/poolbench: command line front end for the load generator
//
// # Quick Start
//
//	import "github.com/ajitpratap0/slotpool/pkg/pool"
//
//	p, err := pool.New(1024, pool.Constructor(func() *Session { return newSession() }),
//	    pool.WithName("sessions"),
//	    pool.WithExpansion(0.25, 100),
//	)
//	if err != nil {
//	    return err
//	}
//	defer p.Cleanup()
//
//	s, ok := p.Acquire()
//	if !ok {
//	    return ErrBusy
//	}
//	defer p.Release(s)
//
// # Acquisition Strategies
//
// Acquire tries the free-index cache, then a scan of the availability mask,
// then striped probing. When all of them miss it grows the pool, bounded by
// the maximum expansion percentage, and finally applies the overflow policy:
// reject, or hand out a transient object that the pool does not track.
//
// # Configuration
//
// Pools can be described in YAML:
//
//	pool:
//	  name: sessions
//	  initial_capacity: 1024
//	  expansion_percent: 0.25
//	  max_expansion_percent: 100
//	  overflow: reject
//	  strategies: [cache, scan, striped]
//
// Environment variables are supported with ${VAR_NAME} syntax, and any key
// can be overridden with a SLOTPOOL_ variable.
//
// # Load Testing
//
//	poolbench config init -o slotpool.yaml
//	poolbench run -c slotpool.yaml --workers 16 --duration 10s --burst 4 --metrics-addr :9090
package slotpool
