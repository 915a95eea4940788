package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/slotpool/internal/loadgen"
	"github.com/ajitpratap0/slotpool/pkg/config"
	"github.com/ajitpratap0/slotpool/pkg/json"
	"github.com/ajitpratap0/slotpool/pkg/logger"
	"github.com/ajitpratap0/slotpool/pkg/metrics"
	"github.com/ajitpratap0/slotpool/pkg/observability"
	"github.com/ajitpratap0/slotpool/pkg/pool"
)

// payload is the pooled object type used for load runs.
type payload struct {
	data []byte
}

type runFlags struct {
	capacity    int
	payloadSize int
	load        loadgen.Config
	metricsAddr string
	linger      time.Duration
	trace       bool
}

func newRunCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	flags := runFlags{load: loadgen.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test against a pool",
		Long: `Run builds a pool from the configuration and drives it with concurrent workers.

Example:
  poolbench run --config slotpool.yaml --workers 16 --duration 10s --burst 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("capacity") {
				cfg.Pool.InitialCapacity = flags.capacity
			}
			if flags.metricsAddr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.Address = flags.metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLoad(ctx, cmd.OutOrStdout(), cfg, flags)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.capacity, "capacity", 0, "Initial pool capacity (overrides config)")
	f.IntVar(&flags.payloadSize, "payload-size", 1024, "Bytes allocated per pooled object")
	f.IntVarP(&flags.load.Workers, "workers", "w", flags.load.Workers, "Concurrent workers")
	f.IntVarP(&flags.load.Operations, "operations", "n", flags.load.Operations, "Cycles per worker, 0 = run for --duration")
	f.DurationVarP(&flags.load.Duration, "duration", "d", 0, "Run duration, 0 = run for --operations")
	f.IntVar(&flags.load.Burst, "burst", flags.load.Burst, "Objects held at once per cycle")
	f.DurationVar(&flags.load.HoldTime, "hold", 0, "Time objects are held before release")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.DurationVar(&flags.linger, "linger", 0, "Keep the metrics endpoint up this long after the run")
	f.BoolVar(&flags.trace, "trace", false, "Export run spans to stderr")

	return cmd
}

func runLoad(ctx context.Context, out io.Writer, cfg *config.Config, flags runFlags) error {
	log := logger.Get().With(zap.String("component", "poolbench"))

	if flags.trace {
		tc := observability.DefaultConfig()
		tc.ExporterType = "stdout"
		tc.Writer = os.Stderr
		tc.PrettyPrint = true
		if err := observability.Initialize(tc); err != nil {
			return err
		}
		defer func() {
			if err := observability.Shutdown(context.Background()); err != nil {
				log.Warn("failed to shutdown tracing", zap.Error(err))
			}
		}()
	}

	opts, err := cfg.Pool.Options()
	if err != nil {
		return err
	}
	opts = append(opts, pool.WithLogger(log.Named("pool")))

	size := flags.payloadSize
	if size < 0 {
		size = 0
	}
	p, err := pool.New(cfg.Pool.InitialCapacity, pool.Constructor(func() *payload {
		return &payload{data: make([]byte, size)}
	}), opts...)
	if err != nil {
		return err
	}
	defer p.Cleanup()

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		if _, err := metrics.Register(reg, p.Name(), p); err != nil {
			return err
		}
		srv := serveMetrics(cfg.Metrics, reg, log)
		defer func() {
			if flags.linger > 0 {
				log.Info("metrics endpoint lingering", zap.Duration("linger", flags.linger))
				select {
				case <-ctx.Done():
				case <-time.After(flags.linger):
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runner, err := loadgen.NewRunner(p, flags.load, log)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, report)
}

func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("serving metrics", zap.String("address", cfg.Address), zap.String("path", cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
