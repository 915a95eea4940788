package config

import (
	"github.com/ajitpratap0/slotpool/pkg/errors"
	"github.com/ajitpratap0/slotpool/pkg/logger"
	"github.com/ajitpratap0/slotpool/pkg/pool"
)

// Config is the root configuration document.
type Config struct {
	Pool    PoolConfig    `yaml:"pool" mapstructure:"pool"`
	Logger  logger.Config `yaml:"logger" mapstructure:"logger"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// PoolConfig mirrors the pool construction options.
type PoolConfig struct {
	// Name labels the pool in logs and metrics
	Name string `yaml:"name" mapstructure:"name"`
	// InitialCapacity is the number of slots built at construction
	InitialCapacity int `yaml:"initial_capacity" mapstructure:"initial_capacity"`
	// ExpansionPercent is the growth step as a fraction of current capacity (0 disables growth)
	ExpansionPercent float64 `yaml:"expansion_percent" mapstructure:"expansion_percent"`
	// MaxExpansionPercent bounds total growth as a percentage of the initial capacity
	MaxExpansionPercent float64 `yaml:"max_expansion_percent" mapstructure:"max_expansion_percent"`
	// Overflow is "reject" or "transient"
	Overflow string `yaml:"overflow" mapstructure:"overflow"`
	// Strategies lists the allocation strategies (cache, scan, striped, all)
	Strategies []string `yaml:"strategies" mapstructure:"strategies"`
	// Stripes is the number of striped cursors, 0 for automatic
	Stripes int `yaml:"stripes" mapstructure:"stripes"`
	// CacheSize bounds the free-index cache, 0 for the default
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
	// ProbeLimit bounds striped probes per acquisition, 0 for automatic
	ProbeLimit int `yaml:"probe_limit" mapstructure:"probe_limit"`
	// LazyPopulation leaves expanded slots empty until first use
	LazyPopulation bool `yaml:"lazy_population" mapstructure:"lazy_population"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" mapstructure:"address"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Default returns a configuration matching the pool defaults.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Name:                "default",
			InitialCapacity:     1024,
			ExpansionPercent:    pool.DefaultExpansionPercent,
			MaxExpansionPercent: pool.DefaultMaxExpansionPercent,
			Overflow:            pool.OverflowReject.String(),
			Strategies:          []string{"all"},
			CacheSize:           pool.DefaultCacheSize,
		},
		Logger: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for correctness. Errors carry
// errors.ErrorTypeConfig.
func (c *Config) Validate() error {
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New(errors.ErrorTypeConfig, "metrics.address is required when metrics are enabled")
	}
	return nil
}

// Validate checks the pool section.
func (p *PoolConfig) Validate() error {
	if p.InitialCapacity <= 0 {
		return invalid("pool.initial_capacity must be positive", "initial_capacity", p.InitialCapacity)
	}
	if p.ExpansionPercent < 0 || p.ExpansionPercent > 1 {
		return invalid("pool.expansion_percent must be within [0,1]", "expansion_percent", p.ExpansionPercent)
	}
	if p.MaxExpansionPercent <= 0 || p.MaxExpansionPercent > pool.MaxExpansionPercent {
		return invalid("pool.max_expansion_percent must be within (0,1000]", "max_expansion_percent", p.MaxExpansionPercent)
	}
	if p.Stripes < 0 || p.Stripes > pool.MaxStripes {
		return invalid("pool.stripes out of range", "stripes", p.Stripes)
	}
	if p.CacheSize < 0 {
		return invalid("pool.cache_size cannot be negative", "cache_size", p.CacheSize)
	}
	if p.ProbeLimit < 0 {
		return invalid("pool.probe_limit cannot be negative", "probe_limit", p.ProbeLimit)
	}
	if _, err := pool.ParseOverflowPolicy(p.Overflow); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "pool.overflow is invalid")
	}
	s, err := pool.ParseStrategies(p.Strategies...)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "pool.strategies is invalid")
	}
	if !s.Has(pool.StrategyScan) && !s.Has(pool.StrategyStriped) {
		return invalid("pool.strategies needs scan or striped", "strategies", s.String())
	}
	return nil
}

// Options converts the pool section into pool options. The section is
// validated first.
func (p *PoolConfig) Options() ([]pool.Option, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	policy, _ := pool.ParseOverflowPolicy(p.Overflow)
	strategies, _ := pool.ParseStrategies(p.Strategies...)

	opts := []pool.Option{
		pool.WithName(p.Name),
		pool.WithOverflowPolicy(policy),
		pool.WithStrategies(strategies),
		pool.WithStripes(p.Stripes),
		pool.WithCacheSize(p.CacheSize),
		pool.WithProbeLimit(p.ProbeLimit),
	}
	if p.ExpansionPercent == 0 {
		opts = append(opts, pool.WithoutExpansion())
	} else {
		opts = append(opts, pool.WithExpansion(p.ExpansionPercent, p.MaxExpansionPercent))
	}
	if p.LazyPopulation {
		opts = append(opts, pool.WithLazyPopulation())
	}
	return opts, nil
}

func invalid(msg, key string, value interface{}) error {
	return errors.New(errors.ErrorTypeConfig, msg).WithDetail(key, value)
}
