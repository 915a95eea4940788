package pool

import (
	"math"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/slotpool/pkg/errors"
	"github.com/ajitpratap0/slotpool/pkg/logger"
)

const (
	// DefaultExpansionPercent is the growth step used when no option overrides it.
	DefaultExpansionPercent = 0.25
	// DefaultMaxExpansionPercent bounds total growth to twice the initial capacity.
	DefaultMaxExpansionPercent = 100.0
	// DefaultCacheSize is the number of recently freed indices kept for the fast path.
	DefaultCacheSize = 1024
	// DefaultProbeLimit bounds striped probing per acquisition.
	DefaultProbeLimit = 64

	// MaxExpansionPercent is the upper bound accepted for the maximum expansion percentage.
	MaxExpansionPercent = 1000.0
	// MaxStripes is the upper bound accepted by WithStripes.
	MaxStripes = 1024

	maxDefaultStripes = 64
)

// OverflowPolicy selects what Acquire does once every strategy and expansion
// has failed. Exactly one policy is active per pool.
type OverflowPolicy int

const (
	// OverflowReject makes Acquire return the zero value and false.
	OverflowReject OverflowPolicy = iota
	// OverflowTransient makes Acquire construct an unpooled object with the factory.
	OverflowTransient
)

// String returns the policy name used in configuration files.
func (o OverflowPolicy) String() string {
	switch o {
	case OverflowReject:
		return "reject"
	case OverflowTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy maps a configuration name to an OverflowPolicy.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "reject", "none":
		return OverflowReject, nil
	case "transient", "create":
		return OverflowTransient, nil
	default:
		return OverflowReject, errors.Newf(errors.ErrorTypeValidation, "unknown overflow policy %q", name)
	}
}

// Strategy is a set of allocation strategies Acquire may use.
type Strategy uint8

const (
	// StrategyCache pops recently released indices from the free-index cache.
	StrategyCache Strategy = 1 << iota
	// StrategyScan scans the availability mask word by word.
	StrategyScan
	// StrategyStriped probes slots through one of several striped cursors.
	StrategyStriped

	// StrategyAll enables every strategy.
	StrategyAll = StrategyCache | StrategyScan | StrategyStriped
)

// Has reports whether every strategy in o is enabled in s.
func (s Strategy) Has(o Strategy) bool {
	return s&o == o
}

// String returns a "+"-joined list of the enabled strategy names.
func (s Strategy) String() string {
	var names []string
	if s.Has(StrategyCache) {
		names = append(names, "cache")
	}
	if s.Has(StrategyScan) {
		names = append(names, "scan")
	}
	if s.Has(StrategyStriped) {
		names = append(names, "striped")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParseStrategies combines strategy names ("cache", "scan", "striped", "all").
// An empty list selects StrategyAll.
func ParseStrategies(names ...string) (Strategy, error) {
	if len(names) == 0 {
		return StrategyAll, nil
	}
	var s Strategy
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cache":
			s |= StrategyCache
		case "scan":
			s |= StrategyScan
		case "striped":
			s |= StrategyStriped
		case "all":
			s |= StrategyAll
		default:
			return 0, errors.Newf(errors.ErrorTypeValidation, "unknown allocation strategy %q", name)
		}
	}
	return s, nil
}

// Option configures a Pool at construction.
type Option func(*options)

type options struct {
	name                string
	expansionPercent    float64
	maxExpansionPercent float64
	overflow            OverflowPolicy
	strategies          Strategy
	stripes             int
	cacheSize           int
	probeLimit          int
	lazy                bool
	logger              *zap.Logger
}

func defaultOptions() options {
	return options{
		name:                "default",
		expansionPercent:    DefaultExpansionPercent,
		maxExpansionPercent: DefaultMaxExpansionPercent,
		overflow:            OverflowReject,
		strategies:          StrategyAll,
	}
}

// WithName labels the pool in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithExpansion sets the growth step p (fraction of current capacity, in
// [0,1]) and the maximum total growth m (percent of initial capacity, in
// (0,1000]). p == 0 disables growth.
func WithExpansion(p, m float64) Option {
	return func(o *options) {
		o.expansionPercent = p
		o.maxExpansionPercent = m
	}
}

// WithoutExpansion fixes the capacity at its initial value.
func WithoutExpansion() Option {
	return func(o *options) {
		o.expansionPercent = 0
	}
}

// WithOverflowPolicy selects the exhaustion behavior.
func WithOverflowPolicy(policy OverflowPolicy) Option {
	return func(o *options) {
		o.overflow = policy
	}
}

// WithStrategies restricts the allocation strategies. At least one of
// StrategyScan or StrategyStriped must remain enabled.
func WithStrategies(s Strategy) Option {
	return func(o *options) {
		o.strategies = s
	}
}

// WithStripes sets the number of striped cursors. Zero selects GOMAXPROCS
// clamped to 64.
func WithStripes(n int) Option {
	return func(o *options) {
		o.stripes = n
	}
}

// WithCacheSize bounds the free-index cache. Zero selects DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithProbeLimit bounds the striped probes per acquisition. Zero selects
// min(capacity, DefaultProbeLimit).
func WithProbeLimit(n int) Option {
	return func(o *options) {
		o.probeLimit = n
	}
}

// WithLazyPopulation leaves slots added by expansion empty until they are
// first claimed. Empty slots can also adopt foreign objects on Release.
func WithLazyPopulation() Option {
	return func(o *options) {
		o.lazy = true
	}
}

// WithLogger sets the logger. The default is the global logger named "pool".
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// validate checks construction arguments and fills derived defaults.
func (o *options) validate(initialCapacity int) error {
	if initialCapacity <= 0 {
		return errors.New(errors.ErrorTypeValidation, "initial capacity must be positive").
			WithDetail("initial_capacity", initialCapacity)
	}
	if uint64(initialCapacity) > math.MaxUint32 {
		return errors.New(errors.ErrorTypeValidation, "initial capacity exceeds the index range").
			WithDetail("initial_capacity", initialCapacity)
	}
	if math.IsNaN(o.expansionPercent) || o.expansionPercent < 0 || o.expansionPercent > 1 {
		return errors.New(errors.ErrorTypeValidation, "expansion percent must be within [0,1]").
			WithDetail("expansion_percent", o.expansionPercent)
	}
	if math.IsNaN(o.maxExpansionPercent) || o.maxExpansionPercent <= 0 || o.maxExpansionPercent > MaxExpansionPercent {
		return errors.New(errors.ErrorTypeValidation, "max expansion percent must be within (0,1000]").
			WithDetail("max_expansion_percent", o.maxExpansionPercent)
	}
	if o.overflow != OverflowReject && o.overflow != OverflowTransient {
		return errors.New(errors.ErrorTypeValidation, "unknown overflow policy").
			WithDetail("overflow", int(o.overflow))
	}
	if o.strategies&^StrategyAll != 0 {
		return errors.New(errors.ErrorTypeValidation, "unknown allocation strategy bits").
			WithDetail("strategies", uint8(o.strategies))
	}
	if !o.strategies.Has(StrategyScan) && !o.strategies.Has(StrategyStriped) {
		return errors.New(errors.ErrorTypeValidation, "at least one of scan or striped strategies is required").
			WithDetail("strategies", o.strategies.String())
	}
	if o.stripes < 0 || o.stripes > MaxStripes {
		return errors.New(errors.ErrorTypeValidation, "stripe count out of range").
			WithDetail("stripes", o.stripes)
	}
	if o.cacheSize < 0 {
		return errors.New(errors.ErrorTypeValidation, "cache size must not be negative").
			WithDetail("cache_size", o.cacheSize)
	}
	if o.probeLimit < 0 {
		return errors.New(errors.ErrorTypeValidation, "probe limit must not be negative").
			WithDetail("probe_limit", o.probeLimit)
	}

	if o.stripes == 0 {
		o.stripes = runtime.GOMAXPROCS(0)
		if o.stripes > maxDefaultStripes {
			o.stripes = maxDefaultStripes
		}
		if o.stripes < 1 {
			o.stripes = 1
		}
	}
	if o.cacheSize == 0 {
		o.cacheSize = DefaultCacheSize
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("pool")
	}
	o.logger = o.logger.With(zap.String("pool", o.name))
	return nil
}

// ceilCapacity returns ceil(base*factor), tolerating float noise such as
// 10*1.1 = 11.000000000000002.
func ceilCapacity(base int, factor float64) int {
	return int(math.Ceil(float64(base)*factor - 1e-9))
}
