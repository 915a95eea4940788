package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/ajitpratap0/slotpool/pkg/errors"
	"github.com/ajitpratap0/slotpool/pkg/pool"
	"github.com/ajitpratap0/slotpool/pkg/testutil"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1024, cfg.Pool.InitialCapacity)
	assert.Equal(t, "reject", cfg.Pool.Overflow)
}

func TestPoolConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero capacity", mutate: func(c *Config) { c.Pool.InitialCapacity = 0 }},
		{name: "expansion above one", mutate: func(c *Config) { c.Pool.ExpansionPercent = 1.5 }},
		{name: "negative expansion", mutate: func(c *Config) { c.Pool.ExpansionPercent = -0.5 }},
		{name: "zero max expansion", mutate: func(c *Config) { c.Pool.MaxExpansionPercent = 0 }},
		{name: "max expansion too large", mutate: func(c *Config) { c.Pool.MaxExpansionPercent = 5000 }},
		{name: "negative stripes", mutate: func(c *Config) { c.Pool.Stripes = -1 }},
		{name: "negative cache", mutate: func(c *Config) { c.Pool.CacheSize = -1 }},
		{name: "negative probe limit", mutate: func(c *Config) { c.Pool.ProbeLimit = -1 }},
		{name: "unknown overflow", mutate: func(c *Config) { c.Pool.Overflow = "block" }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Pool.Strategies = []string{"random"} }},
		{name: "cache only", mutate: func(c *Config) { c.Pool.Strategies = []string{"cache"} }},
		{name: "metrics without address", mutate: func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestOptionsBuildPool(t *testing.T) {
	cfg := Default()
	cfg.Pool.InitialCapacity = 10
	cfg.Pool.ExpansionPercent = 0.5
	cfg.Pool.MaxExpansionPercent = 50
	cfg.Pool.Overflow = "transient"
	cfg.Pool.Strategies = []string{"scan", "striped"}

	opts, err := cfg.Pool.Options()
	require.NoError(t, err)

	opts = append(opts, pool.WithLogger(zap.NewNop()))
	p, err := pool.New(cfg.Pool.InitialCapacity, pool.Constructor(func() *int { return new(int) }), opts...)
	require.NoError(t, err)
	defer p.Cleanup()

	assert.Equal(t, 15, p.MaxAllowedCapacity())
	assert.Equal(t, pool.OverflowTransient, p.OverflowPolicy())
	assert.Equal(t, "default", p.Name())
}

func TestOptionsWithoutExpansion(t *testing.T) {
	cfg := Default()
	cfg.Pool.InitialCapacity = 8
	cfg.Pool.ExpansionPercent = 0

	opts, err := cfg.Pool.Options()
	require.NoError(t, err)

	opts = append(opts, pool.WithLogger(zap.NewNop()))
	p, err := pool.New(cfg.Pool.InitialCapacity, pool.Constructor(func() *int { return new(int) }), opts...)
	require.NoError(t, err)
	defer p.Cleanup()

	assert.Equal(t, 8, p.MaxAllowedCapacity())
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SLOTPOOL_TEST_VALUE", "42")
	assert.Equal(t, "capacity: 42", substituteEnvVars("capacity: ${SLOTPOOL_TEST_VALUE}"))
	assert.Equal(t, "name: ", substituteEnvVars("name: ${SLOTPOOL_TEST_UNSET_VALUE}"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}

type LoaderSuite struct {
	testutil.IntegrationTestSuite
}

func TestLoaderSuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) TestLoadFile() {
	s.T().Setenv("SLOTPOOL_TEST_POOL_NAME", "sessions")
	path := s.CreateTempFile("pool.yaml", []byte(`
pool:
  name: ${SLOTPOOL_TEST_POOL_NAME}
  initial_capacity: 256
  expansion_percent: 0.5
  max_expansion_percent: 300
  overflow: transient
  strategies: [cache, striped]
  stripes: 8
  lazy_population: true
logger:
  level: debug
`))

	cfg, err := Load(path)
	s.Require().NoError(err)

	s.Equal("sessions", cfg.Pool.Name)
	s.Equal(256, cfg.Pool.InitialCapacity)
	s.InDelta(0.5, cfg.Pool.ExpansionPercent, 1e-9)
	s.InDelta(300, cfg.Pool.MaxExpansionPercent, 1e-9)
	s.Equal("transient", cfg.Pool.Overflow)
	s.Equal([]string{"cache", "striped"}, cfg.Pool.Strategies)
	s.Equal(8, cfg.Pool.Stripes)
	s.True(cfg.Pool.LazyPopulation)
	s.Equal("debug", cfg.Logger.Level)

	// Keys absent from the file keep their defaults.
	s.Equal(pool.DefaultCacheSize, cfg.Pool.CacheSize)
	s.Equal(":9090", cfg.Metrics.Address)
}

func (s *LoaderSuite) TestEnvironmentOverrides() {
	s.T().Setenv("SLOTPOOL_POOL_INITIAL_CAPACITY", "4096")
	s.T().Setenv("SLOTPOOL_POOL_OVERFLOW", "transient")
	s.T().Setenv("SLOTPOOL_LOGGER_LEVEL", "warn")
	path := s.CreateTempFile("override.yaml", []byte("pool:\n  initial_capacity: 16\n"))

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(4096, cfg.Pool.InitialCapacity)
	s.Equal("transient", cfg.Pool.Overflow)
	s.Equal("warn", cfg.Logger.Level)
}

func (s *LoaderSuite) TestLoadWithoutFile() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(Default().Pool, cfg.Pool)
}

func (s *LoaderSuite) TestSaveThenLoad() {
	cfg := Default()
	cfg.Pool.Name = "saved"
	cfg.Pool.InitialCapacity = 77
	cfg.Pool.Strategies = []string{"scan"}

	path := filepath.Join(s.TempDir(), "saved.yaml")
	s.Require().NoError(Save(path, cfg))

	loaded, err := Load(path)
	s.Require().NoError(err)
	s.Equal(cfg.Pool, loaded.Pool)
}

func (s *LoaderSuite) TestLoadErrors() {
	_, err := Load(filepath.Join(s.TempDir(), "missing.yaml"))
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeConfig))

	path := s.CreateTempFile("broken.yaml", []byte("pool: [unclosed\n"))
	_, err = Load(path)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeConfig))

	path = s.CreateTempFile("invalid.yaml", []byte("pool:\n  initial_capacity: -1\n"))
	_, err = Load(path)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeConfig))
}
