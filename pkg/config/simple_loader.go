package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/slotpool/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. SLOTPOOL_POOL_INITIAL_CAPACITY.
const EnvPrefix = "SLOTPOOL"

// Load reads a YAML configuration file on top of Default. ${VAR} references
// in the file are replaced by environment values before parsing, and
// SLOTPOOL_* variables override individual keys. An empty path loads the
// defaults and environment only. The result is validated.
func Load(filePath string) (*Config, error) {
	v := newViper()

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is supplied by the operator
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", filePath)
		}
		if err := v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").
				WithDetail("path", filePath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to filePath as YAML.
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", filePath)
	}

	return nil
}

// newViper returns a viper instance seeded with every default key, so that
// AutomaticEnv can resolve overrides for keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("pool.name", d.Pool.Name)
	v.SetDefault("pool.initial_capacity", d.Pool.InitialCapacity)
	v.SetDefault("pool.expansion_percent", d.Pool.ExpansionPercent)
	v.SetDefault("pool.max_expansion_percent", d.Pool.MaxExpansionPercent)
	v.SetDefault("pool.overflow", d.Pool.Overflow)
	v.SetDefault("pool.strategies", d.Pool.Strategies)
	v.SetDefault("pool.stripes", d.Pool.Stripes)
	v.SetDefault("pool.cache_size", d.Pool.CacheSize)
	v.SetDefault("pool.probe_limit", d.Pool.ProbeLimit)
	v.SetDefault("pool.lazy_population", d.Pool.LazyPopulation)
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.development", d.Logger.Development)
	v.SetDefault("logger.encoding", d.Logger.Encoding)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
	v.SetDefault("metrics.path", d.Metrics.Path)
	return v
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
