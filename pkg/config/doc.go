// Package config loads pool configuration from YAML files and the
// environment and turns it into pool options.
//
// # Sections
//
//   - pool: capacity, expansion, overflow and allocation strategy settings
//   - logger: level and encoding of the global logger
//   - metrics: the Prometheus endpoint of the load generator
//
// # Usage
//
//	cfg, err := config.Load("slotpool.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	opts, err := cfg.Pool.Options()
//	if err != nil {
//		log.Fatal(err)
//	}
//	p, err := pool.New(cfg.Pool.InitialCapacity, factory, opts...)
//
// # Environment Variables
//
// References of the form ${VAR_NAME} are replaced with environment values
// before the file is parsed:
//
//	pool:
//	  name: ${POOL_NAME}
//	  initial_capacity: 4096
//
// Individual keys can also be overridden with SLOTPOOL_ variables, where the
// key path is upper-cased and dots become underscores:
//
//	SLOTPOOL_POOL_INITIAL_CAPACITY=8192
//	SLOTPOOL_POOL_STRATEGIES=cache,scan
//	SLOTPOOL_LOGGER_LEVEL=debug
package config
