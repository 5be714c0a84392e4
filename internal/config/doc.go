// Package config provides centralized configuration management for the
// aggregation pipeline. Configuration layers three sources in order of
// precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Built-in defaults (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BROKERFLOW_* for
// namespacing:
//
//	BROKERFLOW_SERVER_PORT=8080
//	BROKERFLOW_STORAGE_ROOT=/var/brokerflow/data
//	BROKERFLOW_CACHE_CAPACITY_BYTES=134217728
//	BROKERFLOW_PIPELINE_CONCURRENCY=10
//	BROKERFLOW_LOGGING_LEVEL=info
//
// The config file location defaults to ./config.yaml and is
// overridable via BROKERFLOW_CONFIG.
//
// # Validation
//
// All configuration is validated at load time: cache capacity, TTL,
// batch size, and concurrency must be positive, the storage root must
// be set, and the server port must be in range.
package config
