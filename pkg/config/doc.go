// Package config loads Gatehouse configuration from GATEHOUSE_* environment
// variables with sensible defaults for local development.
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
//
// # Variables
//
// Server:
//
//	GATEHOUSE_HOST              bind address (default 0.0.0.0)
//	GATEHOUSE_PORT              API port (default 8080)
//	GATEHOUSE_HEALTH_PORT       health/metrics port (default 9090)
//
// Database:
//
//	GATEHOUSE_POSTGRES_URL      postgres connection string (required)
//	GATEHOUSE_POSTGRES_MAX_CONNS, GATEHOUSE_POSTGRES_IDLE_CONNS
//
// Policy cache:
//
//	GATEHOUSE_REDIS_ENABLED     enable the redis read-through policy cache
//	GATEHOUSE_REDIS_URL, GATEHOUSE_REDIS_PASSWORD, GATEHOUSE_REDIS_DB
//	GATEHOUSE_REDIS_TTL         cached policy lifetime (default 5m)
//
// Decisions:
//
//	GATEHOUSE_DECISION_CACHE_SIZE, GATEHOUSE_DECISION_CACHE_TTL
//	GATEHOUSE_STORE_TIMEOUT     store deadline on the decision path
//	GATEHOUSE_DEFAULT_ROLES     comma-separated roles for authenticated principals
//	GATEHOUSE_ANONYMOUS_ROLES   comma-separated roles for anonymous requests
//	GATEHOUSE_FORCE_GRANTS_ALL  force-mode roles apply to everyone
//
// Observability:
//
//	GATEHOUSE_LOG_LEVEL         debug|info|warn|error (default info)
//	GATEHOUSE_METRICS_ENABLED   expose prometheus metrics (default true)
package config
