// Package config provides centralized configuration management for the
// demand dashboard service.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. A YAML file: config.yaml or configs/config.yaml
//	3. Environment variables prefixed with DEMAND_
//
// # Environment Variables
//
// Nested sections join their names with underscores:
//
//	DEMAND_SERVER_PORT=8080
//	DEMAND_LOGGING_LEVEL=debug
//	DEMAND_DATASET_SEED=7
//	DEMAND_CACHE_SIZE=512
//	DEMAND_SECURITY_ALLOWED_ORIGINS=http://localhost:3000,http://localhost:8080
//	DEMAND_TELEMETRY_TRACING_EXPORTER=stdout
//
// Load validates the merged result; an invalid value is reported as an error
// rather than silently replaced, except for the log format which is always JSON.
package config
