// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for every setting, matching the teacher's env-var-driven
// load* function idiom (one load function per sub-config, assembled by
// LoadConfig).
//
// # Configuration Structure
//
// Server settings (the out-of-scope HTTP adapter's listen address):
//
//	FOLD_HOST="0.0.0.0"
//	FOLD_PORT="8080"
//	FOLD_HEALTH_PORT="9090"
//	FOLD_READ_TIMEOUT="15s"
//	FOLD_WRITE_TIMEOUT="15s"
//
// Embedded KV store:
//
//	FOLD_DB_PATH="./fold.db"
//
// Crypto (Argon2id preset, key-rotation schedule):
//
//	FOLD_ARGON2_PRESET="standard"  # low, standard, high
//	FOLD_KEY_ROTATION_SCHEDULE=""  # 5-field cron expression; empty disables rotation
//	FOLD_SALT_SIZE="16"
//
// Signature verification gate:
//
//	FOLD_SIGGATE_TIME_WINDOW="300s"
//	FOLD_SIGGATE_NONCE_TTL="300s"
//	FOLD_SIGGATE_MAX_NONCE_STORE="100000"
//	FOLD_SIGGATE_RATE_LIMIT="100"
//	FOLD_SIGGATE_REQUIRED_COMPONENTS=""  # comma-separated, defaults to the strict profile
//
// Orchestrator (transform executor sizing):
//
//	FOLD_ORCHESTRATOR_PROCESSED_SET_CAPACITY="10000"
//	FOLD_ORCHESTRATOR_QUEUE_CAPACITY="4096"
//
// Observability:
//
//	FOLD_LOG_LEVEL="info"  # debug, info, warn, error
//	FOLD_METRICS_ENABLED="true"
//	FOLD_OTEL_ENABLED="true"
//	FOLD_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine, err := kv.Open(cfg.KV.DBPath)
//
// # Related Packages
//
//   - pkg/kv: uses KVConfig
//   - pkg/foldcrypto: uses CryptoConfig's Argon2 preset and rotation schedule
//   - pkg/siggate: uses SignatureGateConfig
//   - pkg/orchestrator: uses OrchestratorConfig
//   - pkg/observability: uses ObservabilityConfig
package config
