package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/foldcore/pkg/foldcrypto"
	"github.com/platinummonkey/foldcore/pkg/observability"
	"github.com/platinummonkey/foldcore/pkg/siggate"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	KV            KVConfig
	Crypto        CryptoConfig
	SignatureGate SignatureGateConfig
	Orchestrator  OrchestratorConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// KVConfig points at the embedded bbolt file backing every tree.
type KVConfig struct {
	DBPath string
}

// CryptoConfig selects the Argon2id cost profile and signing-key rotation
// schedule for the crypto-metadata/envelope layer.
type CryptoConfig struct {
	Argon2Preset     foldcrypto.Argon2Preset
	RotationSchedule string // 5-field cron expression; empty disables rotation
	SaltSize         int
}

// SignatureGateConfig controls the RFC 9421-style verification gate: which
// components a request must cover, how long a signature and its nonce stay
// valid, and the per-signer admission rate limit.
type SignatureGateConfig struct {
	RequiredComponents  []string
	AllowedTimeWindow   time.Duration
	NonceTTL            time.Duration
	MaxNonceStoreSize   int
	RateLimitPerWindow  int
	RateLimitWindow     time.Duration
	RateLimitBurstSize  int
	DistributedNonceURL string // optional Redis URL; empty uses the in-process nonce store only
}

// OrchestratorConfig bounds the transform executor's work queue and
// dedupe set, and its per-execution wall-clock budget.
type OrchestratorConfig struct {
	ProcessedSetCapacity int
	QueueCapacity        int
	TransformTimeout     time.Duration
	RetryBackoff         time.Duration
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		KV:            loadKVConfig(),
		Crypto:        loadCryptoConfig(),
		SignatureGate: loadSignatureGateConfig(),
		Orchestrator:  loadOrchestratorConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment.
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("FOLD_HOST", "0.0.0.0"),
		Port:            getEnv("FOLD_PORT", "8080"),
		ReadTimeout:     getEnvDuration("FOLD_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("FOLD_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("FOLD_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("FOLD_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("FOLD_HEALTH_PORT", "9090"),
	}
}

// loadKVConfig loads the embedded store's file path from environment.
func loadKVConfig() KVConfig {
	return KVConfig{
		DBPath: getEnv("FOLD_DB_PATH", "./fold.db"),
	}
}

// loadCryptoConfig loads Argon2id cost profile and rotation settings.
func loadCryptoConfig() CryptoConfig {
	return CryptoConfig{
		Argon2Preset:     parseArgon2Preset(getEnv("FOLD_ARGON2_PRESET", "standard")),
		RotationSchedule: getEnv("FOLD_KEY_ROTATION_SCHEDULE", ""),
		SaltSize:         getEnvInt("FOLD_SALT_SIZE", foldcrypto.MinSaltSize),
	}
}

// loadSignatureGateConfig loads verification-gate policy and rate-limit
// settings, falling back to the gate's own defaults for anything unset.
func loadSignatureGateConfig() SignatureGateConfig {
	defaultPolicy := siggate.DefaultPolicy()
	defaultLimiter := siggate.DefaultLimiterConfig()

	cfg := SignatureGateConfig{
		RequiredComponents:  defaultPolicy.RequiredComponents,
		AllowedTimeWindow:   getEnvDuration("FOLD_SIGGATE_TIME_WINDOW", defaultPolicy.AllowedTimeWindow),
		NonceTTL:            getEnvDuration("FOLD_SIGGATE_NONCE_TTL", defaultPolicy.NonceTTL),
		MaxNonceStoreSize:   getEnvInt("FOLD_SIGGATE_MAX_NONCE_STORE", defaultPolicy.MaxNonceStoreSize),
		RateLimitPerWindow:  getEnvInt("FOLD_SIGGATE_RATE_LIMIT", defaultLimiter.RequestsPerWindow),
		RateLimitWindow:     getEnvDuration("FOLD_SIGGATE_RATE_WINDOW", defaultLimiter.WindowDuration),
		RateLimitBurstSize:  getEnvInt("FOLD_SIGGATE_RATE_BURST", defaultLimiter.BurstSize),
		DistributedNonceURL: getEnv("FOLD_SIGGATE_DISTRIBUTED_NONCE_URL", ""),
	}

	if components := getEnv("FOLD_SIGGATE_REQUIRED_COMPONENTS", ""); components != "" {
		cfg.RequiredComponents = strings.Split(components, ",")
	}

	return cfg
}

// loadOrchestratorConfig loads transform-executor sizing and timing.
func loadOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		ProcessedSetCapacity: getEnvInt("FOLD_ORCHESTRATOR_PROCESSED_SET_CAPACITY", 10_000),
		QueueCapacity:        getEnvInt("FOLD_ORCHESTRATOR_QUEUE_CAPACITY", 4096),
		TransformTimeout:     getEnvDuration("FOLD_ORCHESTRATOR_TRANSFORM_TIMEOUT", 5*time.Second),
		RetryBackoff:         getEnvDuration("FOLD_ORCHESTRATOR_RETRY_BACKOFF", 200*time.Millisecond),
	}
}

// loadObservabilityConfig loads observability configuration from environment.
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("FOLD_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("FOLD_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("FOLD_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("FOLD_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("FOLD_OTEL_SERVICE_NAME", "foldcore"),
		OTelServiceVersion: getEnv("FOLD_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("FOLD_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.KV.DBPath == "" {
		return fmt.Errorf("kv db path is required")
	}

	switch c.Crypto.Argon2Preset {
	case foldcrypto.Argon2Low, foldcrypto.Argon2Standard, foldcrypto.Argon2High:
	default:
		return fmt.Errorf("invalid argon2 preset: %s (must be low, standard, or high)", c.Crypto.Argon2Preset)
	}
	if c.Crypto.SaltSize < foldcrypto.MinSaltSize {
		return fmt.Errorf("salt size must be at least %d bytes", foldcrypto.MinSaltSize)
	}

	if len(c.SignatureGate.RequiredComponents) == 0 {
		return fmt.Errorf("signature gate must require at least one covered component")
	}
	if c.SignatureGate.AllowedTimeWindow <= 0 {
		return fmt.Errorf("signature gate allowed time window must be positive")
	}
	if c.SignatureGate.NonceTTL <= 0 {
		return fmt.Errorf("signature gate nonce ttl must be positive")
	}
	if c.SignatureGate.MaxNonceStoreSize <= 0 {
		return fmt.Errorf("signature gate max nonce store size must be positive")
	}

	if c.Orchestrator.ProcessedSetCapacity <= 0 {
		return fmt.Errorf("orchestrator processed set capacity must be positive")
	}
	if c.Orchestrator.QueueCapacity <= 0 {
		return fmt.Errorf("orchestrator queue capacity must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseArgon2Preset parses a preset name, defaulting to the standard
// profile for anything unrecognized.
func parseArgon2Preset(preset string) foldcrypto.Argon2Preset {
	switch strings.ToLower(preset) {
	case "low":
		return foldcrypto.Argon2Low
	case "high":
		return foldcrypto.Argon2High
	case "standard":
		return foldcrypto.Argon2Standard
	default:
		return foldcrypto.Argon2Standard
	}
}

// parseLogLevel parses a log level string.
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
