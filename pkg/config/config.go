package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/exportwins/winsmi/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Hawk authentication configuration
	Hawk HawkConfig

	// Nonce cache configuration
	Nonce NonceConfig

	// Database configuration
	Database DatabaseConfig

	// Partner API configuration
	API APIConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// HawkConfig holds request authentication settings
type HawkConfig struct {
	CredentialsFile        string
	WatchCredentials       bool
	Skew                   time.Duration
	AcceptUntrustedContent bool
	TrustForwardedHeaders  bool

	IPCheckEnabled bool
	IPAllowlist    []string
	XFFDepth       int
}

// NonceConfig selects and configures the replay cache
type NonceConfig struct {
	Backend         string // redis or memory
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int
	MemorySize      int
}

// DatabaseConfig holds the wins database settings
type DatabaseConfig struct {
	PostgresURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// APIConfig shapes the partner endpoints
type APIConfig struct {
	// PublicURL is used for activity stream page links; empty means the request host
	PublicURL              string
	ActivityStreamPageSize int
}

// RateLimitConfig holds per-credential throttling settings.
// Counters live in Redis when the nonce backend is redis.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// Audit
	AuditLogDir string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Hawk:          loadHawkConfig(),
		Nonce:         loadNonceConfig(),
		Database:      loadDatabaseConfig(),
		API:           loadAPIConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("WINSMI_HOST", "0.0.0.0"),
		Port:            getEnv("WINSMI_PORT", "8080"),
		ReadTimeout:     getEnvDuration("WINSMI_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WINSMI_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("WINSMI_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("WINSMI_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("WINSMI_MAX_BODY_BYTES", 1<<20),
		HealthPort:      getEnv("WINSMI_HEALTH_PORT", "9090"),
	}
}

// loadHawkConfig loads authentication configuration from environment
func loadHawkConfig() HawkConfig {
	return HawkConfig{
		CredentialsFile:        getEnv("WINSMI_HAWK_CREDENTIALS_FILE", "/etc/winsmi/credentials.yaml"),
		WatchCredentials:       getEnvBool("WINSMI_HAWK_WATCH_CREDENTIALS", true),
		Skew:                   getEnvDuration("WINSMI_HAWK_SKEW", 60*time.Second),
		AcceptUntrustedContent: getEnvBool("WINSMI_HAWK_ACCEPT_UNTRUSTED_CONTENT", false),
		TrustForwardedHeaders:  getEnvBool("WINSMI_HAWK_TRUST_FORWARDED_HEADERS", false),
		IPCheckEnabled:         getEnvBool("WINSMI_HAWK_IP_CHECK_ENABLED", true),
		IPAllowlist:            getEnvList("WINSMI_HAWK_IP_ALLOWLIST"),
		XFFDepth:               getEnvInt("WINSMI_HAWK_XFF_DEPTH", 2),
	}
}

// loadNonceConfig loads nonce cache configuration from environment
func loadNonceConfig() NonceConfig {
	return NonceConfig{
		Backend:         strings.ToLower(getEnv("WINSMI_NONCE_BACKEND", "redis")),
		RedisURL:        getEnv("WINSMI_REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword:   getEnv("WINSMI_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("WINSMI_REDIS_DB", 0),
		RedisMaxRetries: getEnvInt("WINSMI_REDIS_MAX_RETRIES", 3),
		RedisPoolSize:   getEnvInt("WINSMI_REDIS_POOL_SIZE", 10),
		MemorySize:      getEnvInt("WINSMI_NONCE_MEMORY_SIZE", 100000),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		PostgresURL:     getEnv("WINSMI_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("WINSMI_POSTGRES_MAX_CONNS", 10),
		MaxIdleConns:    getEnvInt("WINSMI_POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("WINSMI_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		QueryTimeout:    getEnvDuration("WINSMI_POSTGRES_TIMEOUT", 10*time.Second),
	}
}

func loadAPIConfig() APIConfig {
	return APIConfig{
		PublicURL:              strings.TrimSuffix(getEnv("WINSMI_PUBLIC_URL", ""), "/"),
		ActivityStreamPageSize: getEnvInt("WINSMI_ACTIVITY_STREAM_PAGE_SIZE", 100),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool("WINSMI_RATE_LIMIT_ENABLED", false),
		RequestsPerWindow: getEnvInt("WINSMI_RATE_LIMIT_REQUESTS", 600),
		Window:            getEnvDuration("WINSMI_RATE_LIMIT_WINDOW", time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	cfg := ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("WINSMI_LOG_LEVEL", "info"))),
		MetricsEnabled:     getEnvBool("WINSMI_METRICS_ENABLED", true),
		AuditLogDir:        getEnv("WINSMI_AUDIT_LOG_DIR", ""),
		OTelEnabled:        getEnvBool("WINSMI_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("WINSMI_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("WINSMI_OTEL_SERVICE_NAME", "winsmi-api"),
		OTelServiceVersion: getEnv("WINSMI_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("WINSMI_OTEL_INSECURE", true),
	}

	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	// Validate Hawk config
	if c.Hawk.CredentialsFile == "" {
		return fmt.Errorf("credentials file is required")
	}
	if c.Hawk.Skew <= 0 {
		return fmt.Errorf("hawk skew must be positive")
	}
	if c.Hawk.IPCheckEnabled {
		if len(c.Hawk.IPAllowlist) == 0 {
			return fmt.Errorf("IP allowlist is required when the IP check is enabled")
		}
		if c.Hawk.XFFDepth < 1 {
			return fmt.Errorf("X-Forwarded-For depth must be at least 1")
		}
	}

	// Validate nonce config based on backend
	switch c.Nonce.Backend {
	case "redis":
		if c.Nonce.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis nonce backend")
		}
	case "memory":
		if c.Nonce.MemorySize <= 0 {
			return fmt.Errorf("memory nonce cache size must be positive")
		}
	default:
		return fmt.Errorf("invalid nonce backend: %s (must be redis or memory)", c.Nonce.Backend)
	}

	if c.API.ActivityStreamPageSize <= 0 {
		return fmt.Errorf("activity stream page size must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requests and window must be positive when enabled")
	}

	// Validate OpenTelemetry config
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

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
