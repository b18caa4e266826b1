package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig

	// FlagsFile is an optional YAML file holding the runtime service
	// flags (read-only mode, login disabled). When set, the file is
	// watched and flag changes apply without a restart.
	FlagsFile string
}

// ServerConfig holds HTTP server configuration
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

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// RootAPIKey is the api key assigned to the bootstrap admin user
	// on first start. Required unless login is disabled.
	RootAPIKey string

	// ReadOnly and LoginDisabled are the boot-time values of the
	// runtime flags. A flags file, when configured, overrides them.
	ReadOnly      bool
	LoginDisabled bool
}

// ObservabilityConfig holds observability settings
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

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
		FlagsFile:     getEnv("DOCSHELF_FLAGS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("DOCSHELF_HOST", "0.0.0.0"),
		Port:            getEnv("DOCSHELF_PORT", "8080"),
		ReadTimeout:     getEnvDuration("DOCSHELF_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("DOCSHELF_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("DOCSHELF_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("DOCSHELF_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("DOCSHELF_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if storageType := getEnv("DOCSHELF_STORAGE_TYPE", ""); storageType != "" {
		cfg.Type = storageType
	}

	// SQLite config
	if path := getEnv("DOCSHELF_SQLITE_PATH", ""); path != "" {
		cfg.SQLitePath = path
	}

	// PostgreSQL config
	if pgURL := getEnv("DOCSHELF_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("DOCSHELF_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("DOCSHELF_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("DOCSHELF_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// Redis config
	if redisAddr := getEnv("DOCSHELF_REDIS_ADDR", ""); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword := getEnv("DOCSHELF_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("DOCSHELF_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}

	// Cache config
	if cacheEnabled := getEnv("DOCSHELF_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if cacheTTL := getEnvDuration("DOCSHELF_CACHE_TTL", 0); cacheTTL > 0 {
		cfg.CacheTTL = cacheTTL
	}
	if lruSize := getEnvInt("DOCSHELF_LRU_SIZE", 0); lruSize > 0 {
		cfg.LRUSize = lruSize
	}

	return cfg
}

// loadAuthConfig loads authentication configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		RootAPIKey:    getEnv("DOCSHELF_ROOT_API_KEY", ""),
		ReadOnly:      getEnvBool("DOCSHELF_READONLY", false),
		LoginDisabled: getEnvBool("DOCSHELF_LOGIN_DISABLED", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("DOCSHELF_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("DOCSHELF_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("DOCSHELF_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("DOCSHELF_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("DOCSHELF_OTEL_SERVICE_NAME", "docshelf"),
		OTelServiceVersion: getEnv("DOCSHELF_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("DOCSHELF_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
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

	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, or postgres)", c.Storage.Type)
	}

	if c.Storage.CacheEnabled && c.Storage.RedisAddr == "" {
		return fmt.Errorf("redis address is required when the cache is enabled")
	}

	if c.Auth.RootAPIKey == "" && !c.Auth.LoginDisabled {
		return fmt.Errorf("root api key is required unless login is disabled")
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

// parseLogLevel parses a log level string
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
