// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings, plus an optional YAML flags file that can
// flip the read-only and login-disabled modes at runtime.
//
// # Configuration Structure
//
// Server settings:
//
//	DOCSHELF_HOST="0.0.0.0"
//	DOCSHELF_PORT="8080"
//	DOCSHELF_HEALTH_PORT="9090"
//	DOCSHELF_READ_TIMEOUT="15s"
//	DOCSHELF_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	DOCSHELF_STORAGE_TYPE="sqlite"  # memory, sqlite, postgres
//	DOCSHELF_SQLITE_PATH="/var/docshelf/docshelf.db"
//	DOCSHELF_POSTGRES_URL="postgres://localhost/docshelf"
//	DOCSHELF_POSTGRES_MAX_CONNS="20"
//
// Cache settings:
//
//	DOCSHELF_CACHE_ENABLED="true"
//	DOCSHELF_REDIS_ADDR="localhost:6379"
//	DOCSHELF_CACHE_TTL="5m"
//	DOCSHELF_LRU_SIZE="1024"
//
// Auth settings:
//
//	DOCSHELF_ROOT_API_KEY="..."
//	DOCSHELF_READONLY="false"
//	DOCSHELF_LOGIN_DISABLED="false"
//	DOCSHELF_FLAGS_FILE="/etc/docshelf/flags.yaml"
//
// Observability settings:
//
//	DOCSHELF_LOG_LEVEL="info"  # debug, info, warn, error
//	DOCSHELF_METRICS_ENABLED="true"
//	DOCSHELF_OTEL_ENABLED="false"
//	DOCSHELF_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/authz: Consumes the runtime flags
//   - pkg/observability: Uses observability configuration
package config
