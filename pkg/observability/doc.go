// Package observability provides logging, metrics, health checks and
// tracing for the registry service.
//
// # Overview
//
// The package bundles the operational concerns every binary shares:
//
//   - Structured JSON logging on top of log/slog
//   - Prometheus metrics with HTTP middleware
//   - Liveness and readiness probes for the health server
//   - Optional OpenTelemetry traces and metrics over OTLP/gRPC
//   - Graceful shutdown coordination
//
// # Usage Example
//
// Wire the pieces at startup:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
//	checker := observability.NewHealthChecker(store, redisClient)
//	mux := http.NewServeMux()
//	observability.RegisterHealthRoutes(mux, checker)
//	observability.RegisterMetricsEndpoint(mux, registry)
//
// # Related Packages
//
//   - pkg/config: Supplies the observability configuration
//   - pkg/httputil: Request logging middleware built on the logger
package observability
