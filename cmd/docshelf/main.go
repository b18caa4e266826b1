// Command docshelf runs the documentation registry server. All
// configuration comes from DOCSHELF_* environment variables; see
// pkg/config for the full list.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/docshelf/docshelf/pkg/api"
	"github.com/docshelf/docshelf/pkg/authz"
	"github.com/docshelf/docshelf/pkg/config"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/middleware"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/storage"
	"github.com/docshelf/docshelf/pkg/storage/postgres"
)

const maxRequestBody = 1 << 20 // 1 MiB, plenty for metadata payloads

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docshelf: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"storage": cfg.Storage.Type,
		"port":    cfg.Server.Port,
	}).Info("Starting docshelf")

	ctx := context.Background()

	// Runtime flags, optionally reloaded from a watched YAML file.
	flags := config.NewRuntimeFlags(cfg.Auth)
	if cfg.FlagsFile != "" {
		if err := flags.Watch(cfg.FlagsFile, logger); err != nil {
			return fmt.Errorf("failed to watch flags file: %w", err)
		}
		defer flags.Close()
	}

	// Metrics registry; the storage layers below record into it.
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	store, redisClient, sqlDB, err := buildStore(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Auth.RootAPIKey != "" {
		if err := storage.EnsureRootUser(ctx, store, cfg.Auth.RootAPIKey); err != nil {
			return err
		}
	}

	// OpenTelemetry, off unless configured.
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Cron job keeping the business gauges fresh.
	gaugeCron := cron.New()
	if _, err := gaugeCron.AddFunc("@every 30s", func() {
		refreshGauges(context.Background(), store, metrics, logger)
		if sqlDB != nil {
			stats := sqlDB.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule gauge refresh: %w", err)
	}
	refreshGauges(ctx, store, metrics, logger)
	gaugeCron.Start()
	defer gaugeCron.Stop()

	// API server and middleware chain.
	apiServer := api.NewServer(store, authz.NewGate(flags), logger, metrics)
	auth := middleware.NewAPIKeyMiddleware(store, logger)

	var handler http.Handler = auth.Handler(apiServer)
	handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.MaxBytesMiddleware(maxRequestBody),
	)(handler)
	if cfg.Observability.MetricsEnabled {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "docshelf")
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scrapers.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(shutdown.WaitForShutdown)

	return g.Wait()
}

// buildStore assembles the storage stack for the configured backend.
// The backend is instrumented with operation metrics, the sqlite
// backend gets an in-process LRU layer, and the redis read-through
// layer wraps whatever backend is configured when the cache is
// enabled. The returned redis client is nil unless the redis layer
// is active.
func buildStore(cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger) (storage.Store, *redis.Client, *sql.DB, error) {
	var (
		store storage.Store
		sqlDB *sql.DB
	)

	switch cfg.Storage.Type {
	case "memory":
		store = storage.NewInstrumentedStore(storage.NewMemoryStore(), metrics, "memory")
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		store = storage.NewInstrumentedStore(s, metrics, "sqlite")
		if cfg.Storage.LRUSize > 0 {
			lru, err := storage.NewLRUStore(store, cfg.Storage.LRUSize)
			if err != nil {
				return nil, nil, nil, err
			}
			store = lru.WithMetrics(metrics)
		}
	case "postgres":
		pg, err := postgres.NewPostgresStore(cfg.Storage)
		if err != nil {
			return nil, nil, nil, err
		}
		store = storage.NewInstrumentedStore(pg, metrics, "postgres")
		sqlDB = pg.DB()
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	if !cfg.Storage.CacheEnabled {
		return store, nil, sqlDB, nil
	}

	cache, err := postgres.NewRedisCache(store, cfg.Storage)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	cache.WithMetrics(metrics)
	logger.WithField("redis", cfg.Storage.RedisAddr).Info("Redis project cache enabled")
	return cache, cache.Client(), sqlDB, nil
}

// refreshGauges recomputes the business-level gauges from the store.
func refreshGauges(ctx context.Context, store storage.Store, metrics *observability.Metrics, logger *observability.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	projects, err := store.ListProjects(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to refresh project gauges")
		return
	}
	versions := 0
	for _, p := range projects {
		versions += len(p.Versions)
	}
	metrics.ProjectsTotal.Set(float64(len(projects)))
	metrics.VersionsTotal.Set(float64(versions))

	users, err := store.ListUsers(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to refresh user gauges")
		return
	}
	activeKeys := 0
	for _, u := range users {
		for _, k := range u.APIKeys {
			if k.IsValid {
				activeKeys++
			}
		}
	}
	metrics.UsersTotal.Set(float64(len(users)))
	metrics.APIKeysActive.Set(float64(activeKeys))
}
