// Command gatehouse runs the authorization decision service: the policy
// engine, role resolver and decision cache behind POST /v1/authorize, plus
// the role, assignment and token management API.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/gatehouse/pkg/api"
	"github.com/platinummonkey/gatehouse/pkg/authz"
	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/roles"
	"github.com/platinummonkey/gatehouse/pkg/store/postgres"
	"github.com/platinummonkey/gatehouse/pkg/store/rediscache"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("Starting gatehouse")

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := postgres.NewStore(db)
	if err := store.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to seed built-in roles: %v", err)
	}

	var metrics *observability.Metrics
	promRegistry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	// The policy read path optionally goes through redis; everything else
	// hits postgres directly.
	var policyStore authz.PolicyStore = store
	var policyCache *rediscache.PolicyCache
	if cfg.Redis.Enabled {
		opts := []rediscache.Option{}
		if metrics != nil {
			opts = append(opts, rediscache.WithMetrics(metrics))
		}
		policyCache, err = rediscache.New(cfg.Redis, store, opts...)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer policyCache.Close()
		policyStore = policyCache
		logger.Info("Redis policy cache enabled")
	}

	reg := registry.Default()

	resolverOpts := []roles.ResolverOption{}
	if cfg.Authz.ForceGrantsAll {
		resolverOpts = append(resolverOpts, roles.WithForceGrantsAll())
	}
	resolver := roles.NewResolver(store, store, roles.DefaultRoles{
		Authenticated: cfg.Authz.DefaultAuthenticatedRoles,
		Anonymous:     cfg.Authz.DefaultAnonymousRoles,
	}, resolverOpts...)

	serviceOpts := []authz.Option{
		authz.WithCache(cfg.Authz.CacheSize, cfg.Authz.CacheTTL),
		authz.WithStoreTimeout(cfg.Authz.StoreTimeout),
		authz.WithLogger(logger),
	}
	if metrics != nil {
		serviceOpts = append(serviceOpts, authz.WithMetrics(metrics))
	}
	service := authz.NewService(reg, resolver, policyStore, serviceOpts...)

	// Token-principal assignment writes are checked against the owner's
	// active grants.
	assignments := roles.NewSubsetStore(store, store.OwnerOf)

	apiOpts := []api.Option{api.WithLogger(logger)}
	if metrics != nil {
		apiOpts = append(apiOpts, api.WithMetrics(metrics))
	}
	if policyCache != nil {
		apiOpts = append(apiOpts, api.WithPolicyInvalidator(policyCache))
	}
	server := api.NewServer(reg, service, store, assignments, store, apiOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, db, policyCache, promRegistry, logger)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})

	go func() {
		defer observability.RecoverPanic(logger, "decision server")
		logger.WithField("addr", httpServer.Addr).Info("Decision service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// startHealthServer serves probes and metrics on a separate port so they stay
// reachable when the decision endpoint is saturated.
func startHealthServer(cfg *config.Config, db *sql.DB, policyCache *rediscache.PolicyCache, promRegistry *prometheus.Registry, logger *observability.Logger) *http.Server {
	mux := http.NewServeMux()

	checker := observability.NewHealthChecker(db, redisClientOf(policyCache), version)
	observability.RegisterHealthRoutes(mux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, promRegistry)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: mux,
	}
	go func() {
		defer observability.RecoverPanic(logger, "health server")
		logger.WithField("addr", srv.Addr).Info("Health server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server stopped")
		}
	}()
	return srv
}

func redisClientOf(c *rediscache.PolicyCache) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client()
}
