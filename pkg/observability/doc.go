// Package observability provides structured logging, Prometheus metrics,
// health checks and graceful shutdown for the Gatehouse service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// Request-scoped context:
//
//	ctx = observability.WithPrincipalID(ctx, principal.ID)
//	observability.FromContext(ctx).Warn("decision denied")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObserveDecision("deny", "explicit_deny", elapsed)
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/api: HTTP surface that mounts the middleware
package observability
