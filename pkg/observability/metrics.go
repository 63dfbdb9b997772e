package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Decision metrics
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec

	// Decision cache metrics
	DecisionCacheHitsTotal   prometheus.Counter
	DecisionCacheMissesTotal prometheus.Counter

	// Policy cache metrics (redis read-through)
	PolicyCacheHitsTotal   prometheus.Counter
	PolicyCacheMissesTotal prometheus.Counter

	// Role reconciliation metrics
	ReconcileWritesTotal *prometheus.CounterVec

	// Store metrics
	StoreOperationDuration *prometheus.HistogramVec
	StoreErrorsTotal       *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	RolesTotal       prometheus.Gauge
	AssignmentsTotal prometheus.Gauge
	TokensActive     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Decision metrics. Buckets are tuned for a sub-5ms hot path.
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"outcome", "reason"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_decision_duration_seconds",
				Help:    "Authorization decision latency in seconds",
				Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"outcome"},
		),

		// Decision cache metrics
		DecisionCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_decision_cache_hits_total",
				Help: "Total number of decision cache hits",
			},
		),
		DecisionCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_decision_cache_misses_total",
				Help: "Total number of decision cache misses",
			},
		),

		// Policy cache metrics
		PolicyCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_policy_cache_hits_total",
				Help: "Total number of policy cache hits",
			},
		),
		PolicyCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_policy_cache_misses_total",
				Help: "Total number of policy cache misses",
			},
		),

		// Role reconciliation metrics
		ReconcileWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_reconcile_writes_total",
				Help: "Total number of assignment writes caused by claims reconciliation",
			},
			[]string{"operation"},
		),

		// Store metrics
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_store_errors_total",
				Help: "Total number of store errors",
			},
			[]string{"operation", "error_type"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Business metrics
		RolesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_roles_total",
				Help: "Total number of defined roles",
			},
		),
		AssignmentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_assignments_total",
				Help: "Total number of active role assignments",
			},
		),
		TokensActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_tokens_active",
				Help: "Number of active personal access tokens",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DecisionsTotal,
		m.DecisionDuration,
		m.DecisionCacheHitsTotal,
		m.DecisionCacheMissesTotal,
		m.PolicyCacheHitsTotal,
		m.PolicyCacheMissesTotal,
		m.ReconcileWritesTotal,
		m.StoreOperationDuration,
		m.StoreErrorsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RolesTotal,
		m.AssignmentsTotal,
		m.TokensActive,
	)

	return m
}

// ObserveDecision records one authorization decision.
func (m *Metrics) ObserveDecision(outcome, reason string, duration time.Duration) {
	m.DecisionsTotal.WithLabelValues(outcome, reason).Inc()
	m.DecisionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
