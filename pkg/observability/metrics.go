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

	// Query store metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Identity cache metrics
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	CacheFlushesTotal       prometheus.Counter
	CacheInvalidationsTotal prometheus.Counter
	CacheEntries            prometheus.Gauge

	// Shared (Redis) lookup metrics
	SharedLookupsTotal *prometheus.CounterVec

	// Linking metrics
	LinkResolutionsTotal *prometheus.CounterVec

	// Reminder metrics
	RemindersTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "communitybridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "communitybridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "communitybridge_queries_total",
				Help: "Total number of web application database queries",
			},
			[]string{"operation", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "communitybridge_query_duration_seconds",
				Help:    "Web application database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),

		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "communitybridge_identity_cache_hits_total",
				Help: "Identity cache hits, negative entries included",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "communitybridge_identity_cache_misses_total",
				Help: "Identity cache misses",
			},
		),
		CacheFlushesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "communitybridge_identity_cache_flushes_total",
				Help: "Number of times the identity cache was cleared at capacity",
			},
		),
		CacheInvalidationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "communitybridge_identity_cache_invalidations_total",
				Help: "Number of player invalidations",
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "communitybridge_identity_cache_entries",
				Help: "Current number of identity cache entries",
			},
		),

		SharedLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "communitybridge_shared_lookups_total",
				Help: "Shared Redis lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),

		LinkResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "communitybridge_link_resolutions_total",
				Help: "Player to user resolutions by the identifier that matched",
			},
			[]string{"matched"},
		),

		RemindersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "communitybridge_reminders_total",
				Help: "Unregistered player reminders by action (message, kick, error)",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QueriesTotal,
		m.QueryDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheFlushesTotal,
		m.CacheInvalidationsTotal,
		m.CacheEntries,
		m.SharedLookupsTotal,
		m.LinkResolutionsTotal,
		m.RemindersTotal,
	)

	return m
}

// ObserveQuery records a query outcome
func (m *Metrics) ObserveQuery(op, status string, duration time.Duration) {
	m.QueriesTotal.WithLabelValues(op, status).Inc()
	m.QueryDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// CacheHit records an identity cache hit
func (m *Metrics) CacheHit() {
	m.CacheHitsTotal.Inc()
}

// CacheMiss records an identity cache miss
func (m *Metrics) CacheMiss() {
	m.CacheMissesTotal.Inc()
}

// CacheFlushed records a flush-all eviction
func (m *Metrics) CacheFlushed() {
	m.CacheFlushesTotal.Inc()
}

// CacheInvalidated records a player invalidation
func (m *Metrics) CacheInvalidated() {
	m.CacheInvalidationsTotal.Inc()
}

// CacheSize records the current number of entries
func (m *Metrics) CacheSize(entries int) {
	m.CacheEntries.Set(float64(entries))
}

// SharedLookup records a Redis lookup result
func (m *Metrics) SharedLookup(result string) {
	m.SharedLookupsTotal.WithLabelValues(result).Inc()
}

// LinkResolved records which identifier matched ("uuid", "name" or "none")
func (m *Metrics) LinkResolved(matched string) {
	m.LinkResolutionsTotal.WithLabelValues(matched).Inc()
}

// Reminded records a reminder action
func (m *Metrics) Reminded(action string) {
	m.RemindersTotal.WithLabelValues(action).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// route labels the request; pass a function returning the route template to
// keep label cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			name := r.URL.Path
			if route != nil {
				name = route(r)
			}
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, name, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, name).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
