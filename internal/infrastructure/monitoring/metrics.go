package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// AI gateway metrics
	aiRequestsTotal   *prometheus.CounterVec
	aiRequestDuration *prometheus.HistogramVec

	// Kitchen metrics
	flowsTotal        *prometheus.CounterVec
	flowsInFlight     *prometheus.GaugeVec
	staleResultsTotal *prometheus.CounterVec
	savesTotal        *prometheus.CounterVec

	// State store metrics
	stateOperations *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector backed by its own
// registry, so several collectors can coexist in tests.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger,
		registry: registry,

		// HTTP metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),

		aiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of generative AI requests",
			},
			[]string{"operation", "model", "status"},
		),
		aiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "Generative AI request duration in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation", "model"},
		),

		flowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_flows_total",
				Help: "Background flows by outcome",
			},
			[]string{"flow", "outcome"},
		),
		flowsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kitchen_flows_in_flight",
				Help: "Background flows currently running",
			},
			[]string{"flow"},
		),
		staleResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_stale_results_total",
				Help: "Results dropped because a newer request superseded them",
			},
			[]string{"flow"},
		),
		savesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitchen_saves_total",
				Help: "Image saves by method",
			},
			[]string{"method", "target"},
		),

		stateOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "state_store_operations_total",
				Help: "Session state store operations",
			},
			[]string{"store", "operation", "status"},
		),
	}
}

// HTTPMiddleware records request metrics labelled by chi route pattern.
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusCode := strconv.Itoa(status)

		m.httpRequestsTotal.WithLabelValues(r.Method, path, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path, statusCode).Observe(time.Since(start).Seconds())
		m.httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(ww.BytesWritten()))
	})
}

// AIRequest records one generative AI call.
func (m *MetricsCollector) AIRequest(operation, model, status string, duration time.Duration) {
	m.aiRequestsTotal.WithLabelValues(operation, model, status).Inc()
	m.aiRequestDuration.WithLabelValues(operation, model).Observe(duration.Seconds())
}

// FlowStarted marks a background flow as running.
func (m *MetricsCollector) FlowStarted(flow string) {
	m.flowsInFlight.WithLabelValues(flow).Inc()
}

// FlowFinished records the outcome of a background flow.
func (m *MetricsCollector) FlowFinished(flow, outcome string) {
	m.flowsInFlight.WithLabelValues(flow).Dec()
	m.flowsTotal.WithLabelValues(flow, outcome).Inc()
}

// StaleResult counts a result dropped after being superseded.
func (m *MetricsCollector) StaleResult(flow string) {
	m.staleResultsTotal.WithLabelValues(flow).Inc()
}

// SaveCompleted counts a completed save.
func (m *MetricsCollector) SaveCompleted(method, target string) {
	m.savesTotal.WithLabelValues(method, target).Inc()
}

// StateOperation counts a state store call.
func (m *MetricsCollector) StateOperation(store, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stateOperations.WithLabelValues(store, operation, status).Inc()
}

// Registry exposes the underlying registry for tests.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
