package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/bl4serial/pkg/serial"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// encode outcomes
const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeFallback  = "fallback"
	outcomeRejected  = "rejected"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Codec metrics
	decodeTotal *prometheus.CounterVec
	encodeTotal *prometheus.CounterVec
	batchSize   *prometheus.HistogramVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec

	handler http.Handler
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// uses the process-wide default registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	handler := promhttp.Handler()
	if reg != nil {
		registerer = reg
		handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	factory := promauto.With(registerer)

	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bl4serial_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bl4serial_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bl4serial_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		decodeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bl4serial_decode_total",
				Help: "Total number of decoded serials",
			},
			[]string{"item_type", "confidence"},
		),

		encodeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bl4serial_encode_total",
				Help: "Total number of encode requests by outcome",
			},
			[]string{"outcome"},
		),

		batchSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bl4serial_batch_size",
				Help:    "Number of serials per batch request",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
			[]string{"source"},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bl4serial_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bl4serial_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),

		handler: handler,
	}

	return m
}

// Handler serves the registry the metrics were registered with
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDecode counts a decoded item by type and confidence
func (m *Metrics) RecordDecode(item *serial.Item) {
	m.decodeTotal.WithLabelValues(item.ItemType, string(item.Confidence)).Inc()
}

// RecordEncode counts an encode by outcome. A nil result is a rejected edit.
func (m *Metrics) RecordEncode(res *serial.EncodeResult) {
	outcome := outcomeRejected
	switch {
	case res == nil:
	case res.Fallback:
		outcome = outcomeFallback
	case res.Changed:
		outcome = outcomeChanged
	default:
		outcome = outcomeUnchanged
	}
	m.encodeTotal.WithLabelValues(outcome).Inc()
}

// RecordBatch observes the size of a batch
func (m *Metrics) RecordBatch(source string, size int) {
	m.batchSize.WithLabelValues(source).Observe(float64(size))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		auth := next(h)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only requests that present a key count as attempts
			hasAPIKey := r.Header.Get(apiKeyHeader) != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			auth.ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
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
