package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the virtual-table adapter
type Metrics struct {
	// Token exchange metrics
	TokenExchangesTotal   *prometheus.CounterVec
	TokenExchangeDuration prometheus.Histogram
	TokenCacheHitsTotal   prometheus.Counter

	// Remote store metrics
	RemoteRequestsTotal   *prometheus.CounterVec
	RemoteRequestDuration *prometheus.HistogramVec

	// Adapter operation metrics
	OperationsTotal        *prometheus.CounterVec
	OperationDuration      *prometheus.HistogramVec
	SkippedAttributesTotal *prometheus.CounterVec

	// Health check metrics
	HealthCheckDuration *prometheus.HistogramVec
	HealthCheckErrors   *prometheus.CounterVec
}

// Config holds configuration for metrics
type Config struct {
	// Namespace for metrics (default: "hyperfleet_bigquery_vtable")
	Namespace string

	// Subsystem for metrics (default: "")
	Subsystem string

	// Registry to use (default: prometheus.DefaultRegisterer)
	Registry prometheus.Registerer
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() Config {
	return Config{
		Namespace: "hyperfleet_bigquery_vtable",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "hyperfleet_bigquery_vtable"
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		TokenExchangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "token_exchanges_total",
				Help:      "Total number of JWT bearer token exchanges",
			},
			[]string{"status"},
		),

		TokenExchangeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "token_exchange_duration_seconds",
				Help:      "Token exchange duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		TokenCacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "token_cache_hits_total",
				Help:      "Total number of access token requests served from cache",
			},
		),

		RemoteRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "remote_requests_total",
				Help:      "Total number of requests sent to the data endpoint",
			},
			[]string{"call", "status"},
		),

		RemoteRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "remote_request_duration_seconds",
				Help:      "Data endpoint request duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"call"},
		),

		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "operations_total",
				Help:      "Total number of CRUD operations handled",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "operation_duration_seconds",
				Help:      "CRUD operation duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		SkippedAttributesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "skipped_attributes_total",
				Help:      "Attributes dropped because they had no mapping or could not be coerced",
			},
			[]string{"reason"},
		),

		HealthCheckDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "health_check_duration_seconds",
				Help:      "Health check duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"check"},
		),

		HealthCheckErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "health_check_errors_total",
				Help:      "Total number of failed health checks",
			},
			[]string{"check"},
		),
	}
}

// RecordTokenExchange records one round trip to the token endpoint
func (m *Metrics) RecordTokenExchange(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TokenExchangesTotal.WithLabelValues(status).Inc()
	m.TokenExchangeDuration.Observe(duration.Seconds())
}

// RecordTokenCacheHit records an access token served without I/O
func (m *Metrics) RecordTokenCacheHit() {
	if m == nil {
		return
	}
	m.TokenCacheHitsTotal.Inc()
}

// RecordRemoteRequest records one call to the data endpoint
func (m *Metrics) RecordRemoteRequest(call, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RemoteRequestsTotal.WithLabelValues(call, status).Inc()
	m.RemoteRequestDuration.WithLabelValues(call).Observe(duration.Seconds())
}

// RecordOperation records a completed adapter operation
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSkippedAttribute records an attribute dropped during mapping
func (m *Metrics) RecordSkippedAttribute(reason string) {
	if m == nil {
		return
	}
	m.SkippedAttributesTotal.WithLabelValues(reason).Inc()
}

// RecordHealthCheck records the outcome of a readiness check
func (m *Metrics) RecordHealthCheck(check string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.HealthCheckDuration.WithLabelValues(check).Observe(duration.Seconds())
	if err != nil {
		m.HealthCheckErrors.WithLabelValues(check).Inc()
	}
}

// Status returns the status label for an operation outcome
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration returns the duration since the timer was created
func (t *Timer) ObserveDuration() time.Duration {
	return time.Since(t.start)
}
