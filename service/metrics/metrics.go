package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Sui RPC Metrics
	rpcCallsTotal     *prometheus.CounterVec
	rpcCallDuration   *prometheus.HistogramVec
	rpcRateLimitHits  *prometheus.CounterVec
	rpcRetries        *prometheus.CounterVec
	rpcSourceSwitches *prometheus.CounterVec

	// Enrichment Metrics
	enrichmentObjectsTotal *prometheus.CounterVec
	enrichmentBatchSize    prometheus.Histogram

	// Interpretation Metrics
	interpretationsTotal   *prometheus.CounterVec
	interpretationDuration *prometheus.HistogramVec
	headlineTiersTotal     *prometheus.CounterVec

	// Temporal Metrics
	activityDuration *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Sui RPC Metrics
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_calls_total",
				Help: "Total number of Sui RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sui_rpc_call_duration_seconds",
				Help:    "Duration of Sui RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		rpcRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_rate_limit_hits_total",
				Help: "Total number of Sui RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		rpcRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_retries_total",
				Help: "Total number of Sui RPC retry attempts",
			},
			[]string{"method", "reason"},
		),
		rpcSourceSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sui_rpc_source_switches_total",
				Help: "Total number of fallbacks from one RPC source to another",
			},
			[]string{"from", "to"},
		),

		// Enrichment Metrics
		enrichmentObjectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_objects_total",
				Help: "Objects requested for enrichment by outcome (success, error, timeout, omitted)",
			},
			[]string{"outcome"},
		),
		enrichmentBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enrichment_batch_size",
				Help:    "Number of objects selected for enrichment per transaction",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
			},
		),

		// Interpretation Metrics
		interpretationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "interpretations_total",
				Help: "Total number of transaction interpretations by status",
			},
			[]string{"status"},
		),
		interpretationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "interpretation_duration_seconds",
				Help:    "End-to-end duration of transaction interpretation in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		headlineTiersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headline_tiers_total",
				Help: "Headline summaries produced, by the tier that produced them",
			},
			[]string{"tier"},
		),

		// Temporal Metrics
		activityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "temporal_activity_duration_seconds",
				Help:    "Duration of Temporal activity execution in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Sui RPC metric helpers

// RecordRPCCall records a Sui RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.rpcCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.rpcCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.rpcRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.rpcRetries.WithLabelValues(method, reason).Inc()
}

// RecordSourceSwitch records a fallback from one RPC source to another.
func (m *Metrics) RecordSourceSwitch(from, to string) {
	m.rpcSourceSwitches.WithLabelValues(from, to).Inc()
}

// Enrichment metric helpers

// RecordEnrichmentOutcome records the outcome of one object enrichment.
func (m *Metrics) RecordEnrichmentOutcome(outcome string, count int) {
	m.enrichmentObjectsTotal.WithLabelValues(outcome).Add(float64(count))
}

// RecordEnrichmentBatch records how many objects were selected for a transaction.
func (m *Metrics) RecordEnrichmentBatch(selected int) {
	m.enrichmentBatchSize.Observe(float64(selected))
}

// Interpretation metric helpers

// RecordInterpretation records an interpretation with its duration.
func (m *Metrics) RecordInterpretation(status string, duration float64) {
	m.interpretationsTotal.WithLabelValues(status).Inc()
	m.interpretationDuration.WithLabelValues(status).Observe(duration)
}

// RecordHeadlineTier records which headline tier described a transaction.
func (m *Metrics) RecordHeadlineTier(tier string) {
	m.headlineTiersTotal.WithLabelValues(tier).Inc()
}

// Temporal metric helpers

// RecordActivityDuration records how long an activity took.
func (m *Metrics) RecordActivityDuration(activity string, duration float64) {
	m.activityDuration.WithLabelValues(activity).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
