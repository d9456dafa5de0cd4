package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the store.
type Metrics struct {
	// KV engine metrics
	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec
	KVErrorsTotal       *prometheus.CounterVec

	// Atom / schema / field metrics
	AtomsCreatedTotal      prometheus.Counter
	SchemaTransitionsTotal *prometheus.CounterVec
	FieldOperationsTotal   *prometheus.CounterVec
	PermissionDeniedTotal  *prometheus.CounterVec

	// Message bus metrics
	BusPublishedTotal  *prometheus.CounterVec
	BusDroppedTotal    *prometheus.CounterVec
	BusQueueDepth      *prometheus.GaugeVec
	BusSubscriberCount *prometheus.GaugeVec

	// Orchestrator metrics
	OrchestratorQueueDepth        prometheus.Gauge
	OrchestratorTransformDuration *prometheus.HistogramVec
	OrchestratorExecutionsTotal   *prometheus.CounterVec

	// Signature gate metrics
	SigGateVerificationDuration prometheus.Histogram
	SigGateVerificationsTotal   *prometheus.CounterVec
	SigGateNonceStoreSize       prometheus.Gauge
	SigGateRateLimitedTotal     prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		KVOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_kv_operations_total",
				Help: "Total number of KV engine operations",
			},
			[]string{"operation", "tree"},
		),
		KVOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fold_kv_operation_duration_seconds",
				Help:    "KV engine operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "tree"},
		),
		KVErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_kv_errors_total",
				Help: "Total number of KV engine errors",
			},
			[]string{"operation", "tree"},
		),

		AtomsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fold_atoms_created_total",
				Help: "Total number of atoms created",
			},
		),
		SchemaTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_schema_transitions_total",
				Help: "Total number of schema state transitions",
			},
			[]string{"from", "to"},
		),
		FieldOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_field_operations_total",
				Help: "Total number of field read/write operations",
			},
			[]string{"operation", "variant"},
		),
		PermissionDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_permission_denied_total",
				Help: "Total number of permission-denied field accesses",
			},
			[]string{"operation"},
		),

		BusPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_bus_published_total",
				Help: "Total number of messages published to the bus",
			},
			[]string{"topic"},
		),
		BusDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_bus_dropped_total",
				Help: "Total number of messages dropped due to subscriber queue overflow",
			},
			[]string{"topic"},
		),
		BusQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fold_bus_queue_depth",
				Help: "Current depth of a subscriber's pending queue",
			},
			[]string{"topic"},
		),
		BusSubscriberCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fold_bus_subscriber_count",
				Help: "Current number of subscribers for a topic",
			},
			[]string{"topic"},
		),

		OrchestratorQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fold_orchestrator_queue_depth",
				Help: "Current depth of the orchestrator's work queue",
			},
		),
		OrchestratorTransformDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fold_orchestrator_transform_duration_seconds",
				Help:    "Transform execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transform_id"},
		),
		OrchestratorExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_orchestrator_executions_total",
				Help: "Total number of transform executions",
			},
			[]string{"transform_id", "status"},
		),

		SigGateVerificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fold_siggate_verification_duration_seconds",
				Help:    "Signature verification latency in seconds",
				Buckets: []float64{.001, .002, .005, .01, .02, .05, .1},
			},
		),
		SigGateVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fold_siggate_verifications_total",
				Help: "Total number of signature verification attempts",
			},
			[]string{"status"},
		),
		SigGateNonceStoreSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fold_siggate_nonce_store_size",
				Help: "Current number of nonces held in the nonce store",
			},
		),
		SigGateRateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fold_siggate_rate_limited_total",
				Help: "Total number of requests rejected by the signer rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.KVOperationsTotal,
		m.KVOperationDuration,
		m.KVErrorsTotal,
		m.AtomsCreatedTotal,
		m.SchemaTransitionsTotal,
		m.FieldOperationsTotal,
		m.PermissionDeniedTotal,
		m.BusPublishedTotal,
		m.BusDroppedTotal,
		m.BusQueueDepth,
		m.BusSubscriberCount,
		m.OrchestratorQueueDepth,
		m.OrchestratorTransformDuration,
		m.OrchestratorExecutionsTotal,
		m.SigGateVerificationDuration,
		m.SigGateVerificationsTotal,
		m.SigGateNonceStoreSize,
		m.SigGateRateLimitedTotal,
	)

	return m
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
