package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments mirroring the Prometheus
// surface in metrics.go, for deployments that export via OTLP instead of
// scraping /metrics directly.
type OTelMetrics struct {
	// KV engine metrics
	kvOperationsTotal   metric.Int64Counter
	kvOperationDuration metric.Float64Histogram
	kvErrorsTotal       metric.Int64Counter

	// Atom / schema / field metrics
	atomsCreatedTotal      metric.Int64Counter
	schemaTransitionsTotal metric.Int64Counter
	fieldOperationsTotal   metric.Int64Counter
	permissionDeniedTotal  metric.Int64Counter

	// Message bus metrics
	busPublishedTotal  metric.Int64Counter
	busDroppedTotal    metric.Int64Counter
	busQueueDepth      metric.Int64UpDownCounter
	busSubscriberCount metric.Int64UpDownCounter

	// Orchestrator metrics
	orchestratorQueueDepth        metric.Int64UpDownCounter
	orchestratorTransformDuration metric.Float64Histogram
	orchestratorExecutionsTotal   metric.Int64Counter

	// Signature gate metrics
	sigGateVerificationDuration metric.Float64Histogram
	sigGateVerificationsTotal   metric.Int64Counter
	sigGateNonceStoreSize       metric.Int64UpDownCounter
	sigGateRateLimitedTotal     metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/foldcore")

	m := &OTelMetrics{}
	var err error

	m.kvOperationsTotal, err = meter.Int64Counter(
		"fold.kv.operations.total",
		metric.WithDescription("Total number of KV engine operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kv_operations_total counter: %w", err)
	}

	m.kvOperationDuration, err = meter.Float64Histogram(
		"fold.kv.operation.duration",
		metric.WithDescription("KV engine operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kv_operation_duration histogram: %w", err)
	}

	m.kvErrorsTotal, err = meter.Int64Counter(
		"fold.kv.errors.total",
		metric.WithDescription("Total number of KV engine errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kv_errors_total counter: %w", err)
	}

	m.atomsCreatedTotal, err = meter.Int64Counter(
		"fold.atoms.created.total",
		metric.WithDescription("Total number of atoms created"),
		metric.WithUnit("{atom}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create atoms_created_total counter: %w", err)
	}

	m.schemaTransitionsTotal, err = meter.Int64Counter(
		"fold.schema.transitions.total",
		metric.WithDescription("Total number of schema state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_transitions_total counter: %w", err)
	}

	m.fieldOperationsTotal, err = meter.Int64Counter(
		"fold.field.operations.total",
		metric.WithDescription("Total number of field read/write operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create field_operations_total counter: %w", err)
	}

	m.permissionDeniedTotal, err = meter.Int64Counter(
		"fold.permission.denied.total",
		metric.WithDescription("Total number of permission-denied field accesses"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission_denied_total counter: %w", err)
	}

	m.busPublishedTotal, err = meter.Int64Counter(
		"fold.bus.published.total",
		metric.WithDescription("Total number of messages published to the bus"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus_published_total counter: %w", err)
	}

	m.busDroppedTotal, err = meter.Int64Counter(
		"fold.bus.dropped.total",
		metric.WithDescription("Total number of messages dropped due to subscriber queue overflow"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus_dropped_total counter: %w", err)
	}

	m.busQueueDepth, err = meter.Int64UpDownCounter(
		"fold.bus.queue.depth",
		metric.WithDescription("Current depth of a subscriber's pending queue"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus_queue_depth gauge: %w", err)
	}

	m.busSubscriberCount, err = meter.Int64UpDownCounter(
		"fold.bus.subscriber.count",
		metric.WithDescription("Current number of subscribers for a topic"),
		metric.WithUnit("{subscriber}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bus_subscriber_count gauge: %w", err)
	}

	m.orchestratorQueueDepth, err = meter.Int64UpDownCounter(
		"fold.orchestrator.queue.depth",
		metric.WithDescription("Current depth of the orchestrator's work queue"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator_queue_depth gauge: %w", err)
	}

	m.orchestratorTransformDuration, err = meter.Float64Histogram(
		"fold.orchestrator.transform.duration",
		metric.WithDescription("Transform execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator_transform_duration histogram: %w", err)
	}

	m.orchestratorExecutionsTotal, err = meter.Int64Counter(
		"fold.orchestrator.executions.total",
		metric.WithDescription("Total number of transform executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator_executions_total counter: %w", err)
	}

	m.sigGateVerificationDuration, err = meter.Float64Histogram(
		"fold.siggate.verification.duration",
		metric.WithDescription("Signature verification latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create siggate_verification_duration histogram: %w", err)
	}

	m.sigGateVerificationsTotal, err = meter.Int64Counter(
		"fold.siggate.verifications.total",
		metric.WithDescription("Total number of signature verification attempts"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create siggate_verifications_total counter: %w", err)
	}

	m.sigGateNonceStoreSize, err = meter.Int64UpDownCounter(
		"fold.siggate.nonce_store.size",
		metric.WithDescription("Current number of nonces held in the nonce store"),
		metric.WithUnit("{nonce}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create siggate_nonce_store_size gauge: %w", err)
	}

	m.sigGateRateLimitedTotal, err = meter.Int64Counter(
		"fold.siggate.rate_limited.total",
		metric.WithDescription("Total number of requests rejected by the signer rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create siggate_rate_limited_total counter: %w", err)
	}

	return m, nil
}

// RecordKVOperation records a KV engine operation.
func (m *OTelMetrics) RecordKVOperation(ctx context.Context, operation, tree string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("kv.operation", operation),
		attribute.String("kv.tree", tree),
	}
	m.kvOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.kvOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err != nil {
		m.kvErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordAtomCreated records an atom creation.
func (m *OTelMetrics) RecordAtomCreated(ctx context.Context) {
	m.atomsCreatedTotal.Add(ctx, 1)
}

// RecordSchemaTransition records a schema state-machine transition.
func (m *OTelMetrics) RecordSchemaTransition(ctx context.Context, from, to string) {
	attrs := []attribute.KeyValue{
		attribute.String("schema.from", from),
		attribute.String("schema.to", to),
	}
	m.schemaTransitionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFieldOperation records a field read or write.
func (m *OTelMetrics) RecordFieldOperation(ctx context.Context, operation, variant string) {
	attrs := []attribute.KeyValue{
		attribute.String("field.operation", operation),
		attribute.String("field.variant", variant),
	}
	m.fieldOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPermissionDenied records a permission-denied field access.
func (m *OTelMetrics) RecordPermissionDenied(ctx context.Context, operation string) {
	attrs := []attribute.KeyValue{
		attribute.String("field.operation", operation),
	}
	m.permissionDeniedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBusPublish records a message published to a topic.
func (m *OTelMetrics) RecordBusPublish(ctx context.Context, topic string) {
	attrs := []attribute.KeyValue{attribute.String("bus.topic", topic)}
	m.busPublishedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBusDropped records a message dropped due to subscriber queue overflow.
func (m *OTelMetrics) RecordBusDropped(ctx context.Context, topic string) {
	attrs := []attribute.KeyValue{attribute.String("bus.topic", topic)}
	m.busDroppedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// UpdateBusQueueDepth updates the pending queue depth for a topic's subscriber.
func (m *OTelMetrics) UpdateBusQueueDepth(ctx context.Context, topic string, delta int64) {
	attrs := []attribute.KeyValue{attribute.String("bus.topic", topic)}
	m.busQueueDepth.Add(ctx, delta, metric.WithAttributes(attrs...))
}

// UpdateBusSubscriberCount updates the subscriber count for a topic.
func (m *OTelMetrics) UpdateBusSubscriberCount(ctx context.Context, topic string, delta int64) {
	attrs := []attribute.KeyValue{attribute.String("bus.topic", topic)}
	m.busSubscriberCount.Add(ctx, delta, metric.WithAttributes(attrs...))
}

// UpdateOrchestratorQueueDepth updates the orchestrator work queue depth.
func (m *OTelMetrics) UpdateOrchestratorQueueDepth(ctx context.Context, delta int64) {
	m.orchestratorQueueDepth.Add(ctx, delta)
}

// RecordTransformExecution records a transform execution's duration and outcome.
func (m *OTelMetrics) RecordTransformExecution(ctx context.Context, transformID, status string, duration time.Duration) {
	durAttrs := []attribute.KeyValue{attribute.String("transform.id", transformID)}
	m.orchestratorTransformDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durAttrs...))

	execAttrs := []attribute.KeyValue{
		attribute.String("transform.id", transformID),
		attribute.String("status", status),
	}
	m.orchestratorExecutionsTotal.Add(ctx, 1, metric.WithAttributes(execAttrs...))
}

// RecordSignatureVerification records a signature verification attempt's
// duration and outcome.
func (m *OTelMetrics) RecordSignatureVerification(ctx context.Context, status string, duration time.Duration) {
	m.sigGateVerificationDuration.Record(ctx, duration.Seconds())

	attrs := []attribute.KeyValue{attribute.String("status", status)}
	m.sigGateVerificationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// UpdateSigGateNonceStoreSize updates the nonce store size gauge.
func (m *OTelMetrics) UpdateSigGateNonceStoreSize(ctx context.Context, delta int64) {
	m.sigGateNonceStoreSize.Add(ctx, delta)
}

// RecordSigGateRateLimited records a request rejected by the signer rate limiter.
func (m *OTelMetrics) RecordSigGateRateLimited(ctx context.Context) {
	m.sigGateRateLimitedTotal.Add(ctx, 1)
}
