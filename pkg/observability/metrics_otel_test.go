package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeterProvider creates a test meter provider with a manual reader
func setupTestMeterProvider(t *testing.T) (*metric.MeterProvider, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider, reader
}

func TestNewOTelMetrics(t *testing.T) {
	t.Run("successful initialization", func(t *testing.T) {
		provider, _ := setupTestMeterProvider(t)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				t.Logf("Error shutting down provider: %v", err)
			}
		}()

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v, want nil", err)
		}
		if m == nil {
			t.Fatal("NewOTelMetrics() returned nil metrics")
		}

		if m.kvOperationsTotal == nil {
			t.Error("kvOperationsTotal is nil")
		}
		if m.kvOperationDuration == nil {
			t.Error("kvOperationDuration is nil")
		}
		if m.kvErrorsTotal == nil {
			t.Error("kvErrorsTotal is nil")
		}
		if m.atomsCreatedTotal == nil {
			t.Error("atomsCreatedTotal is nil")
		}
		if m.schemaTransitionsTotal == nil {
			t.Error("schemaTransitionsTotal is nil")
		}
		if m.fieldOperationsTotal == nil {
			t.Error("fieldOperationsTotal is nil")
		}
		if m.permissionDeniedTotal == nil {
			t.Error("permissionDeniedTotal is nil")
		}
		if m.busPublishedTotal == nil {
			t.Error("busPublishedTotal is nil")
		}
		if m.busDroppedTotal == nil {
			t.Error("busDroppedTotal is nil")
		}
		if m.busQueueDepth == nil {
			t.Error("busQueueDepth is nil")
		}
		if m.busSubscriberCount == nil {
			t.Error("busSubscriberCount is nil")
		}
		if m.orchestratorQueueDepth == nil {
			t.Error("orchestratorQueueDepth is nil")
		}
		if m.orchestratorTransformDuration == nil {
			t.Error("orchestratorTransformDuration is nil")
		}
		if m.orchestratorExecutionsTotal == nil {
			t.Error("orchestratorExecutionsTotal is nil")
		}
		if m.sigGateVerificationDuration == nil {
			t.Error("sigGateVerificationDuration is nil")
		}
		if m.sigGateVerificationsTotal == nil {
			t.Error("sigGateVerificationsTotal is nil")
		}
		if m.sigGateNonceStoreSize == nil {
			t.Error("sigGateNonceStoreSize is nil")
		}
		if m.sigGateRateLimitedTotal == nil {
			t.Error("sigGateRateLimitedTotal is nil")
		}
	})
}

func findMetric(rm *metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestOTelMetrics_RecordKVOperation(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		tree      string
		duration  time.Duration
		err       error
	}{
		{name: "successful get", operation: "get", tree: "atoms", duration: 1 * time.Millisecond, err: nil},
		{name: "successful put", operation: "put", tree: "schemas", duration: 2 * time.Millisecond, err: nil},
		{name: "failed delete", operation: "delete", tree: "refs", duration: 1 * time.Millisecond, err: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := setupTestMeterProvider(t)
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					t.Logf("Error shutting down provider: %v", err)
				}
			}()

			m, err := NewOTelMetrics()
			if err != nil {
				t.Fatalf("NewOTelMetrics() error = %v", err)
			}

			ctx := context.Background()
			m.RecordKVOperation(ctx, tt.operation, tt.tree, tt.duration, tt.err)

			var rm metricdata.ResourceMetrics
			if err := reader.Collect(ctx, &rm); err != nil {
				t.Fatalf("Failed to collect metrics: %v", err)
			}

			if _, ok := findMetric(&rm, "fold.kv.operations.total"); !ok {
				t.Error("kv operations counter not recorded")
			}
			if _, ok := findMetric(&rm, "fold.kv.operation.duration"); !ok {
				t.Error("kv operation duration not recorded")
			}
			_, foundErrors := findMetric(&rm, "fold.kv.errors.total")
			if tt.err != nil && !foundErrors {
				t.Error("kv errors counter not recorded when err != nil")
			}
		})
	}
}

func TestOTelMetrics_RecordAtomCreated(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordAtomCreated(ctx)
	m.RecordAtomCreated(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	metric, ok := findMetric(&rm, "fold.atoms.created.total")
	if !ok {
		t.Fatal("atoms created counter not recorded")
	}
	if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
		if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 2 {
			t.Errorf("Expected counter value 2, got %d", sum.DataPoints[0].Value)
		}
	}
}

func TestOTelMetrics_RecordSchemaTransition(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordSchemaTransition(ctx, "available", "approved")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	if _, ok := findMetric(&rm, "fold.schema.transitions.total"); !ok {
		t.Error("schema transitions counter not recorded")
	}
}

func TestOTelMetrics_RecordFieldOperationAndPermissionDenied(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordFieldOperation(ctx, "write", "range")
	m.RecordPermissionDenied(ctx, "write")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	if _, ok := findMetric(&rm, "fold.field.operations.total"); !ok {
		t.Error("field operations counter not recorded")
	}
	if _, ok := findMetric(&rm, "fold.permission.denied.total"); !ok {
		t.Error("permission denied counter not recorded")
	}
}

func TestOTelMetrics_BusMetrics(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordBusPublish(ctx, "field_value_set")
	m.RecordBusDropped(ctx, "field_value_set")
	m.UpdateBusQueueDepth(ctx, "field_value_set", 3)
	m.UpdateBusSubscriberCount(ctx, "field_value_set", 1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	for _, name := range []string{
		"fold.bus.published.total",
		"fold.bus.dropped.total",
		"fold.bus.queue.depth",
		"fold.bus.subscriber.count",
	} {
		if _, ok := findMetric(&rm, name); !ok {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestOTelMetrics_OrchestratorMetrics(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.UpdateOrchestratorQueueDepth(ctx, 2)
	m.RecordTransformExecution(ctx, "transform-1", "success", 15*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	for _, name := range []string{
		"fold.orchestrator.queue.depth",
		"fold.orchestrator.transform.duration",
		"fold.orchestrator.executions.total",
	} {
		if _, ok := findMetric(&rm, name); !ok {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestOTelMetrics_SignatureGateMetrics(t *testing.T) {
	provider, reader := setupTestMeterProvider(t)
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down provider: %v", err)
		}
	}()

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.RecordSignatureVerification(ctx, "success", 5*time.Millisecond)
	m.UpdateSigGateNonceStoreSize(ctx, 1)
	m.RecordSigGateRateLimited(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	for _, name := range []string{
		"fold.siggate.verification.duration",
		"fold.siggate.verifications.total",
		"fold.siggate.nonce_store.size",
		"fold.siggate.rate_limited.total",
	} {
		if _, ok := findMetric(&rm, name); !ok {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestOTelMetrics_MultipleOperations(t *testing.T) {
	t.Run("multiple transform executions", func(t *testing.T) {
		provider, reader := setupTestMeterProvider(t)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				t.Logf("Error shutting down provider: %v", err)
			}
		}()

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v", err)
		}

		ctx := context.Background()
		for i := 0; i < 5; i++ {
			m.RecordTransformExecution(ctx, "transform-1", "success", 10*time.Millisecond)
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		metric, ok := findMetric(&rm, "fold.orchestrator.executions.total")
		if !ok {
			t.Fatal("executions counter not recorded")
		}
		if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
			if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 5 {
				t.Errorf("Expected counter value 5, got %d", sum.DataPoints[0].Value)
			}
		}
	})

	t.Run("mixed bus and siggate operations", func(t *testing.T) {
		provider, reader := setupTestMeterProvider(t)
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				t.Logf("Error shutting down provider: %v", err)
			}
		}()

		m, err := NewOTelMetrics()
		if err != nil {
			t.Fatalf("NewOTelMetrics() error = %v", err)
		}

		ctx := context.Background()
		m.RecordBusPublish(ctx, "schema_changed")
		m.RecordBusPublish(ctx, "schema_changed")
		m.RecordBusDropped(ctx, "schema_changed")
		m.RecordSignatureVerification(ctx, "rejected", 3*time.Millisecond)

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		for _, name := range []string{
			"fold.bus.published.total",
			"fold.bus.dropped.total",
			"fold.siggate.verifications.total",
		} {
			if _, ok := findMetric(&rm, name); !ok {
				t.Errorf("%s not recorded", name)
			}
		}
	})
}
