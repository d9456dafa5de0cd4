package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsInitializesAllInstruments(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if metrics.KVOperationsTotal == nil {
		t.Error("KVOperationsTotal is nil")
	}
	if metrics.AtomsCreatedTotal == nil {
		t.Error("AtomsCreatedTotal is nil")
	}
	if metrics.SchemaTransitionsTotal == nil {
		t.Error("SchemaTransitionsTotal is nil")
	}
	if metrics.BusDroppedTotal == nil {
		t.Error("BusDroppedTotal is nil")
	}
	if metrics.OrchestratorTransformDuration == nil {
		t.Error("OrchestratorTransformDuration is nil")
	}
	if metrics.SigGateVerificationDuration == nil {
		t.Error("SigGateVerificationDuration is nil")
	}
}

func TestMetricsAreRegisteredWithRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.KVOperationsTotal.WithLabelValues("get", "atoms").Add(0)
	metrics.SchemaTransitionsTotal.WithLabelValues("available", "approved").Add(0)
	metrics.AtomsCreatedTotal.Add(0)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(families) == 0 {
		t.Error("No metrics registered in registry")
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"fold_kv_operations_total",
		"fold_schema_transitions_total",
		"fold_atoms_created_total",
	} {
		if !names[name] {
			t.Errorf("Expected metric %s not found in registry", name)
		}
	}
}

func TestMetricsPanicsOnDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic on duplicate registration, but didn't panic")
		}
	}()
	NewMetrics(registry)
}

func TestKVOperationsTotalCounts(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.KVOperationsTotal.WithLabelValues("put", "schemas").Inc()

	expected := `
# HELP fold_kv_operations_total Total number of KV engine operations
# TYPE fold_kv_operations_total counter
fold_kv_operations_total{operation="put",tree="schemas"} 1
`
	if err := testutil.CollectAndCompare(metrics.KVOperationsTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestSchemaTransitionsTotalByFromTo(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SchemaTransitionsTotal.WithLabelValues("available", "approved").Inc()
	metrics.SchemaTransitionsTotal.WithLabelValues("approved", "blocked").Inc()

	count := testutil.CollectAndCount(metrics.SchemaTransitionsTotal)
	if count != 2 {
		t.Errorf("Expected 2 label combinations, got %d", count)
	}
}

func TestBusDroppedTotalPerTopic(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.BusDroppedTotal.WithLabelValues("field_value_set").Add(3)

	expected := `
# HELP fold_bus_dropped_total Total number of messages dropped due to subscriber queue overflow
# TYPE fold_bus_dropped_total counter
fold_bus_dropped_total{topic="field_value_set"} 3
`
	if err := testutil.CollectAndCompare(metrics.BusDroppedTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestOrchestratorTransformDurationObserves(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.OrchestratorTransformDuration.WithLabelValues("transform-1").Observe(0.01)
	metrics.OrchestratorTransformDuration.WithLabelValues("transform-1").Observe(0.02)

	count := testutil.CollectAndCount(metrics.OrchestratorTransformDuration)
	if count != 1 {
		t.Errorf("Expected 1 metric family, got %d", count)
	}
}

func TestSigGateVerificationsTotalByStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SigGateVerificationsTotal.WithLabelValues("success").Inc()
	metrics.SigGateVerificationsTotal.WithLabelValues("rejected").Inc()

	count := testutil.CollectAndCount(metrics.SigGateVerificationsTotal)
	if count != 2 {
		t.Errorf("Expected 2 label combinations, got %d", count)
	}
}

func TestSigGateNonceStoreSizeGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.SigGateNonceStoreSize.Set(42)

	expected := `
# HELP fold_siggate_nonce_store_size Current number of nonces held in the nonce store
# TYPE fold_siggate_nonce_store_size gauge
fold_siggate_nonce_store_size 42
`
	if err := testutil.CollectAndCompare(metrics.SigGateNonceStoreSize, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestRegisterMetricsEndpointExposesPrometheusFormat(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.AtomsCreatedTotal.Add(7)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fold_atoms_created_total 7") {
		t.Error("Expected fold_atoms_created_total value to be 7")
	}
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus exposition format markers")
	}
}
