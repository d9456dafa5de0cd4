// Package observability provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the embedded store and its CLI.
//
// # Overview
//
// This package centralizes observability infrastructure: JSON logging, metrics
// collection for every internal component (KV engine, atoms/schema/field
// writes, the message bus, the orchestrator, the signature gate), health
// checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create a logger:
//
//	logger := observability.NewLogger(observability.LevelInfo, os.Stdout)
//	logger.Info("store opened")
//
// Attach fields or an error before logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("mutation failed")
//
// Request/user IDs and a logger instance can ride along in a context.Context:
//
//	ctx = observability.WithRequestID(ctx, reqID)
//	logger = observability.FromContext(ctx)
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.FieldOperationsTotal.WithLabelValues("write", "Orders").Inc()
//	metrics.OrchestratorTransformDuration.WithLabelValues("sum-xy").Observe(0.02)
//
// Metrics are grouped by subsystem: KVOperationsTotal/KVOperationDuration/
// KVErrorsTotal for the bbolt engine, AtomsCreatedTotal/SchemaTransitionsTotal/
// FieldOperationsTotal/PermissionDeniedTotal for the domain layer,
// BusPublishedTotal/BusDroppedTotal/BusQueueDepth/BusSubscriberCount for
// pkg/bus, OrchestratorQueueDepth/OrchestratorTransformDuration/
// OrchestratorExecutionsTotal for pkg/orchestrator, and
// SigGateVerificationDuration/SigGateVerificationsTotal/SigGateNonceStoreSize/
// SigGateRateLimitedTotal for pkg/siggate.
//
// # Health Checks
//
// Configure a health checker against the embedded engine and, optionally, the
// Redis-backed distributed nonce store:
//
//	checker := observability.NewHealthChecker(engine, distributedNonces)
//	observability.RegisterHealthRoutes(mux, checker)
//
// Readiness reports "degraded" rather than "unhealthy" when only the
// distributed nonce store is unreachable, since the signature gate falls back
// to its in-process nonce store.
//
// # OpenTelemetry
//
// Initialize tracing and metrics export:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		Endpoint:       "otel-collector:4317",
//		ServiceName:    "foldcore",
//		ServiceVersion: "v1.0.0",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: ObservabilityConfig drives NewLogger's level and InitOTel's
//     OTelConfig
//   - pkg/kv: the engine NewHealthChecker pings
//   - pkg/siggate: the optional distributed nonce store NewHealthChecker pings
package observability
