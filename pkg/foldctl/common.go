package foldctl

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/atom"
	"github.com/platinummonkey/foldcore/pkg/field"
	"github.com/platinummonkey/foldcore/pkg/kv"
	"github.com/platinummonkey/foldcore/pkg/observability"
	"github.com/platinummonkey/foldcore/pkg/schema"
	"github.com/platinummonkey/foldcore/pkg/transform"
)

// store bundles the core components a CLI command needs against a single
// bbolt file, opened and closed around one command invocation.
type store struct {
	engine     *kv.Engine
	schemas    *schema.SchemaCore
	atoms      *atom.Store
	fields     *field.Manager
	transforms *transform.Store
	registry   *prometheus.Registry
	metrics    *observability.Metrics
}

func openStore(dbPath string) (*store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("-db is required")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	engine, err := kv.Open(dbPath, kv.WithOperationMetrics(metrics.KVOperationsTotal, metrics.KVErrorsTotal, metrics.KVOperationDuration))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	schemas := schema.NewCore(engine, schema.WithTransitionMetrics(metrics.SchemaTransitionsTotal))
	atoms := atom.NewStore(engine, atom.WithAtomsCreatedCounter(metrics.AtomsCreatedTotal))
	return &store{
		engine:     engine,
		schemas:    schemas,
		atoms:      atoms,
		fields:     field.NewManager(schemas, atoms, field.WithFieldMetrics(metrics.FieldOperationsTotal, metrics.PermissionDeniedTotal)),
		transforms: transform.NewStore(engine),
		registry:   registry,
		metrics:    metrics,
	}, nil
}

func (s *store) Close() error {
	return s.engine.Close()
}

func requiredFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}
