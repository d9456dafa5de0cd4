package kv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.etcd.io/bbolt"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// Well-known tree (bucket) names used across foldcore.
const (
	TreeAtoms      = "atoms"
	TreeRefs       = "refs"
	TreeSchemas    = "schemas"
	TreeTransforms = "transforms"
	TreeMetadata   = "metadata"
)

var allTrees = []string{TreeAtoms, TreeRefs, TreeSchemas, TreeTransforms, TreeMetadata}

// Engine is the embedded ordered key/value store foldcore persists through.
type Engine struct {
	db      *bbolt.DB
	metrics *engineMetrics
}

// engineMetrics bundles the Prometheus instruments an Engine reports
// against, kept as raw vecs rather than an *observability.Metrics so this
// package has no dependency on pkg/observability (which itself depends on
// pkg/kv for its health checker).
type engineMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithOperationMetrics wires an Engine to report every Put/Get/Delete/
// ScanPrefix call's count, duration, and error outcome. Typically called
// with the KVOperationsTotal/KVOperationDuration/KVErrorsTotal vecs from an
// *observability.Metrics.
func WithOperationMetrics(operationsTotal, errorsTotal *prometheus.CounterVec, operationDuration *prometheus.HistogramVec) Option {
	return func(e *Engine) {
		e.metrics = &engineMetrics{
			operationsTotal:   operationsTotal,
			operationDuration: operationDuration,
			errorsTotal:       errorsTotal,
		}
	}
}

// Open opens (creating if necessary) a bbolt-backed Engine at path, with the
// well-known trees pre-created.
func Open(path string, opts ...Option) (*Engine, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindDatabaseError, "open kv engine", err, "path", path)
	}
	e := &Engine{db: db}
	for _, opt := range opts {
		opt(e)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allTrees {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, folderrors.Wrap(folderrors.KindDatabaseError, "create trees", err)
	}
	return e, nil
}

func (e *Engine) observe(operation, tree string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.operationsTotal.WithLabelValues(operation, tree).Inc()
	e.metrics.operationDuration.WithLabelValues(operation, tree).Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.errorsTotal.WithLabelValues(operation, tree).Inc()
	}
}

// Close closes the underlying database file.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return folderrors.Wrap(folderrors.KindDatabaseError, "close kv engine", err)
	}
	return nil
}

// Ping verifies the database file is still readable by running a no-op view
// transaction. Used by health checks.
func (e *Engine) Ping() error {
	if err := e.db.View(func(tx *bbolt.Tx) error { return nil }); err != nil {
		return folderrors.Wrap(folderrors.KindDatabaseError, "ping kv engine", err)
	}
	return nil
}

// Tree returns a handle bound to one named bucket.
func (e *Engine) Tree(name string) *Tree {
	return &Tree{engine: e, name: name}
}

// Tree is a namespaced view over one bbolt bucket, matching the per-tree
// contract from the storage design: put/get/delete/exists/scan_prefix/list_keys.
type Tree struct {
	engine *Engine
	name   string
}

// Put durably writes key -> value.
func (t *Tree) Put(key string, value []byte) error {
	start := time.Now()
	err := t.engine.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		return b.Put([]byte(key), value)
	})
	t.engine.observe("put", t.name, start, err)
	if err != nil {
		return folderrors.Wrap(folderrors.KindDatabaseError, "put", err, "tree", t.name, "key", key)
	}
	return nil
}

// Get returns the value for key, or nil if absent.
func (t *Tree) Get(key string) ([]byte, error) {
	start := time.Now()
	var out []byte
	err := t.engine.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		v := b.Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	t.engine.observe("get", t.name, start, err)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindDatabaseError, "get", err, "tree", t.name, "key", key)
	}
	return out, nil
}

// Exists reports whether key is present.
func (t *Tree) Exists(key string) (bool, error) {
	v, err := t.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// Delete removes key, returning true if it existed.
func (t *Tree) Delete(key string) (bool, error) {
	start := time.Now()
	existed := false
	err := t.engine.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	t.engine.observe("delete", t.name, start, err)
	if err != nil {
		return false, folderrors.Wrap(folderrors.KindDatabaseError, "delete", err, "tree", t.name, "key", key)
	}
	return existed, nil
}

// ScanPrefix invokes fn for every key with the given prefix, in lexicographic
// order. Stop early by returning false from fn.
func (t *Tree) ScanPrefix(prefix string, fn func(key string, value []byte) bool) error {
	start := time.Now()
	err := t.engine.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && hasPrefix(k, p); k, v = c.Next() {
			if !fn(string(k), v) {
				break
			}
		}
		return nil
	})
	t.engine.observe("scan_prefix", t.name, start, err)
	if err != nil {
		return folderrors.Wrap(folderrors.KindDatabaseError, "scan_prefix", err, "tree", t.name, "prefix", prefix)
	}
	return nil
}

// ListKeys returns every key in the tree, in lexicographic order.
func (t *Tree) ListKeys() ([]string, error) {
	var keys []string
	err := t.ScanPrefix("", func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	return keys, err
}

func hasPrefix(k, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
