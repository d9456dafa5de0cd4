package field

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/atom"
	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/rangefilter"
	"github.com/platinummonkey/foldcore/pkg/schema"
)

// ValueSet is the FieldValueSet notification published after a successful
// write. MutationID ties together every field write performed as part of
// one logical mutate() call, so the orchestrator can dedupe transform runs
// triggered transitively by its own output.
type ValueSet struct {
	Schema     string
	Field      string
	Value      json.RawMessage
	Source     string
	MutationID string
}

// Publisher is the minimal surface Manager needs from the message bus.
type Publisher interface {
	Publish(topic string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

// SchemaLookup is the subset of *schema.SchemaCore the manager needs —
// narrowed to an interface so field does not require a concrete core for
// testing.
type SchemaLookup interface {
	Get(name string) (*schema.Schema, error)
}

// Manager resolves field definitions to their backing atoms and ranges,
// enforcing each field's permission policy on every read and write.
type Manager struct {
	schemas SchemaLookup
	store   *atom.Store
	pub     Publisher

	operationsTotal       *prometheus.CounterVec
	permissionDeniedTotal *prometheus.CounterVec
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithPublisher wires an event publisher (typically a *bus.Bus) into the
// manager so writes announce FieldValueSet.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.pub = p }
}

// WithFieldMetrics wires counters for every read/write and every
// permission-denied access. Typically the FieldOperationsTotal and
// PermissionDeniedTotal counters from an *observability.Metrics.
func WithFieldMetrics(operationsTotal, permissionDeniedTotal *prometheus.CounterVec) Option {
	return func(m *Manager) {
		m.operationsTotal = operationsTotal
		m.permissionDeniedTotal = permissionDeniedTotal
	}
}

// NewManager builds a field Manager over schemas and an atom Store.
func NewManager(schemas SchemaLookup, store *atom.Store, opts ...Option) *Manager {
	m := &Manager{schemas: schemas, store: store, pub: noopPublisher{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) recordOperation(operation, variant string) {
	if m.operationsTotal != nil {
		m.operationsTotal.WithLabelValues(operation, variant).Inc()
	}
}

func (m *Manager) recordPermissionDenied(operation string) {
	if m.permissionDeniedTotal != nil {
		m.permissionDeniedTotal.WithLabelValues(operation).Inc()
	}
}

func (m *Manager) lookupField(schemaName, fieldName string) (*schema.Schema, *schema.FieldDef, error) {
	s, err := m.schemas.Get(schemaName)
	if err != nil {
		return nil, nil, err
	}
	fd, ok := s.Fields[fieldName]
	if !ok {
		return nil, nil, folderrors.New(folderrors.KindFieldNotFound, "field not found",
			"schema", schemaName, "field", fieldName)
	}
	return s, fd, nil
}

// ReadField resolves schema.field's backing AtomRef and returns its content.
// Returns (nil, nil) if the field has no ref_atom_uuid yet. For Range
// fields, returns the full {key: atom_content} map.
func (m *Manager) ReadField(schemaName, fieldName, signer string) (json.RawMessage, error) {
	_, fd, err := m.lookupField(schemaName, fieldName)
	if err != nil {
		return nil, err
	}
	if !fd.Permission.Allows("read", signer) {
		m.recordPermissionDenied("read")
		return nil, folderrors.New(folderrors.KindPermissionDenied, "permission denied",
			"op", "read", "resource", schemaName+"."+fieldName, "subject", signer)
	}
	m.recordOperation("read", string(fd.Variant))
	if fd.RefAtomUUID == "" {
		return nil, nil
	}

	r, err := m.store.GhostCheck(schemaName+"."+fieldName, fd.RefAtomUUID)
	if err != nil {
		return nil, err
	}

	switch fd.Variant {
	case atom.VariantSingle:
		if r.Type != atom.VariantSingle {
			return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
				"uuid", fd.RefAtomUUID, "expected", string(atom.VariantSingle), "actual", string(r.Type))
		}
		a, err := m.store.GetAtom(r.Single.AtomID)
		if err != nil {
			return nil, err
		}
		return a.Content, nil

	case atom.VariantCollection:
		if r.Type != atom.VariantCollection {
			return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
				"uuid", fd.RefAtomUUID, "expected", string(atom.VariantCollection), "actual", string(r.Type))
		}
		items := make([]json.RawMessage, 0, len(r.Collection.AtomIDs))
		for _, id := range r.Collection.AtomIDs {
			a, err := m.store.GetAtom(id)
			if err != nil {
				return nil, err
			}
			items = append(items, a.Content)
		}
		return json.Marshal(items)

	case atom.VariantRange:
		if r.Type != atom.VariantRange {
			return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
				"uuid", fd.RefAtomUUID, "expected", string(atom.VariantRange), "actual", string(r.Type))
		}
		out := make(map[string]json.RawMessage, len(r.Range.AtomUUIDs))
		for key, atomID := range r.Range.AtomUUIDs {
			a, err := m.store.GetAtom(atomID)
			if err != nil {
				return nil, err
			}
			out[key] = a.Content
		}
		return json.Marshal(out)

	default:
		return nil, folderrors.New(folderrors.KindInvalidFieldOperation, "unknown field variant",
			"schema", schemaName, "field", fieldName)
	}
}

// writeOptions carries the optional mutation id threaded through a write.
type writeOptions struct {
	mutationID string
}

// WriteOpt configures a single WriteField/ApplyRangeWrite call.
type WriteOpt func(*writeOptions)

// WithMutationID threads an explicit mutation id through a write, so
// multiple field writes performed as part of one logical mutate() call
// share the id the orchestrator dedupes on.
func WithMutationID(id string) WriteOpt {
	return func(o *writeOptions) { o.mutationID = id }
}

func resolveMutationID(opts []WriteOpt) string {
	o := &writeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.mutationID == "" {
		o.mutationID = uuid.NewString()
	}
	return o.mutationID
}

// WriteField allocates an atom for value, creates or updates the field's
// backing AtomRef, persists ref_atom_uuid on first write, and publishes
// FieldValueSet{schema, field, value, source=signer}.
func (m *Manager) WriteField(schemaName, fieldName string, value json.RawMessage, signer string, opts ...WriteOpt) (string, error) {
	s, fd, err := m.lookupField(schemaName, fieldName)
	if err != nil {
		return "", err
	}
	if !fd.Permission.Allows("write", signer) {
		m.recordPermissionDenied("write")
		return "", folderrors.New(folderrors.KindPermissionDenied, "permission denied",
			"op", "write", "resource", schemaName+"."+fieldName, "subject", signer)
	}
	if fd.Variant == atom.VariantRange {
		return "", folderrors.New(folderrors.KindInvalidFieldOperation,
			"range fields must be written via ApplyRangeWrite", "schema", schemaName, "field", fieldName)
	}
	m.recordOperation("write", string(fd.Variant))

	atomID, err := m.store.CreateAtom(value, "", signer)
	if err != nil {
		return "", err
	}

	refUUID := atom.EnsureRefUUID(fd.RefAtomUUID)
	switch fd.Variant {
	case atom.VariantSingle:
		if _, err := m.store.CreateOrUpdateSingle(refUUID, atomID); err != nil {
			return "", err
		}
	case atom.VariantCollection:
		if _, err := m.store.CreateOrUpdateCollection(refUUID, atomID); err != nil {
			return "", err
		}
	default:
		return "", folderrors.New(folderrors.KindInvalidFieldOperation, "unknown field variant",
			"schema", schemaName, "field", fieldName)
	}

	if fd.RefAtomUUID == "" {
		fd.RefAtomUUID = refUUID
		if err := m.persistFieldDef(s, fieldName, fd); err != nil {
			return "", err
		}
	}

	mutationID := resolveMutationID(opts)
	m.pub.Publish("field_value_set", ValueSet{
		Schema: schemaName, Field: fieldName, Value: value, Source: signer, MutationID: mutationID,
	})
	return atomID, nil
}

// ApplyRangeWrite sets one key -> value entry on a Range field, creating
// the backing AtomRef on first write.
func (m *Manager) ApplyRangeWrite(schemaName, fieldName, key string, value json.RawMessage, signer string, opts ...WriteOpt) (string, error) {
	s, fd, err := m.lookupField(schemaName, fieldName)
	if err != nil {
		return "", err
	}
	if !fd.Permission.Allows("write", signer) {
		m.recordPermissionDenied("write")
		return "", folderrors.New(folderrors.KindPermissionDenied, "permission denied",
			"op", "write", "resource", schemaName+"."+fieldName, "subject", signer)
	}
	if fd.Variant != atom.VariantRange {
		return "", folderrors.New(folderrors.KindInvalidFieldOperation,
			"ApplyRangeWrite requires a range field", "schema", schemaName, "field", fieldName)
	}
	m.recordOperation("write", string(fd.Variant))

	atomID, err := m.store.CreateAtom(value, "", signer)
	if err != nil {
		return "", err
	}

	refUUID := atom.EnsureRefUUID(fd.RefAtomUUID)
	if _, err := m.store.CreateOrUpdateRangeEntry(refUUID, key, atomID); err != nil {
		return "", err
	}

	if fd.RefAtomUUID == "" {
		fd.RefAtomUUID = refUUID
		if err := m.persistFieldDef(s, fieldName, fd); err != nil {
			return "", err
		}
	}

	mutationID := resolveMutationID(opts)
	m.pub.Publish("field_value_set", ValueSet{
		Schema: schemaName, Field: fieldName, Value: value, Source: signer, MutationID: mutationID,
	})
	return atomID, nil
}

// FilterRange applies f to a Range field's current map and returns the
// matched subset.
func (m *Manager) FilterRange(schemaName, fieldName string, f rangefilter.Filter, signer string) (rangefilter.Result, error) {
	_, fd, err := m.lookupField(schemaName, fieldName)
	if err != nil {
		return rangefilter.Result{}, err
	}
	if fd.Variant != atom.VariantRange {
		return rangefilter.Result{}, folderrors.New(folderrors.KindInvalidFieldOperation,
			"FilterRange requires a range field", "schema", schemaName, "field", fieldName)
	}
	if !fd.Permission.Allows("read", signer) {
		m.recordPermissionDenied("read")
		return rangefilter.Result{}, folderrors.New(folderrors.KindPermissionDenied, "permission denied",
			"op", "read", "resource", schemaName+"."+fieldName, "subject", signer)
	}
	m.recordOperation("filter_range", string(fd.Variant))
	if fd.RefAtomUUID == "" {
		return rangefilter.Result{Matches: map[string]string{}}, nil
	}

	r, err := m.store.GhostCheck(schemaName+"."+fieldName, fd.RefAtomUUID)
	if err != nil {
		return rangefilter.Result{}, err
	}
	if r.Type != atom.VariantRange {
		return rangefilter.Result{}, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
			"uuid", fd.RefAtomUUID, "expected", string(atom.VariantRange), "actual", string(r.Type))
	}

	om := rangefilter.NewMap()
	for k, v := range r.Range.AtomUUIDs {
		om.Set(k, v)
	}
	return rangefilter.Apply(om, f), nil
}

// persistFieldDef is implemented by the concrete *schema.SchemaCore via a
// type assertion — SchemaLookup only exposes Get, but persisting a newly
// assigned ref_atom_uuid back onto the schema requires the core's writer
// path. Narrowed this way so tests can swap in a lookup-only fake when they
// don't care about persistence.
func (m *Manager) persistFieldDef(s *schema.Schema, fieldName string, fd *schema.FieldDef) error {
	writer, ok := m.schemas.(interface {
		SetFieldRef(schemaName, fieldName, refUUID string) error
	})
	if !ok {
		return nil
	}
	return writer.SetFieldRef(s.Name, fieldName, fd.RefAtomUUID)
}
