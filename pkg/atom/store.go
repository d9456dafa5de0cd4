package atom

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

// Store persists Atoms and AtomRefs over a kv.Engine.
type Store struct {
	engine            *kv.Engine
	atomsCreatedTotal prometheus.Counter
}

// Option configures a Store at construction.
type Option func(*Store)

// WithAtomsCreatedCounter wires a counter incremented once per CreateAtom
// call. Typically the AtomsCreatedTotal counter from an
// *observability.Metrics.
func WithAtomsCreatedCounter(counter prometheus.Counter) Option {
	return func(s *Store) { s.atomsCreatedTotal = counter }
}

// NewStore wraps an Engine with atom/ref persistence.
func NewStore(engine *kv.Engine, opts ...Option) *Store {
	s := &Store{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) atoms() *kv.Tree { return s.engine.Tree(kv.TreeAtoms) }
func (s *Store) refs() *kv.Tree  { return s.engine.Tree(kv.TreeRefs) }

// CreateAtom allocates, persists, and returns the id of a new Atom.
func (s *Store) CreateAtom(content json.RawMessage, prevAtomID, createdBy string) (string, error) {
	a := NewAtom(content, prevAtomID, createdBy)
	data, err := json.Marshal(a)
	if err != nil {
		return "", folderrors.Wrap(folderrors.KindSerializationError, "marshal atom", err)
	}
	if err := s.atoms().Put(a.ID, data); err != nil {
		return "", err
	}
	if s.atomsCreatedTotal != nil {
		s.atomsCreatedTotal.Inc()
	}
	return a.ID, nil
}

// GetAtom loads an Atom by id, failing with AtomNotFound if missing.
func (s *Store) GetAtom(atomID string) (*Atom, error) {
	data, err := s.atoms().Get(atomID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, folderrors.New(folderrors.KindAtomNotFound, "atom not found", "id", atomID)
	}
	var a Atom
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, folderrors.Wrap(folderrors.KindDeserializationError, "decode atom", err)
	}
	return &a, nil
}

// GetRef loads the raw AtomRef envelope by uuid, or nil if absent.
func (s *Store) GetRef(refUUID string) (*Ref, error) {
	data, err := s.refs().Get(refUUID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var r Ref
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, folderrors.Wrap(folderrors.KindDeserializationError, "decode ref", err)
	}
	return &r, nil
}

func (s *Store) putRef(r *Ref) error {
	data, err := json.Marshal(r)
	if err != nil {
		return folderrors.Wrap(folderrors.KindSerializationError, "marshal ref", err)
	}
	return s.refs().Put(r.UUID(), data)
}

// Resolve loads refUUID and asserts it matches expected, failing with
// AtomRefNotFound or AtomRefTypeMismatch otherwise.
func (s *Store) Resolve(refUUID string, expected Variant) (*Ref, error) {
	r, err := s.GetRef(refUUID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, folderrors.New(folderrors.KindAtomRefNotFound, "atom ref not found", "uuid", refUUID)
	}
	if r.Type != expected {
		return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
			"uuid", refUUID, "expected", string(expected), "actual", string(r.Type))
	}
	return r, nil
}

// EnsureRefUUID returns uuid if non-empty, else generates a fresh one — used
// when a field's ref_atom_uuid is being assigned for the first time.
func EnsureRefUUID(existing string) string {
	if existing != "" {
		return existing
	}
	return uuid.NewString()
}

// CreateOrUpdateSingle creates refUUID if absent, else appends an
// update_history entry and repoints atom_id. Fails with AtomRefTypeMismatch
// if refUUID already exists as a different variant.
func (s *Store) CreateOrUpdateSingle(refUUID, atomID string) (*SingleRef, error) {
	existing, err := s.GetRef(refUUID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		sr := &SingleRef{
			UUID:          refUUID,
			AtomID:        atomID,
			UpdatedAt:     now,
			Status:        RefStatusActive,
			UpdateHistory: []UpdateHistoryEntry{{AtomID: atomID, UpdatedAt: now}},
		}
		if err := s.putRef(&Ref{Type: VariantSingle, Single: sr}); err != nil {
			return nil, err
		}
		return sr, nil
	}
	if existing.Type != VariantSingle {
		return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
			"uuid", refUUID, "expected", string(VariantSingle), "actual", string(existing.Type))
	}
	sr := existing.Single
	sr.AtomID = atomID
	sr.UpdatedAt = now
	sr.UpdateHistory = append(sr.UpdateHistory, UpdateHistoryEntry{AtomID: atomID, UpdatedAt: now})
	if err := s.putRef(&Ref{Type: VariantSingle, Single: sr}); err != nil {
		return nil, err
	}
	return sr, nil
}

// CreateOrUpdateCollection creates refUUID if absent, else appends atomID.
func (s *Store) CreateOrUpdateCollection(refUUID, atomID string) (*CollectionRef, error) {
	existing, err := s.GetRef(refUUID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		cr := &CollectionRef{
			UUID:      refUUID,
			AtomIDs:   []string{atomID},
			UpdatedAt: now,
			Status:    RefStatusActive,
			History:   []CollectionEvent{{Op: "append", AtomID: atomID, UpdatedAt: now}},
		}
		if err := s.putRef(&Ref{Type: VariantCollection, Collection: cr}); err != nil {
			return nil, err
		}
		return cr, nil
	}
	if existing.Type != VariantCollection {
		return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
			"uuid", refUUID, "expected", string(VariantCollection), "actual", string(existing.Type))
	}
	cr := existing.Collection
	cr.AtomIDs = append(cr.AtomIDs, atomID)
	cr.UpdatedAt = now
	cr.History = append(cr.History, CollectionEvent{Op: "append", AtomID: atomID, UpdatedAt: now})
	if err := s.putRef(&Ref{Type: VariantCollection, Collection: cr}); err != nil {
		return nil, err
	}
	return cr, nil
}

// CreateOrUpdateRangeEntry creates refUUID if absent, else sets/overwrites
// one map entry key -> atomID. The entry is visible to any subsequent read
// with the same key once this returns.
func (s *Store) CreateOrUpdateRangeEntry(refUUID, key, atomID string) (*RangeRef, error) {
	existing, err := s.GetRef(refUUID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		rr := &RangeRef{
			UUID:          refUUID,
			AtomUUIDs:     map[string]string{key: atomID},
			UpdatedAt:     now,
			Status:        RefStatusActive,
			UpdateHistory: []UpdateHistoryEntry{{AtomID: atomID, Key: key, UpdatedAt: now}},
		}
		if err := s.putRef(&Ref{Type: VariantRange, Range: rr}); err != nil {
			return nil, err
		}
		return rr, nil
	}
	if existing.Type != VariantRange {
		return nil, folderrors.New(folderrors.KindAtomRefTypeMismatch, "atom ref type mismatch",
			"uuid", refUUID, "expected", string(VariantRange), "actual", string(existing.Type))
	}
	rr := existing.Range
	if rr.AtomUUIDs == nil {
		rr.AtomUUIDs = map[string]string{}
	}
	rr.AtomUUIDs[key] = atomID
	rr.UpdatedAt = now
	rr.UpdateHistory = append(rr.UpdateHistory, UpdateHistoryEntry{AtomID: atomID, Key: key, UpdatedAt: now})
	if err := s.putRef(&Ref{Type: VariantRange, Range: rr}); err != nil {
		return nil, err
	}
	return rr, nil
}

// GhostCheck resolves refUUID, failing with GhostUuidDetected{field, uuid}
// if it does not exist — the read-path guard named in spec.md §4.2.
func (s *Store) GhostCheck(field, refUUID string) (*Ref, error) {
	r, err := s.GetRef(refUUID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, folderrors.New(folderrors.KindGhostUUIDDetected, "ghost uuid detected", "field", field, "uuid", refUUID)
	}
	return r, nil
}
