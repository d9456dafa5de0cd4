package atom

import (
	"encoding/json"
	"time"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// RefStatus is the lifecycle status carried on Single/Range refs.
type RefStatus string

const (
	RefStatusActive   RefStatus = "active"
	RefStatusArchived RefStatus = "archived"
)

// Variant discriminates the three AtomRef shapes. It never changes for a
// given ref_uuid over the ref's lifetime (variant immutability, spec
// invariant 3).
type Variant string

const (
	VariantSingle     Variant = "single"
	VariantCollection Variant = "collection"
	VariantRange      Variant = "range"
)

// UpdateHistoryEntry records one change to a Single or Range ref's pointed-at
// atom id. update_history is append-only: its length matches the number of
// times atom_id (or atom_uuids[k]) has changed.
type UpdateHistoryEntry struct {
	AtomID    string    `json:"atom_id"`
	Key       string    `json:"key,omitempty"` // set for Range entries
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionEvent records one append/remove against a Collection ref,
// giving it the same audit trail the distilled spec only spelled out for
// Single/Range.
type CollectionEvent struct {
	Op        string    `json:"op"` // "append" | "remove"
	AtomID    string    `json:"atom_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SingleRef points at exactly one atom.
type SingleRef struct {
	UUID          string               `json:"uuid"`
	AtomID        string               `json:"atom_id"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Status        RefStatus            `json:"status"`
	UpdateHistory []UpdateHistoryEntry `json:"update_history"`
}

// CollectionRef points at an ordered sequence of atoms.
type CollectionRef struct {
	UUID      string            `json:"uuid"`
	AtomIDs   []string          `json:"atom_ids"`
	UpdatedAt time.Time         `json:"updated_at"`
	Status    RefStatus         `json:"status"`
	History   []CollectionEvent `json:"history"`
}

// RangeRef maps arbitrary string keys (the range index, lexicographically
// ordered) to atom ids.
type RangeRef struct {
	UUID          string               `json:"uuid"`
	AtomUUIDs     map[string]string    `json:"atom_uuids"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Status        RefStatus            `json:"status"`
	UpdateHistory []UpdateHistoryEntry `json:"update_history"`
}

// Ref is the externally-tagged envelope persisted in the refs tree:
// {"type": "single"|"collection"|"range", ...variant fields}.
type Ref struct {
	Type       Variant
	Single     *SingleRef
	Collection *CollectionRef
	Range      *RangeRef
}

// UUID returns the ref's uuid regardless of variant.
func (r *Ref) UUID() string {
	switch r.Type {
	case VariantSingle:
		return r.Single.UUID
	case VariantCollection:
		return r.Collection.UUID
	case VariantRange:
		return r.Range.UUID
	}
	return ""
}

type taggedEnvelope struct {
	Type Variant `json:"type"`
}

// MarshalJSON flattens the active variant alongside its "type" discriminant.
func (r *Ref) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case VariantSingle:
		return marshalTagged(r.Type, r.Single)
	case VariantCollection:
		return marshalTagged(r.Type, r.Collection)
	case VariantRange:
		return marshalTagged(r.Type, r.Range)
	default:
		return nil, folderrors.New(folderrors.KindSerializationError, "unknown ref variant")
	}
}

func marshalTagged(t Variant, variant any) ([]byte, error) {
	body, err := json.Marshal(variant)
	if err != nil {
		return nil, folderrors.Wrap(folderrors.KindSerializationError, "marshal ref", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, folderrors.Wrap(folderrors.KindSerializationError, "marshal ref", err)
	}
	tagBytes, _ := json.Marshal(t)
	m["type"] = tagBytes
	return json.Marshal(m)
}

// UnmarshalJSON dispatches on the "type" tag and hard-fails on the
// historical "ghost UUID" bug class: a missing uuid, or (for Single/Range) a
// missing update_history, is a deserialization error, never a silently
// zeroed field.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var env taggedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return folderrors.Wrap(folderrors.KindDeserializationError, "decode ref envelope", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return folderrors.Wrap(folderrors.KindDeserializationError, "decode ref fields", err)
	}
	if _, ok := raw["uuid"]; !ok {
		return folderrors.New(folderrors.KindDeserializationError, "missing required field: uuid")
	}

	switch env.Type {
	case VariantSingle:
		if _, ok := raw["update_history"]; !ok {
			return folderrors.New(folderrors.KindDeserializationError, "missing required field: update_history")
		}
		var s SingleRef
		if err := json.Unmarshal(data, &s); err != nil {
			return folderrors.Wrap(folderrors.KindDeserializationError, "decode single ref", err)
		}
		r.Type, r.Single = VariantSingle, &s
	case VariantCollection:
		var c CollectionRef
		if err := json.Unmarshal(data, &c); err != nil {
			return folderrors.Wrap(folderrors.KindDeserializationError, "decode collection ref", err)
		}
		r.Type, r.Collection = VariantCollection, &c
	case VariantRange:
		if _, ok := raw["update_history"]; !ok {
			return folderrors.New(folderrors.KindDeserializationError, "missing required field: update_history")
		}
		var rg RangeRef
		if err := json.Unmarshal(data, &rg); err != nil {
			return folderrors.Wrap(folderrors.KindDeserializationError, "decode range ref", err)
		}
		r.Type, r.Range = VariantRange, &rg
	default:
		return folderrors.New(folderrors.KindDeserializationError, "unknown ref type", "type", string(env.Type))
	}
	return nil
}
