package schema

import (
	"encoding/json"

	"github.com/platinummonkey/foldcore/pkg/atom"
	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// State is a schema's position in the Available -> Approved -> Blocked
// state machine. There is no back-edge from Approved to Available, and
// Blocked is terminal.
type State string

const (
	StateAvailable State = "available"
	StateApproved  State = "approved"
	StateBlocked   State = "blocked"
)

// PermissionLevel gates read/write access to a field independent of schema
// state.
type PermissionLevel string

const (
	PermissionPublic  PermissionLevel = "public"
	PermissionPrivate PermissionLevel = "private"
)

// PermissionPolicy is the per-field access policy named in spec.md's
// PURPOSE section and recovered from original_source's permission model.
// A Private level without an explicit grant for the requesting signer
// yields PermissionDenied.
type PermissionPolicy struct {
	Read                PermissionLevel    `json:"read"`
	Write               PermissionLevel    `json:"write"`
	ExplicitReadGrants   map[string]bool   `json:"explicit_read_grants,omitempty"`
	ExplicitWriteGrants  map[string]bool   `json:"explicit_write_grants,omitempty"`
	TrustDistance        int               `json:"trust_distance,omitempty"`
}

// SystemSigner is the reserved identity internal components (the
// orchestrator executing a transform) read and write fields under. It is
// exempt from per-field permission policy: transform execution is a system
// action, not a client-originated mutation.
const SystemSigner = "__system__"

// Allows reports whether signer may perform op ("read" or "write").
func (p PermissionPolicy) Allows(op, signer string) bool {
	if signer == SystemSigner {
		return true
	}
	level, grants := p.Read, p.ExplicitReadGrants
	if op == "write" {
		level, grants = p.Write, p.ExplicitWriteGrants
	}
	if level == PermissionPublic || level == "" {
		return true
	}
	return grants[signer]
}

// FieldVariant mirrors atom.Variant for the field's backing ref shape.
type FieldVariant = atom.Variant

// FieldDef is a tagged union over Single/Collection/Range field definitions.
type FieldDef struct {
	Variant          FieldVariant      `json:"variant"`
	Permission       PermissionPolicy  `json:"permission_policy"`
	PaymentConfig    json.RawMessage   `json:"payment_config,omitempty"`
	RefAtomUUID      string            `json:"ref_atom_uuid,omitempty"`
	RangeSnapshot    *atom.RangeRef    `json:"range_snapshot,omitempty"`
	Transforms       []string          `json:"transforms,omitempty"`
}

// Schema is a named, versioned set of fields with a lifecycle state.
type Schema struct {
	Name   string              `json:"name"`
	State  State               `json:"state"`
	Fields map[string]*FieldDef `json:"fields"`
}

// Validate enforces the load-time invariants from spec.md §4.3: every Range
// field's embedded AtomRefRange snapshot, if present, must itself carry a
// uuid.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return folderrors.New(folderrors.KindSchemaValidationFailed, "schema name is required")
	}
	for name, f := range s.Fields {
		if f.Variant == atom.VariantRange && f.RangeSnapshot != nil && f.RangeSnapshot.UUID == "" {
			return folderrors.New(folderrors.KindSchemaValidationFailed,
				"range field snapshot missing uuid", "field", name)
		}
	}
	return nil
}

// CanQuery reports whether the schema currently accepts reads.
func (s *Schema) CanQuery() bool { return s.State == StateApproved }

// CanMutate reports whether the schema currently accepts writes.
func (s *Schema) CanMutate() bool { return s.State == StateApproved }

// validTransition enforces spec.md's state machine: Available->Approved,
// Approved->Blocked only. No back-edge from Approved to Available; Blocked
// is terminal.
func validTransition(from, to State) bool {
	switch from {
	case StateAvailable:
		return to == StateApproved
	case StateApproved:
		return to == StateBlocked
	default:
		return false
	}
}
