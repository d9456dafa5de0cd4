// Package atom implements the immutable Atom / mutable AtomRef data model.
//
// # Overview
//
// An Atom is a content-addressed, append-only record: once written it is
// never mutated or deleted. An AtomRef is a mutable pointer that versions
// atoms over time, in one of three variants — Single, Collection, Range —
// discriminated by a "type" tag in its JSON encoding.
//
// # Ghost UUIDs
//
// A field that carries a ref_atom_uuid pointing at no existing AtomRef is an
// invariant violation (GhostUuidDetected). Store never produces this state:
// a field's ref_atom_uuid is only persisted after the AtomRef it names
// exists.
package atom
