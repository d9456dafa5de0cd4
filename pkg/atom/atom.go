package atom

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Atom is an immutable content record. Atoms are never mutated or deleted
// once written; superseding is expressed by allocating a new Atom and
// repointing an AtomRef at it.
type Atom struct {
	ID          string          `json:"id"`
	Content     json.RawMessage `json:"content"`
	PrevAtomID  string          `json:"prev_atom_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by"`
}

// NewAtom allocates a fresh Atom with a generated id and timestamp.
func NewAtom(content json.RawMessage, prevAtomID, createdBy string) *Atom {
	return &Atom{
		ID:         uuid.NewString(),
		Content:    content,
		PrevAtomID: prevAtomID,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  createdBy,
	}
}
