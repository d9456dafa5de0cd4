package transform

import (
	"encoding/json"
	"time"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

// Transform is a declared computation: it re-runs when any of Inputs is
// written, producing Output from Logic (an opaque expression string the
// embedded interpreter, not this package, understands).
type Transform struct {
	ID        string    `json:"id"`
	Inputs    []string  `json:"inputs"` // each "schema.field"
	Output    string    `json:"output"` // "schema.field"
	Logic     string    `json:"logic"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists Transform records in the kv engine's "transforms" tree.
type Store struct {
	engine *kv.Engine
}

// NewStore wraps an Engine with transform persistence.
func NewStore(engine *kv.Engine) *Store {
	return &Store{engine: engine}
}

func (s *Store) tree() *kv.Tree { return s.engine.Tree(kv.TreeTransforms) }

// Put persists t, overwriting any existing transform with the same id.
func (s *Store) Put(t *Transform) error {
	data, err := json.Marshal(t)
	if err != nil {
		return folderrors.Wrap(folderrors.KindSerializationError, "marshal transform", err)
	}
	return s.tree().Put(t.ID, data)
}

// Get loads a Transform by id, failing with TransformNotFound if absent.
func (s *Store) Get(id string) (*Transform, error) {
	data, err := s.tree().Get(id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, folderrors.New(folderrors.KindTransformNotFound, "transform not found", "id", id)
	}
	var t Transform
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, folderrors.Wrap(folderrors.KindDeserializationError, "decode transform", err)
	}
	return &t, nil
}

// Delete removes a Transform by id.
func (s *Store) Delete(id string) (bool, error) {
	return s.tree().Delete(id)
}

// List returns every persisted Transform.
func (s *Store) List() ([]*Transform, error) {
	ids, err := s.tree().ListKeys()
	if err != nil {
		return nil, err
	}
	out := make([]*Transform, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
