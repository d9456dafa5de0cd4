package atom

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	e, err := kv.Open(filepath.Join(t.TempDir(), "fold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return NewStore(e)
}

func TestCreateAtomAndGet(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateAtom(json.RawMessage(`{"v":1}`), "", "signer-1")
	require.NoError(t, err)

	a, err := s.GetAtom(id)
	require.NoError(t, err)
	require.Equal(t, id, a.ID)

	_, err = s.GetAtom("does-not-exist")
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindAtomNotFound, kind)
}

func TestCreateOrUpdateSingleAppendsHistory(t *testing.T) {
	s := newTestStore(t)
	sr, err := s.CreateOrUpdateSingle("ref-1", "atom-1")
	require.NoError(t, err)
	require.Len(t, sr.UpdateHistory, 1)

	sr, err = s.CreateOrUpdateSingle("ref-1", "atom-2")
	require.NoError(t, err)
	require.Equal(t, "atom-2", sr.AtomID)
	require.Len(t, sr.UpdateHistory, 2)
}

func TestCreateOrUpdateSingleTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateOrUpdateRangeEntry("ref-1", "k", "atom-1")
	require.NoError(t, err)

	_, err = s.CreateOrUpdateSingle("ref-1", "atom-2")
	require.Error(t, err)
	kind, _ := folderrors.KindOf(err)
	require.Equal(t, folderrors.KindAtomRefTypeMismatch, kind)
}

func TestRangeEntryVisibleImmediately(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateOrUpdateRangeEntry("ref-r", "2024-01-01", "atom-1")
	require.NoError(t, err)

	rr, err := s.Resolve("ref-r", VariantRange)
	require.NoError(t, err)
	require.Equal(t, "atom-1", rr.Range.AtomUUIDs["2024-01-01"])
}

func TestGhostUUIDDetected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GhostCheck("Schema.field", "nonexistent-uuid")
	require.Error(t, err)
	kind, _ := folderrors.KindOf(err)
	require.Equal(t, folderrors.KindGhostUUIDDetected, kind)

	_, err = s.CreateOrUpdateSingle("nonexistent-uuid", "atom-1")
	require.NoError(t, err)

	_, err = s.GhostCheck("Schema.field", "nonexistent-uuid")
	require.NoError(t, err)
}

func TestResolveWrongVariant(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateOrUpdateSingle("ref-1", "atom-1")
	require.NoError(t, err)

	_, err = s.Resolve("ref-1", VariantRange)
	require.Error(t, err)
	kind, _ := folderrors.KindOf(err)
	require.Equal(t, folderrors.KindAtomRefTypeMismatch, kind)
}

func TestWithAtomsCreatedCounterIncrementsPerAtom(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_atoms_created_total"})
	e, err := kv.Open(filepath.Join(t.TempDir(), "fold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	s := NewStore(e, WithAtomsCreatedCounter(counter))

	_, err = s.CreateAtom(json.RawMessage(`{"v":1}`), "", "signer-1")
	require.NoError(t, err)
	_, err = s.CreateAtom(json.RawMessage(`{"v":2}`), "", "signer-1")
	require.NoError(t, err)

	require.Equal(t, float64(2), testutil.ToFloat64(counter))
}
