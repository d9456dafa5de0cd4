package field

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/foldcore/pkg/atom"
	"github.com/platinummonkey/foldcore/pkg/folderrors"
	"github.com/platinummonkey/foldcore/pkg/kv"
	"github.com/platinummonkey/foldcore/pkg/rangefilter"
	"github.com/platinummonkey/foldcore/pkg/schema"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ValueSet
}

func (p *recordingPublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if vs, ok := payload.(ValueSet); ok {
		p.events = append(p.events, vs)
	}
}

func newTestFixture(t *testing.T) (*schema.SchemaCore, *atom.Store, *recordingPublisher) {
	t.Helper()
	e, err := kv.Open(filepath.Join(t.TempDir(), "fold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return schema.NewCore(e), atom.NewStore(e), &recordingPublisher{}
}

func loadPostSchema(t *testing.T, core *schema.SchemaCore) {
	t.Helper()
	require.NoError(t, core.Load(&schema.Schema{
		Name: "Post",
		Fields: map[string]*schema.FieldDef{
			"title": {
				Variant:    atom.VariantSingle,
				Permission: schema.PermissionPolicy{Read: schema.PermissionPublic, Write: schema.PermissionPublic},
			},
			"secret": {
				Variant: atom.VariantSingle,
				Permission: schema.PermissionPolicy{
					Read: schema.PermissionPrivate, Write: schema.PermissionPrivate,
					ExplicitReadGrants: map[string]bool{"owner": true},
				},
			},
			"tags": {
				Variant:    atom.VariantCollection,
				Permission: schema.PermissionPolicy{Read: schema.PermissionPublic, Write: schema.PermissionPublic},
			},
			"metrics_by_timeframe": {
				Variant:    atom.VariantRange,
				Permission: schema.PermissionPolicy{Read: schema.PermissionPublic, Write: schema.PermissionPublic},
			},
		},
	}))
}

func TestReadUnsetFieldReturnsNil(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store)

	v, err := m.ReadField("Post", "title", "anyone")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestWriteThenReadSingleField(t *testing.T) {
	core, store, pub := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store, WithPublisher(pub))

	_, err := m.WriteField("Post", "title", json.RawMessage(`"hello"`), "signer-1")
	require.NoError(t, err)

	v, err := m.ReadField("Post", "title", "anyone")
	require.NoError(t, err)
	require.JSONEq(t, `"hello"`, string(v))

	require.Len(t, pub.events, 1)
	require.Equal(t, "signer-1", pub.events[0].Source)
	require.NotEmpty(t, pub.events[0].MutationID)

	s, err := core.Get("Post")
	require.NoError(t, err)
	require.NotEmpty(t, s.Fields["title"].RefAtomUUID)
}

func TestPermissionDeniedOnPrivateFieldWithoutGrant(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store)

	_, err := m.WriteField("Post", "secret", json.RawMessage(`"x"`), "owner")
	require.NoError(t, err)

	_, err = m.ReadField("Post", "secret", "owner")
	require.NoError(t, err)

	_, err = m.ReadField("Post", "secret", "stranger")
	require.Error(t, err)
	kind, ok := folderrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, folderrors.KindPermissionDenied, kind)
}

func TestCollectionFieldAccumulates(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store)

	_, err := m.WriteField("Post", "tags", json.RawMessage(`"go"`), "signer-1")
	require.NoError(t, err)
	_, err = m.WriteField("Post", "tags", json.RawMessage(`"db"`), "signer-1")
	require.NoError(t, err)

	v, err := m.ReadField("Post", "tags", "anyone")
	require.NoError(t, err)
	var items []string
	require.NoError(t, json.Unmarshal(v, &items))
	require.Equal(t, []string{"go", "db"}, items)
}

func TestRangeFieldWriteAndFilter(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store)

	_, err := m.ApplyRangeWrite("Post", "metrics_by_timeframe", "2024-01-01:daily", json.RawMessage(`"1250"`), "signer-1")
	require.NoError(t, err)
	_, err = m.ApplyRangeWrite("Post", "metrics_by_timeframe", "2024-01-01:hourly:00", json.RawMessage(`"45"`), "signer-1")
	require.NoError(t, err)
	_, err = m.ApplyRangeWrite("Post", "metrics_by_timeframe", "2024-01-02:daily", json.RawMessage(`"1180"`), "signer-1")
	require.NoError(t, err)

	res, err := m.FilterRange("Post", "metrics_by_timeframe", rangefilter.Filter{Type: rangefilter.VariantKeyPrefix, Prefix: "2024-01-01"}, "anyone")
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalCount)
}

func TestWriteFieldOnRangeFieldFails(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store)

	_, err := m.WriteField("Post", "metrics_by_timeframe", json.RawMessage(`{}`), "signer-1")
	require.Error(t, err)
	kind, _ := folderrors.KindOf(err)
	require.Equal(t, folderrors.KindInvalidFieldOperation, kind)
}

func TestSharedMutationIDAcrossWrites(t *testing.T) {
	core, store, pub := newTestFixture(t)
	loadPostSchema(t, core)
	m := NewManager(core, store, WithPublisher(pub))

	_, err := m.WriteField("Post", "title", json.RawMessage(`"a"`), "signer-1", WithMutationID("mut-1"))
	require.NoError(t, err)
	_, err = m.WriteField("Post", "tags", json.RawMessage(`"b"`), "signer-1", WithMutationID("mut-1"))
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	require.Equal(t, "mut-1", pub.events[0].MutationID)
	require.Equal(t, "mut-1", pub.events[1].MutationID)
}

func TestWithFieldMetricsRecordsOperationsAndDenials(t *testing.T) {
	core, store, _ := newTestFixture(t)
	loadPostSchema(t, core)

	opsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_field_ops_total"}, []string{"operation", "variant"})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_field_denied_total"}, []string{"operation"})
	m := NewManager(core, store, WithFieldMetrics(opsTotal, denied))

	_, err := m.WriteField("Post", "title", json.RawMessage(`"a"`), "signer-1")
	require.NoError(t, err)
	_, err = m.ReadField("Post", "title", "anyone")
	require.NoError(t, err)

	_, err = m.WriteField("Post", "secret", json.RawMessage(`"x"`), "stranger")
	require.Error(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(opsTotal.WithLabelValues("write", string(atom.VariantSingle))))
	require.Equal(t, float64(1), testutil.ToFloat64(opsTotal.WithLabelValues("read", string(atom.VariantSingle))))
	require.Equal(t, float64(1), testutil.ToFloat64(denied.WithLabelValues("write")))
}
