package schema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/foldcore/pkg/kv"
)

func TestWatchDirReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	engine, err := kv.Open(filepath.Join(dir, "fold.db"))
	require.NoError(t, err)
	defer engine.Close()

	core := NewCore(engine)

	schemaDir := filepath.Join(dir, "schemas")
	require.NoError(t, os.Mkdir(schemaDir, 0o755))

	w, err := WatchDir(schemaDir, core)
	require.NoError(t, err)
	defer w.Close()

	docPath := filepath.Join(schemaDir, "Widgets.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`{"name":"Widgets","fields":{}}`), 0o644))

	require.Eventually(t, func() bool {
		s, err := core.Get("Widgets")
		return err == nil && s != nil
	}, 2*time.Second, 20*time.Millisecond)
}
