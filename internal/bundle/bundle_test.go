package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreate_WritesIndexHTML(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	require.NoError(t, err)

	id, err := store.Create("<html>hi</html>")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, id, "index.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", string(data))
	require.True(t, store.Exists(id), "expected Exists to report true for %s", id)
}

func TestCreate_DistinctBundlesGetDistinctDirectories(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	id1, err := store.Create("a")
	require.NoError(t, err)
	id2, err := store.Create("b")
	require.NoError(t, err)
	require.NotEqual(t, id1, id2, "expected distinct bundle ids")
}

func TestRemove_DeletesBundleDirectory(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	id, err := store.Create("content")
	require.NoError(t, err)
	require.NoError(t, store.Remove(id))
	require.False(t, store.Exists(id), "expected bundle to be gone after Remove")
}
