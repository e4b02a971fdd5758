package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bench-export/internal/model"
)

func TestResolve_KeepsCatalogOrderForPresentSubsets(t *testing.T) {
	root := t.TempDir()
	catalog := []model.Subset{"A", "B", "C", "D", "E", "F"}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "F"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "B"), 0o755))

	handles := Resolve(root, catalog)
	require.Len(t, handles, 2)
	assert.Equal(t, model.Subset("B"), handles[0].Subset)
	assert.Equal(t, filepath.Join(root, "B"), handles[0].Path)
	assert.Equal(t, model.Subset("F"), handles[1].Subset)
}

func TestResolve_IgnoresFilesAndMissingRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ingested"), []byte("not a dir"), 0o644))

	assert.Empty(t, Resolve(root, model.Catalog()))
	assert.Empty(t, Resolve(filepath.Join(root, "nope"), model.Catalog()))
}

func TestResolve_DoesNotOpenData(t *testing.T) {
	root := t.TempDir()
	// An empty directory is "present" even though it cannot be loaded.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "chunked"), 0o755))

	handles := Resolve(root, model.Catalog())
	require.Len(t, handles, 1)
	assert.Equal(t, model.SubsetChunked, handles[0].Subset)
	assert.True(t, Exists(root, model.SubsetChunked))
	assert.False(t, Exists(root, model.SubsetLighteval))
}
