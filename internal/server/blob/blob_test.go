package blob

import (
	"os"
	"path/filepath"
	"testing"

	"sightline/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndResolve(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.Save("EMP001", "20250429_130751_123456.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "EMP001/20250429_130751_123456.png", relPath)

	abs, err := store.Resolve("EMP001", "20250429_130751_123456.png")
	require.NoError(t, err)

	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestRemove(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.Save("EMP001", "shot.png", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(relPath))

	_, err = store.Resolve("EMP001", "shot.png")
	assert.ErrorIs(t, err, types.ErrScreenshotNotFound)

	// Second remove reports the missing file
	assert.Error(t, store.Remove(relPath))
}

func TestResolveMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Resolve("EMP001", "nothing.png")
	assert.ErrorIs(t, err, types.ErrScreenshotNotFound)
}

func TestPathTraversalRejected(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	require.NoError(t, err)

	// A file outside an agent directory must stay unreachable.
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0644))

	testCases := []struct {
		name     string
		agentID  string
		filename string
	}{
		{"dotdot agent", "..", "secret.txt"},
		{"dotdot filename", "EMP001", "../secret.txt"},
		{"slash in agent", "a/b", "x.png"},
		{"backslash in filename", "EMP001", "..\\secret.txt"},
		{"empty agent", "", "x.png"},
		{"empty filename", "EMP001", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Resolve(tc.agentID, tc.filename)
			assert.ErrorIs(t, err, types.ErrScreenshotNotFound)

			_, err = store.Save(tc.agentID, tc.filename, []byte("x"))
			assert.Error(t, err)
		})
	}
}
