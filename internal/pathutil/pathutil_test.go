package pathutil

import (
	"os"
	"path/filepath"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExistsCaseInsensitive(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "Data", "Textures"), 0o755))

	resolved, ok := Exists(base, "data/textures", true)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("Data", "Textures"), resolved)

	_, ok = Exists(base, "data/missing", true)
	assert.False(t, ok)

	_, ok = Exists(base, "data/textures", false)
	assert.False(t, ok)
}

func TestMoveWithDepthRejectsDuplicates(t *testing.T) {
	source := t.TempDir()
	destination := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(source, "a", "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(source, "b", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "a", "sub", "file.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "b", "sub", "file.txt"), []byte("b"), 0o644))

	err := MoveWithDepth(source, destination, 1)
	require.Error(t, err)
}

func TestMoveWithDepthStripsComponents(t *testing.T) {
	source := t.TempDir()
	destination := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(source, "archive", "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "archive", "data", "mesh.nif"), []byte("x"), 0o644))

	require.NoError(t, MoveWithDepth(source, destination, 1))

	assert.FileExists(t, filepath.Join(destination, "data", "mesh.nif"))
	assert.NoDirExists(t, source)
}

func TestRenameWithMapLowercases(t *testing.T) {
	source := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(source, "DIR"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "DIR", "FILE.TXT"), []byte("x"), 0o644))

	require.NoError(t, RenameWithMap(source, source, unicode.ToLower))

	assert.FileExists(t, filepath.Join(source, "dir", "file.txt"))
	assert.NoFileExists(t, filepath.Join(source, "DIR", "FILE.TXT"))
}

func TestMoveToDirectoryMergesAndReplaces(t *testing.T) {
	source := t.TempDir()
	destination := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destination, "existing.txt"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "existing.txt"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "fresh.txt"), []byte("fresh"), 0o644))

	require.NoError(t, MoveToDirectory(source, destination, true))

	content, err := os.ReadFile(filepath.Join(destination, "existing.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.FileExists(t, filepath.Join(destination, "fresh.txt"))
}

func TestDirectoryIsEmptyIgnoresListedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".lmmfiles"), []byte("{}"), 0o644))

	assert.True(t, DirectoryIsEmpty(dir, ".lmmfiles"))
	assert.False(t, DirectoryIsEmpty(dir))
}
