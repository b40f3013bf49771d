package linker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/linker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymlinkLinker_Deploy(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	dstDir := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.MkdirAll(dstDir, 0755))

	srcFile := filepath.Join(srcDir, "test.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("content"), 0644))

	l := linker.NewSymlink()
	dstFile := filepath.Join(dstDir, "test.txt")
	err := l.Deploy(srcFile, dstFile)
	require.NoError(t, err)

	info, err := os.Lstat(dstFile)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)

	content, err := os.ReadFile(dstFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), content)

	equiv, err := l.Equivalent(srcFile, dstFile)
	require.NoError(t, err)
	assert.True(t, equiv)
}

func TestSymlinkLinker_Undeploy(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "src.txt")
	dstFile := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("content"), 0644))

	l := linker.NewSymlink()
	require.NoError(t, l.Deploy(srcFile, dstFile))
	require.NoError(t, l.Undeploy(dstFile))

	_, err := os.Stat(dstFile)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(srcFile)
	assert.NoError(t, err)
}

func TestHardlinkLinker_Deploy(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "src.txt")
	dstFile := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("content"), 0644))

	l := linker.NewHardlink()
	err := l.Deploy(srcFile, dstFile)
	require.NoError(t, err)

	content, err := os.ReadFile(dstFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), content)

	equiv, err := l.Equivalent(srcFile, dstFile)
	require.NoError(t, err)
	assert.True(t, equiv)
}

func TestHardlinkEquivalentMissingTargetIsFalse(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("content"), 0644))

	l := linker.NewHardlink()
	equiv, err := l.Equivalent(srcFile, filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.False(t, equiv)
}

func TestCopyLinker_Deploy(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "src.txt")
	dstFile := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("content"), 0644))

	l := linker.NewCopy()
	err := l.Deploy(srcFile, dstFile)
	require.NoError(t, err)

	content, err := os.ReadFile(dstFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), content)

	equiv, err := l.Equivalent(srcFile, dstFile)
	require.NoError(t, err)
	assert.False(t, equiv)
}

func TestNew_ReturnsCorrectLinker(t *testing.T) {
	assert.Equal(t, domain.DeploySymlink, linker.New(domain.DeploySymlink).Method())
	assert.Equal(t, domain.DeployHardlink, linker.New(domain.DeployHardlink).Method())
	assert.Equal(t, domain.DeployCopy, linker.New(domain.DeployCopy).Method())
}
