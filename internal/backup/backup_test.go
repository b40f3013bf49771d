package backup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/backup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTargetCreatesTwoSlots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.ini")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	m := backup.New()
	require.NoError(t, m.AddTarget(path, "save"))

	require.Len(t, m.Targets, 1)
	assert.Equal(t, []int{0, 1}, m.Targets[0].Backups)

	content, err := os.ReadFile(path + ".bak0")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestAddBackupClonesActiveSlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.ini")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	m := backup.New()
	require.NoError(t, m.AddTarget(path, "save"))

	require.NoError(t, m.AddBackup("save"))
	assert.Equal(t, []int{0, 1, 2}, m.Targets[0].Backups)

	content, err := os.ReadFile(path + ".bak2")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestSetActiveBackupSwapsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.ini")
	require.NoError(t, os.WriteFile(path, []byte("current"), 0o644))
	m := backup.New()
	require.NoError(t, m.AddTarget(path, "save"))
	require.NoError(t, os.WriteFile(path+".bak1", []byte("other"), 0o644))

	require.NoError(t, m.SetActiveBackup("save", 1))
	assert.Equal(t, 1, m.Targets[0].Active)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "other", string(content))

	content, err = os.ReadFile(path + ".bak0")
	require.NoError(t, err)
	assert.Equal(t, "current", string(content))
}

func TestOverwriteBackupCopiesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.ini")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	m := backup.New()
	require.NoError(t, m.AddTarget(path, "save"))
	require.NoError(t, os.WriteFile(path+".bak1", []byte("v2"), 0o644))

	require.NoError(t, m.OverwriteBackup("save", 1, 0))

	content, err := os.ReadFile(path + ".bak0")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
}
