package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/staging"
)

func TestUninstallCmd_Structure(t *testing.T) {
	assert.Equal(t, "uninstall <mod-id>...", uninstallCmd.Use)
	assert.NotEmpty(t, uninstallCmd.Short)
	assert.NotEmpty(t, uninstallCmd.Long)
}

func TestRunUninstall_RejectsNonNumericID(t *testing.T) {
	stagingRoot := t.TempDir()
	c := staging.New(stagingRoot, installer.New())

	ids, err := parseModIDs(c, []string{"abc"})
	assert.Error(t, err)
	assert.Nil(t, ids)
}

func TestRunUninstall_RejectsUnknownID(t *testing.T) {
	stagingRoot := t.TempDir()
	c := staging.New(stagingRoot, installer.New())

	ids, err := parseModIDs(c, []string{"99"})
	assert.Error(t, err)
	assert.Nil(t, ids)
}

func TestUninstallModEndToEnd(t *testing.T) {
	stagingRoot := t.TempDir()
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "plugin.esp"), []byte("data"), 0o644))

	c := staging.New(stagingRoot, installer.New())
	mod, err := c.InstallMod(staging.InstallOptions{
		Source:  source,
		Name:    "Test Mod",
		Version: "1.0",
		Type:    installer.Simple,
		GroupID: -1,
	})
	require.NoError(t, err)

	require.NoError(t, c.UninstallMods([]int{mod.ID}))
	_, ok := c.Mods[mod.ID]
	assert.False(t, ok)

	_, err = os.Stat(filepath.Join(stagingRoot, "0"))
	assert.True(t, os.IsNotExist(err))
}
