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

func TestListCmd_Structure(t *testing.T) {
	assert.Equal(t, "list", listCmd.Use)
	assert.NotEmpty(t, listCmd.Short)
	assert.NotEmpty(t, listCmd.Long)
}

func TestModListEntriesAndGrouping(t *testing.T) {
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

	assert.Equal(t, -1, c.GroupOf(mod.ID))
	assert.Equal(t, []int{mod.ID}, sortedModIDs(c.Mods))
}
