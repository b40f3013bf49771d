package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstage/modstage/internal/deployer"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/staging"
)

func TestModCmd_Structure(t *testing.T) {
	assert.Equal(t, "mod", modCmd.Use)
	assert.NotEmpty(t, modCmd.Short)
}

func TestModReplaceCmd_Structure(t *testing.T) {
	assert.Equal(t, "replace <mod-id> <source>", modReplaceCmd.Use)
	assert.NotNil(t, modReplaceCmd.Flags().Lookup("version"))
}

func TestModSplitCmd_Structure(t *testing.T) {
	assert.Equal(t, "split <mod-id> <deployer>", modSplitCmd.Use)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestReplaceModKeepsIDAndDeployerMembership(t *testing.T) {
	stagingRoot := t.TempDir()
	targetRoot := t.TempDir()

	source := t.TempDir()
	writeFile(t, source, "plugin.esp", "v1")

	c := staging.New(stagingRoot, installer.New())
	mod, err := c.InstallMod(staging.InstallOptions{
		Source:  source,
		Name:    "Test Mod",
		Version: "1.0",
		Type:    installer.Simple,
		GroupID: -1,
	})
	require.NoError(t, err)

	impl := deployer.NewGeneric("main", stagingRoot, targetRoot, domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{Name: "main", Type: domain.DeployerGeneric}, impl)
	require.NoError(t, c.AddModToDeployer("main", mod.ID))

	newSource := t.TempDir()
	writeFile(t, newSource, "plugin.esp", "v2")

	require.NoError(t, c.ReplaceMod(mod.ID, staging.InstallOptions{
		Source:  newSource,
		Name:    "Test Mod",
		Version: "2.0",
		Type:    installer.Simple,
	}))

	assert.Equal(t, "2.0", c.Mods[mod.ID].Version)
	data, err := os.ReadFile(filepath.Join(stagingRoot, "0", "plugin.esp"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}
