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

func TestPurgeCmd_Structure(t *testing.T) {
	assert.Equal(t, "purge", purgeCmd.Use)
	assert.NotEmpty(t, purgeCmd.Short)
	assert.NotEmpty(t, purgeCmd.Long)
	assert.NotNil(t, purgeCmd.Flags().Lookup("yes"))
	assert.NotNil(t, purgeCmd.Flags().Lookup("deployer"))
}

func TestUndeployRemovesLinksButKeepsMod(t *testing.T) {
	stagingRoot := t.TempDir()
	targetRoot := t.TempDir()
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "plugin.esp"), []byte("data"), 0o644))

	c := staging.New(stagingRoot, installer.New())
	mod, err := c.InstallMod(staging.InstallOptions{
		Source:  source,
		Name:    "Test Mod",
		Type:    installer.Simple,
		GroupID: -1,
	})
	require.NoError(t, err)

	impl := deployer.NewGeneric("main", stagingRoot, targetRoot, domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{Name: "main", Type: domain.DeployerGeneric}, impl)
	require.NoError(t, c.AddModToDeployer("main", mod.ID))

	deployResults := c.Deploy(c.DeployerNames())
	require.Len(t, deployResults, 1)
	require.NoError(t, deployResults[0].Err)
	_, err = os.Lstat(filepath.Join(targetRoot, "plugin.esp"))
	require.NoError(t, err)

	undeployResults := c.Undeploy(c.DeployerNames())
	require.Len(t, undeployResults, 1)
	assert.NoError(t, undeployResults[0].Err)

	_, err = os.Lstat(filepath.Join(targetRoot, "plugin.esp"))
	assert.True(t, os.IsNotExist(err))
	_, ok := c.Mods[mod.ID]
	assert.True(t, ok, "mod record must survive undeploy")
}
