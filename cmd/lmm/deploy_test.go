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

func TestDeployCmd_Structure(t *testing.T) {
	assert.Equal(t, "deploy", deployCmd.Use)
	assert.NotEmpty(t, deployCmd.Short)
	assert.NotEmpty(t, deployCmd.Long)
	assert.NotNil(t, deployCmd.Flags().Lookup("deployer"))
}

func TestDeployEndToEnd(t *testing.T) {
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

	results := c.Deploy(c.DeployerNames())
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	_, err = os.Lstat(filepath.Join(targetRoot, "plugin.esp"))
	require.NoError(t, err)
}
