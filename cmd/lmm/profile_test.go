package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstage/modstage/internal/deployer"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/staging"
)

func TestProfileCmd_Structure(t *testing.T) {
	assert.Equal(t, "profile", profileCmd.Use)
	assert.NotEmpty(t, profileCmd.Short)

	var subCmds []string
	for _, cmd := range profileCmd.Commands() {
		subCmds = append(subCmds, cmd.Name())
	}

	assert.Contains(t, subCmds, "list")
	assert.Contains(t, subCmds, "create")
	assert.Contains(t, subCmds, "delete")
	assert.Contains(t, subCmds, "switch")
}

func TestProfileCreateCmd_HasFromFlag(t *testing.T) {
	assert.NotNil(t, profileCreateCmd.Flags().Lookup("from"))
}

func TestCreateProfileClonesLoadorder(t *testing.T) {
	stagingRoot := t.TempDir()
	targetRoot := t.TempDir()
	source := t.TempDir()
	writeFile(t, source, "plugin.esp", "v1")

	c := staging.New(stagingRoot, installer.New())
	mod, err := c.InstallMod(staging.InstallOptions{
		Source:  source,
		Name:    "Test Mod",
		Type:    installer.Simple,
		GroupID: -1,
	})
	require.NoError(t, err)

	impl := deployer.NewGeneric("main", stagingRoot, targetRoot, domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{Name: "main", Type: domain.DeployerGeneric, Profiles: []domain.ProfileState{{Name: "Default"}}}, impl)
	require.NoError(t, c.AddModToDeployer("main", mod.ID))

	require.NoError(t, c.CreateProfile("Hardcore", "Default"))
	assert.Len(t, c.Profiles, 2)

	records := c.DeployerRecords()
	require.Len(t, records, 1)
	require.Len(t, records[0].Profiles, 2)
	assert.Equal(t, records[0].Profiles[0].Loadorder, records[0].Profiles[1].Loadorder)
}

func TestCreateProfileRejectsDuplicateName(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())
	assert.Error(t, c.CreateProfile("Default", ""))
}

func TestRemoveProfileRejectsActiveProfile(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())
	require.NoError(t, c.CreateProfile("Hardcore", ""))
	assert.Error(t, c.RemoveProfile("Default"))
	require.NoError(t, c.RemoveProfile("Hardcore"))
	assert.Len(t, c.Profiles, 1)
}

func TestSetProfileSwitchesCurrent(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())
	require.NoError(t, c.CreateProfile("Hardcore", ""))
	require.NoError(t, c.SetProfile("Hardcore"))
	assert.Equal(t, "Hardcore", c.CurrentProfile())
	assert.Error(t, c.SetProfile("Nonexistent"))
}
