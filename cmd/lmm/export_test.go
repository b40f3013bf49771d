package main

import (
	"encoding/json"
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

func TestExportCmd_Structure(t *testing.T) {
	assert.Equal(t, "export <file>", exportCmd.Use)
	assert.NotNil(t, exportCmd.Flags().Lookup("tags"))
}

func TestExportConfigurationWritesFile(t *testing.T) {
	stagingRoot := t.TempDir()
	targetRoot := t.TempDir()
	c := staging.New(stagingRoot, installer.New())
	impl := deployer.NewGeneric("main", stagingRoot, targetRoot, domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{Name: "main", Type: domain.DeployerGeneric, SourcePath: stagingRoot, TargetPath: targetRoot, DeployMode: domain.DeploySymlink}, impl)

	dest := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, c.ExportConfiguration(dest, staging.SteamContext{}, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var cfg staging.ExportedConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Len(t, cfg.Deployers, 1)
	assert.Equal(t, "main", cfg.Deployers[0].Name)
}
