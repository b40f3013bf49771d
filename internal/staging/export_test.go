package staging

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
)

func TestExportConfigurationRewritesSteamPaths(t *testing.T) {
	c := New(t.TempDir(), installer.New())
	impl := deployer.NewGeneric("main", "/home/user/.steam/steamapps/compatdata/12345/pfx/drive_c/game/Mods",
		"/home/user/.steam/steamapps/common/SomeGame/Data", domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{
		Name:       "main",
		Type:       domain.DeployerGeneric,
		SourcePath: impl.Source,
		TargetPath: impl.Target,
		DeployMode: domain.DeploySymlink,
		Profiles:   []domain.ProfileState{{Name: "Default"}},
	}, impl)
	c.AutoTags = []domain.Tag{{Name: "light", Kind: domain.TagAutomatic, Evaluator: "is_light"}}

	dest := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, c.ExportConfiguration(dest, SteamContext{AppID: "12345", Home: "/home/user"}, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var cfg ExportedConfig
	require.NoError(t, json.Unmarshal(data, &cfg))

	require.Len(t, cfg.Deployers, 1)
	assert.Equal(t, "{COMPATDATA}/drive_c/game/Mods", cfg.Deployers[0].SourcePath)
	assert.Equal(t, "{STEAMAPP:SomeGame}/Data", cfg.Deployers[0].TargetPath)
	require.Len(t, cfg.AutoTags, 1)
	assert.Equal(t, "light", cfg.AutoTags[0].Name)
}

func TestExportConfigurationFiltersAutoTags(t *testing.T) {
	c := New(t.TempDir(), installer.New())
	c.AutoTags = []domain.Tag{
		{Name: "light", Evaluator: "is_light"},
		{Name: "master", Evaluator: "is_master"},
	}

	dest := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, c.ExportConfiguration(dest, SteamContext{}, []string{"master"}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	var cfg ExportedConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.Len(t, cfg.AutoTags, 1)
	assert.Equal(t, "master", cfg.AutoTags[0].Name)
}
