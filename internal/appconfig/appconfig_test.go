package appconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/appconfig"
	"github.com/modstage/modstage/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	dir := t.TempDir()
	s, err := appconfig.LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, domain.DeploySymlink, s.DefaultDeployMode)
	assert.Equal(t, "auto", s.Color)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadSettings_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
default_deploy_mode: hard_link
color: never
log_level: debug
data_root: /data/mods
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	s, err := appconfig.LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.DeployHardlink, s.DefaultDeployMode)
	assert.Equal(t, "never", s.Color)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "/data/mods", s.DataRoot)
}

func TestSettingsSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := &appconfig.Settings{DefaultDeployMode: domain.DeployCopy, Color: "always", LogLevel: "warn"}
	require.NoError(t, s.Save(dir))

	loaded, err := appconfig.LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, domain.DeployCopy, loaded.DefaultDeployMode)
	assert.Equal(t, "always", loaded.Color)
}

func TestSettingsColorEnabled(t *testing.T) {
	s := &appconfig.Settings{Color: "never"}
	assert.False(t, s.ColorEnabled())

	s = &appconfig.Settings{Color: "always"}
	assert.True(t, s.ColorEnabled())

	t.Setenv("NO_COLOR", "1")
	s = &appconfig.Settings{Color: "auto"}
	assert.False(t, s.ColorEnabled())
}

func TestLoadApplications_Empty(t *testing.T) {
	dir := t.TempDir()
	apps, err := appconfig.LoadApplications(dir)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSaveAndLoadApplication(t *testing.T) {
	dir := t.TempDir()
	app := &domain.Application{
		ID:          "skyrim-se",
		Name:        "Skyrim Special Edition",
		StagingRoot: "/data/skyrim/staging",
		TargetRoot:  "/games/skyrim/Data",
		Command:     "skse64_loader.exe",
	}
	require.NoError(t, appconfig.SaveApplication(dir, app))

	apps, err := appconfig.LoadApplications(dir)
	require.NoError(t, err)
	require.Contains(t, apps, "skyrim-se")
	assert.Equal(t, "Skyrim Special Edition", apps["skyrim-se"].Name)
	assert.Equal(t, "/games/skyrim/Data", apps["skyrim-se"].TargetRoot)
}

func TestDeleteApplication(t *testing.T) {
	dir := t.TempDir()
	app := &domain.Application{ID: "test-app", Name: "Test", StagingRoot: "/s", TargetRoot: "/t", Command: "run"}
	require.NoError(t, appconfig.SaveApplication(dir, app))

	require.NoError(t, appconfig.DeleteApplication(dir, "test-app"))

	apps, err := appconfig.LoadApplications(dir)
	require.NoError(t, err)
	assert.NotContains(t, apps, "test-app")
}

func TestDeleteApplication_Unknown(t *testing.T) {
	dir := t.TempDir()
	err := appconfig.DeleteApplication(dir, "nope")
	assert.ErrorIs(t, err, domain.ErrNoSuchItem)
}

func TestLoadApplications_ExpandsTilde(t *testing.T) {
	dir := t.TempDir()
	content := `
applications:
  test-app:
    name: Test App
    staging_root: ~/staging/test
    target_root: ~/games/test
    command: run
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "applications.yaml"), []byte(content), 0o644))

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	apps, err := appconfig.LoadApplications(dir)
	require.NoError(t, err)
	require.Contains(t, apps, "test-app")
	assert.Equal(t, filepath.Join(home, "staging/test"), apps["test-app"].StagingRoot)
}

func TestParseConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("color: auto\n"), 0o644))

	cleaned, err := appconfig.ParseConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, cleaned)

	_, err = appconfig.ParseConfigPath("relative.yaml")
	assert.Error(t, err)

	_, err = appconfig.ParseConfigPath(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
