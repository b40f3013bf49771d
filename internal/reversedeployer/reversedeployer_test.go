package reversedeployer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/reversedeployer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateManagedFilesAdoptsUnmanagedFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "save.dat"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, ".lmmfiles"), []byte("{}"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	require.NoError(t, r.UpdateManagedFiles(map[string]bool{}, false))

	assert.True(t, r.ManagedFiles[0]["save.dat"])
	assert.False(t, r.ManagedFiles[0][".lmmfiles"])
}

func TestUpdateManagedFilesSkipsOtherDeployerFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "plugin.esp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "save.dat"), []byte("x"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	require.NoError(t, r.UpdateManagedFiles(map[string]bool{"plugin.esp": true}, false))

	assert.False(t, r.ManagedFiles[0]["plugin.esp"])
	assert.True(t, r.ManagedFiles[0]["save.dat"])
}

func TestMoveFromTargetToSource(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	require.NoError(t, r.UpdateManagedFiles(map[string]bool{}, false))
	require.NoError(t, r.MoveFromTargetToSource())

	content, err := os.ReadFile(filepath.Join(source, "save.dat"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
	_, err = os.Stat(filepath.Join(target, "save.dat"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeployLinksManagedFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	r.ManagedFiles[0]["save.dat"] = true

	_, err := r.Deploy()
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(target, "save.dat"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestUndeployRemovesDeployedFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	r.ManagedFiles[0]["save.dat"] = true
	_, err := r.Deploy()
	require.NoError(t, err)

	require.NoError(t, r.Undeploy())
	_, err = os.Stat(filepath.Join(target, "save.dat"))
	assert.True(t, os.IsNotExist(err))
}

func TestAddModToIgnoreListRemovesFromManaged(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	r.ManagedFiles[0]["save.dat"] = true

	require.NoError(t, r.AddModToIgnoreList("save.dat"))
	assert.False(t, r.ManagedFiles[0]["save.dat"])
	assert.True(t, r.Ignored["save.dat"])
	_, err := os.Stat(filepath.Join(source, "save.dat"))
	assert.True(t, os.IsNotExist(err))
}

func TestEnableSeparateDirsMovesCurrentProfileFiles(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	r.ManagedFiles[0]["save.dat"] = true

	require.NoError(t, r.EnableSeparateDirs(true))
	_, err := os.Stat(filepath.Join(source, "0", "save.dat"))
	assert.NoError(t, err)
}

func TestCapabilitiesMarksAutonomousNoSorting(t *testing.T) {
	r := reversedeployer.New("test", t.TempDir(), t.TempDir(), domain.DeployCopy)
	caps := r.Capabilities()
	assert.True(t, caps.IsAutonomous)
	assert.False(t, caps.SupportsSorting)
}

func TestLoadRoundTripsPersistedState(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "save.dat"), []byte("data"), 0o644))

	r := reversedeployer.New("test", source, target, domain.DeployCopy)
	r.ManagedFiles[0]["save.dat"] = true
	require.NoError(t, r.AddModToIgnoreList("save.dat"))

	r2 := reversedeployer.New("test", source, target, domain.DeployCopy)
	require.NoError(t, r2.Load())
	assert.True(t, r2.Ignored["save.dat"])
}
