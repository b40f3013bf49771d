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

func TestConflictsCmd_Structure(t *testing.T) {
	assert.Equal(t, "conflicts", conflictsCmd.Use)
	assert.NotEmpty(t, conflictsCmd.Short)
	assert.NotNil(t, conflictsCmd.Flags().Lookup("deployer"))
}

func TestConflictGroupsDetectsOverlappingMods(t *testing.T) {
	stagingRoot := t.TempDir()
	targetRoot := t.TempDir()

	modA := filepath.Join(stagingRoot, "0")
	modB := filepath.Join(stagingRoot, "1")
	require.NoError(t, os.MkdirAll(modA, 0o755))
	require.NoError(t, os.MkdirAll(modB, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modA, "shared.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(modB, "shared.txt"), []byte("b"), 0o644))

	c := staging.New(stagingRoot, installer.New())
	c.Mods[0] = &domain.Mod{ID: 0, Name: "Mod A"}
	c.Mods[1] = &domain.Mod{ID: 1, Name: "Mod B"}

	impl := deployer.NewGeneric("main", stagingRoot, targetRoot, domain.DeploySymlink)
	c.AddDeployer(domain.DeployerRecord{Name: "main", Type: domain.DeployerGeneric}, impl)
	require.NoError(t, c.AddModToDeployer("main", 0))
	require.NoError(t, c.AddModToDeployer("main", 1))

	groups, err := c.ConflictGroups("main")
	require.NoError(t, err)
	// The second group is the trailing group of non-conflicting mods.
	require.Len(t, groups, 2)
	assert.ElementsMatch(t, []int{0, 1}, groups[0].ModIDs)
}

func TestConflictGroupsUnknownDeployer(t *testing.T) {
	c := staging.New(t.TempDir(), installer.New())
	_, err := c.ConflictGroups("missing")
	assert.ErrorIs(t, err, domain.ErrNoSuchItem)
}
