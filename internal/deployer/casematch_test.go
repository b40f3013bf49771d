package deployer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/deployer"
	"github.com/modstage/modstage/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseMatchingRenamesToTargetCase(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(target, "Textures"), 0o755))

	writeModFile(t, source, 1, "textures/a.dds", "data")

	g := deployer.NewGeneric("test", source, target, domain.DeployCopy)
	g.Loadorder = []domain.LoadorderEntry{{ID: 1, Enabled: true}}
	cm := deployer.NewCaseMatching(g)

	_, err := cm.Deploy()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(target, "Textures", "a.dds"))
	assert.NoError(t, err)
}

func TestCaseMatchingUnifiesLoadorderCase(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()

	writeModFile(t, source, 1, "Scripts/foo.pex", "one")
	writeModFile(t, source, 2, "scripts/foo.pex", "two")

	g := deployer.NewGeneric("test", source, target, domain.DeployCopy)
	g.Loadorder = []domain.LoadorderEntry{
		{ID: 1, Enabled: true},
		{ID: 2, Enabled: true},
	}
	cm := deployer.NewCaseMatching(g)

	_, err := cm.Deploy()
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(target, "Scripts", "foo.pex"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
}
