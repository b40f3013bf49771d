package plugindeployer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/plugindeployer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct{ data []byte }

func (f fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.data, nil
}

type fakeEngine struct {
	order   []string
	classes map[string]plugindeployer.PluginClass
}

func (e fakeEngine) Sort(ctx context.Context, masterlist, prelude []byte, plugins []string) ([]string, error) {
	return e.order, nil
}

func (e fakeEngine) Classify(ctx context.Context, plugins []string) (map[string]plugindeployer.PluginClass, error) {
	return e.classes, nil
}

func TestLoadOrderWritePluginsWritesLoadorderFile(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	l := plugindeployer.NewLoadOrder("test", source, target, "", "", t.TempDir())
	l.Plugins = []plugindeployer.Entry{{Name: "a.esp", Enabled: true}, {Name: "b.esp", Enabled: false}}

	require.NoError(t, l.WritePlugins(false))

	content, err := os.ReadFile(filepath.Join(target, "loadorder.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a.esp\nb.esp\n", string(content))
}

func TestLoadOrderSortModsByConflictsReordersAndClassifies(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	cache := t.TempDir()
	l := plugindeployer.NewLoadOrder("test", source, target, "http://x/masterlist.yaml", "http://x/prelude.yaml", cache)
	l.Plugins = []plugindeployer.Entry{{Name: "a.esp", Enabled: true}, {Name: "b.esp", Enabled: true}}
	l.Fetcher = fakeFetcher{data: []byte("---\n")}
	l.Engine = fakeEngine{
		order:   []string{"b.esp", "a.esp"},
		classes: map[string]plugindeployer.PluginClass{"a.esp": plugindeployer.ClassMaster, "b.esp": plugindeployer.ClassLight},
	}

	require.NoError(t, l.SortModsByConflicts(context.Background()))

	require.Len(t, l.Plugins, 2)
	assert.Equal(t, "b.esp", l.Plugins[0].Name)
	assert.Equal(t, "a.esp", l.Plugins[1].Name)
	assert.Equal(t, []string{"light"}, l.Tags[0])
	assert.Equal(t, []string{"master"}, l.Tags[1])
}
