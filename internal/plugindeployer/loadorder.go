package plugindeployer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modstage/modstage/internal/domain"
)

// SortEngine is the external collaborator that produces a sorted plugin
// order given masterlist/prelude data and the current plugin set. The
// concrete engine (a game-specific sorting library) lives outside this
// package; LoadOrder only depends on this interface.
type SortEngine interface {
	Sort(ctx context.Context, masterlist, prelude []byte, plugins []string) ([]string, error)
	Classify(ctx context.Context, plugins []string) (map[string]PluginClass, error)
}

// Fetcher retrieves masterlist/prelude data for a game from its
// game-specific URL. The HTTP client itself is an external collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PluginClass is the sorting engine's classification of one plugin.
type PluginClass int

const (
	ClassStandard PluginClass = iota
	ClassMaster
	ClassLight
)

func (c PluginClass) String() string {
	switch c {
	case ClassMaster:
		return "master"
	case ClassLight:
		return "light"
	default:
		return "standard"
	}
}

const (
	masterlistMaxAge = time.Hour
	loadorderFile    = "loadorder.txt"
)

// LoadOrder is the plugin-deployer variant for games that read an ordered
// loadorder.txt alongside plugins.txt and support external-sorting-engine
// integration (masterlist/prelude download, light/master/standard
// classification).
type LoadOrder struct {
	*Base

	MasterlistURL string
	PreludeURL    string
	CacheDir      string // where masterlist.yaml/prelude.yaml are cached

	Engine  SortEngine
	Fetcher Fetcher

	now func() time.Time
}

// NewLoadOrder constructs a LoadOrder variant around a fresh Base.
func NewLoadOrder(name, source, target, masterlistURL, preludeURL, cacheDir string) *LoadOrder {
	return &LoadOrder{
		Base:          NewBase(name, source, target),
		MasterlistURL: masterlistURL,
		PreludeURL:    preludeURL,
		CacheDir:      cacheDir,
		now:           time.Now,
	}
}

// WritePlugins writes plugins.txt and loadorder.txt, and, for
// file-modification-time games, advances each plugin symlink's mtime by
// one minute per load-order slot from a fixed epoch.
func (l *LoadOrder) WritePlugins(useMtimeOrdering bool) error {
	if err := l.Base.WritePlugins(); err != nil {
		return err
	}
	var sb strings.Builder
	for _, p := range l.Plugins {
		sb.WriteString(p.Name)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(filepath.Join(l.Target, loadorderFile), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, loadorderFile, err)
	}
	if !useMtimeOrdering {
		return nil
	}
	epoch := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range l.Plugins {
		slotTime := epoch.Add(time.Duration(i) * time.Minute)
		target := filepath.Join(l.Source, p.Name)
		if err := os.Chtimes(target, slotTime, slotTime); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: setting mtime for %s: %v", domain.ErrPathIO, p.Name, err)
		}
	}
	return nil
}

func (l *LoadOrder) cachedPath(name string) string {
	return filepath.Join(l.CacheDir, name)
}

func (l *LoadOrder) needsRefresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return l.now().Sub(info.ModTime()) > masterlistMaxAge
}

// refreshMasterlist downloads masterlist.yaml/prelude.yaml when missing or
// older than an hour.
func (l *LoadOrder) refreshMasterlist(ctx context.Context) (masterlist, prelude []byte, err error) {
	masterlistPath := l.cachedPath("masterlist.yaml")
	preludePath := l.cachedPath("prelude.yaml")

	if l.needsRefresh(masterlistPath) {
		data, err := l.Fetcher.Fetch(ctx, l.MasterlistURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: fetching masterlist: %v", domain.ErrPathIO, err)
		}
		if err := os.WriteFile(masterlistPath, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}
	if l.needsRefresh(preludePath) {
		data, err := l.Fetcher.Fetch(ctx, l.PreludeURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: fetching prelude: %v", domain.ErrPathIO, err)
		}
		if err := os.WriteFile(preludePath, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}

	masterlist, err = os.ReadFile(masterlistPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	prelude, err = os.ReadFile(preludePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return masterlist, prelude, nil
}

// SortModsByConflicts asks the external sorting engine for a new order and
// reclassifies every plugin, updating Tags. Despite the name (shared with
// the generic deployer's interface) this deployer has no conflict notion;
// the operation is the engine-driven re-sort.
func (l *LoadOrder) SortModsByConflicts(ctx context.Context) error {
	masterlist, prelude, err := l.refreshMasterlist(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(l.Plugins))
	for i, p := range l.Plugins {
		names[i] = p.Name
	}
	sorted, err := l.Engine.Sort(ctx, masterlist, prelude, names)
	if err != nil {
		return fmt.Errorf("sorting engine failed: %v", err)
	}

	byName := make(map[string]Entry, len(l.Plugins))
	for _, p := range l.Plugins {
		byName[p.Name] = p
	}
	reordered := make([]Entry, 0, len(sorted))
	for _, name := range sorted {
		if p, ok := byName[name]; ok {
			reordered = append(reordered, p)
		}
	}
	l.Plugins = reordered

	classes, err := l.Engine.Classify(ctx, names)
	if err != nil {
		return fmt.Errorf("classification failed: %v", err)
	}
	l.Tags = make([][]string, len(l.Plugins))
	for i, p := range l.Plugins {
		if class, ok := classes[p.Name]; ok {
			l.Tags[i] = []string{class.String()}
		}
	}
	return l.WritePlugins(false)
}
