package deployer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/linker"
	"github.com/modstage/modstage/internal/pathutil"
)

const manifestName = ".lmmfiles"

// Generic manages one load order of installed mods for one target
// directory: conflict groups, deploy via link/copy, backup/restore of
// displaced target files, external-modification detection.
type Generic struct {
	Name                string
	Source              string // staging root; mod payloads live at Source/<id>
	Target              string
	Mode                domain.DeployMode
	Loadorder           []domain.LoadorderEntry
	ConflictGroups      []domain.ConflictGroup
	EnableUnsafeSorting bool
	Log                 func(string)

	linker linker.Linker
}

// NewGeneric creates a Generic deployer bound to the given staging root and
// target directory.
func NewGeneric(name, source, target string, mode domain.DeployMode) *Generic {
	return &Generic{
		Name:   name,
		Source: source,
		Target: target,
		Mode:   mode,
		linker: linker.New(mode),
	}
}

// SetLoadorder replaces the deployer's current load order, e.g. when the
// staging controller switches the active profile.
func (g *Generic) SetLoadorder(entries []domain.LoadorderEntry) {
	g.Loadorder = entries
}

func (g *Generic) modDir(id int) string {
	return filepath.Join(g.Source, strconv.Itoa(id))
}

func (g *Generic) log(format string, args ...any) {
	if g.Log != nil {
		g.Log(fmt.Sprintf(format, args...))
	}
}

// sourceFiles walks the enabled mods from last to first in the current
// load order, inserting (relpath, mod-id) only when that relpath is absent
// — last-seen wins because of reverse iteration. Directories are recorded
// too (so an empty placeholder directory still gets created at the
// deploy target) but never contribute to the byte totals. Returns the
// resolved mapping and each contributing mod's byte total.
func (g *Generic) sourceFiles() (map[string]int, map[int]int64, error) {
	files := make(map[string]int)
	totals := make(map[int]int64)

	for i := len(g.Loadorder) - 1; i >= 0; i-- {
		entry := g.Loadorder[i]
		if !entry.Enabled {
			continue
		}
		dir := g.modDir(entry.ID)
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel := pathutil.RelativeTo(path, dir)
			if rel == "" {
				return nil
			}
			if _, exists := files[rel]; exists {
				return nil
			}
			files[rel] = entry.ID
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err == nil {
				totals[entry.ID] += info.Size()
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: walking mod %d: %v", domain.ErrPathIO, entry.ID, err)
		}
	}
	return files, totals, nil
}

func (g *Generic) readManifest() (map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(g.Target, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("%w: reading manifest: %v", domain.ErrParse, err)
	}
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %v", domain.ErrParse, g.Target, err)
	}
	return m.ToMap(), nil
}

func (g *Generic) writeManifest(files map[string]int) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	m := domain.Manifest{Files: make([]domain.ManifestEntry, 0, len(paths))}
	for _, p := range paths {
		m.Files = append(m.Files, domain.ManifestEntry{Path: p, ModID: files[p]})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	dst := filepath.Join(g.Target, manifestName)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing manifest: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: committing manifest: %v", domain.ErrPathIO, err)
	}
	return nil
}

// Deploy runs the full scan -> manifest-read -> backup/restore -> link ->
// manifest-write sequence and returns per-mod byte totals.
func (g *Generic) Deploy() (map[int]int64, error) {
	sourceFiles, totals, err := g.sourceFiles()
	if err != nil {
		return nil, err
	}
	destFiles, err := g.readManifest()
	if err != nil {
		return nil, err
	}

	if err := g.restorePass(sourceFiles, destFiles); err != nil {
		return nil, err
	}
	if err := g.backupPass(sourceFiles, destFiles); err != nil {
		return nil, err
	}
	if err := g.linkPass(sourceFiles); err != nil {
		return nil, err
	}
	if err := g.writeManifest(sourceFiles); err != nil {
		return nil, err
	}
	return totals, nil
}

// Undeploy runs the same algorithm with an empty load order: every
// manifest entry is restored and nothing is linked.
func (g *Generic) Undeploy() error {
	saved := g.Loadorder
	g.Loadorder = nil
	defer func() { g.Loadorder = saved }()
	_, err := g.Deploy()
	return err
}

// restorePass handles dest-files \ source-files: restore any backup, or
// drop the slot if it has become an empty directory. Paths are visited
// deepest-first so a directory entry is only removed after the files and
// sub-directories it contains have already been cleared.
func (g *Generic) restorePass(sourceFiles, destFiles map[string]int) error {
	paths := make([]string, 0, len(destFiles))
	for path := range destFiles {
		if _, stillSourced := sourceFiles[path]; !stillSourced {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.Count(paths[i], string(filepath.Separator)) > strings.Count(paths[j], string(filepath.Separator))
	})

	for _, path := range paths {
		target := filepath.Join(g.Target, path)
		backup := target + ".lmmbak"
		if _, err := os.Stat(backup); err == nil {
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("%w: removing %s: %v", domain.ErrPathIO, target, err)
			}
			if err := os.Rename(backup, target); err != nil {
				return fmt.Errorf("%w: restoring backup %s: %v", domain.ErrPathIO, backup, err)
			}
			continue
		}
		if info, err := os.Lstat(target); err == nil && info.IsDir() {
			if !pathutil.DirectoryIsEmpty(target) {
				continue
			}
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing %s: %v", domain.ErrPathIO, target, err)
		}
		dir := filepath.Dir(target)
		if pathutil.DirectoryIsEmpty(dir) {
			_ = os.Remove(dir)
		}
	}
	return nil
}

// backupPass handles source-files \ dest-files: a pre-existing regular
// target file is displaced into a .lmmbak sibling before linking over it.
func (g *Generic) backupPass(sourceFiles, destFiles map[string]int) error {
	for path := range sourceFiles {
		if _, alreadyManaged := destFiles[path]; alreadyManaged {
			continue
		}
		target := filepath.Join(g.Target, path)
		info, err := os.Lstat(target)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			if err := os.Rename(target, target+".lmmbak"); err != nil {
				return fmt.Errorf("%w: backing up %s: %v", domain.ErrPathIO, target, err)
			}
		}
	}
	return nil
}

// linkPass creates (or skips, if already equivalent) each entry's link.
// Directories present in the source are created, never linked.
func (g *Generic) linkPass(sourceFiles map[string]int) error {
	for path, modID := range sourceFiles {
		src := filepath.Join(g.modDir(modID), path)
		dst := filepath.Join(g.Target, path)

		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %v", domain.ErrPathIO, src, err)
		}
		if info.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
			continue
		}

		equivalent, err := g.linker.Equivalent(src, dst)
		if err != nil {
			return err
		}
		if equivalent {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
		if _, err := os.Lstat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("%w: removing %s: %v", domain.ErrPathIO, dst, err)
			}
		}
		if err := g.linker.Deploy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// ExternalChanges reports manifest paths whose target-side file no longer
// matches what this deployer last linked there.
func (g *Generic) ExternalChanges() ([]string, error) {
	if g.Mode == domain.DeployCopy {
		return nil, nil
	}
	destFiles, err := g.readManifest()
	if err != nil {
		return nil, err
	}
	var changed []string
	for path, modID := range destFiles {
		src := filepath.Join(g.modDir(modID), path)
		dst := filepath.Join(g.Target, path)
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			continue
		}
		equivalent, err := g.linker.Equivalent(src, dst)
		if err != nil {
			return nil, err
		}
		if !equivalent {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// KeepOrRevert resolves a batch of external changes. keep=true pulls the
// target's current content into staging (following a symlink) and relinks;
// keep=false discards the target content and relinks from staging as-is.
func (g *Generic) KeepOrRevert(paths []string, modIDs []int, keep []bool) error {
	for i, path := range paths {
		modID := modIDs[i]
		src := filepath.Join(g.modDir(modID), path)
		dst := filepath.Join(g.Target, path)

		if keep[i] {
			if _, err := os.Lstat(src); err == nil {
				if err := os.Remove(src); err != nil {
					return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
				}
			}
			resolved := dst
			if info, err := os.Lstat(dst); err == nil && info.Mode()&os.ModeSymlink != 0 {
				if target, err := filepath.EvalSymlinks(dst); err == nil {
					resolved = target
				}
			}
			if err := pathutil.CopyOrMove(resolved, src, true); err != nil {
				return err
			}
		} else {
			if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
		}
		if err := g.linker.Deploy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDeployedForMod drops and recreates every manifest link owned by
// modID from the current staging file.
func (g *Generic) UpdateDeployedForMod(modID int) error {
	destFiles, err := g.readManifest()
	if err != nil {
		return err
	}
	for path, owner := range destFiles {
		if owner != modID {
			continue
		}
		src := filepath.Join(g.modDir(modID), path)
		dst := filepath.Join(g.Target, path)
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
		if err := g.linker.Deploy(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// FixInvalidDeployMode probes hard-link creation from source to target with
// a sentinel file; on failure it switches this deployer to sym-link.
func (g *Generic) FixInvalidDeployMode() error {
	if g.Mode != domain.DeployHardlink {
		return nil
	}
	sentinelSrc := filepath.Join(g.Source, ".lmm-sentinel")
	sentinelDst := filepath.Join(g.Target, ".lmm-sentinel")
	if err := os.WriteFile(sentinelSrc, []byte{}, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	defer os.Remove(sentinelSrc)

	err := os.Link(sentinelSrc, sentinelDst)
	if err == nil {
		os.Remove(sentinelDst)
		return nil
	}
	g.log("hard_link unavailable for %s, falling back to sym_link", g.Target)
	g.Mode = domain.DeploySymlink
	g.linker = linker.New(domain.DeploySymlink)
	return nil
}

// Capabilities reports the generic deployer's feature set.
func (g *Generic) Capabilities() domain.Capabilities {
	return GenericCapabilities()
}
