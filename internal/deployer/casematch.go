package deployer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modstage/modstage/internal/pathutil"
)

// CaseMatching preprocesses mod files to match target-directory case before
// delegating to a wrapped Generic deployer.
type CaseMatching struct {
	*Generic
}

// NewCaseMatching wraps an existing Generic deployer with a case-matching
// preprocessing pass.
func NewCaseMatching(g *Generic) *CaseMatching {
	return &CaseMatching{Generic: g}
}

// Deploy renames staging files to match existing target-directory case,
// then unifies case across the load order itself, before delegating.
func (c *CaseMatching) Deploy() (map[int]int64, error) {
	if err := c.matchTargetCase(); err != nil {
		return nil, err
	}
	if err := c.unifyLoadorderCase(); err != nil {
		return nil, err
	}
	return c.Generic.Deploy()
}

// matchTargetCase walks each enabled mod's tree deepest-first; for every
// relative path (file or directory) that already exists in the target
// under a different case, the mod's entry is renamed to match the target's
// case.
func (c *CaseMatching) matchTargetCase() error {
	for _, entry := range c.Loadorder {
		if !entry.Enabled {
			continue
		}
		dir := c.modDir(entry.ID)
		var paths []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || path == dir {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		sort.Sort(sort.Reverse(sort.StringSlice(paths)))

		for _, path := range paths {
			rel := pathutil.RelativeTo(path, dir)
			resolved, ok := pathutil.Exists(c.Target, rel, true)
			if !ok || resolved == rel {
				continue
			}
			// Only the last component is renamed: entries below it were
			// visited first, and its parent keeps its on-disk name until
			// the parent's own turn.
			dst := filepath.Join(filepath.Dir(path), filepath.Base(resolved))
			if dst == path {
				continue
			}
			if err := os.Rename(path, dst); err != nil {
				return err
			}
		}
	}
	return nil
}

// unifyLoadorderCase makes the earliest-seen case of each case-insensitive
// relative path canonical; later mods' entries are renamed to match it.
func (c *CaseMatching) unifyLoadorderCase() error {
	canonical := make(map[string]string) // lowercased relpath -> canonical-case relpath
	for _, entry := range c.Loadorder {
		if !entry.Enabled {
			continue
		}
		dir := c.modDir(entry.ID)
		var paths []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			paths = append(paths, pathutil.RelativeTo(path, dir))
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		for _, rel := range paths {
			key := strings.ToLower(rel)
			want, known := canonical[key]
			if !known {
				canonical[key] = rel
				continue
			}
			if want == rel {
				continue
			}
			src := filepath.Join(dir, rel)
			dst := filepath.Join(dir, want)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.Rename(src, dst); err != nil {
				return err
			}
		}
	}
	return nil
}
