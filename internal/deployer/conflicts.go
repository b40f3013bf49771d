package deployer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/pathutil"
)

// ComputeConflictGroups partitions the current load order into equivalence
// classes: two mods land in the same class iff some relative file path is
// present in both. Order within a class follows the load order; a trailing
// class collects mods that conflict with none.
//
// Kept as an O(n²) fixed-point merge (see DESIGN.md) rather than a
// union-by-rank structure: mod counts in this domain don't justify the
// extra bookkeeping.
func (g *Generic) ComputeConflictGroups() ([]domain.ConflictGroup, error) {
	fileOwner := make(map[string]int)
	groupOf := make(map[int]int)
	var rawGroups [][]int

	for _, entry := range g.Loadorder {
		files, err := g.modFileList(entry.ID)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			owner, seen := fileOwner[rel]
			if !seen {
				fileOwner[rel] = entry.ID
				continue
			}
			if owner == entry.ID {
				continue
			}
			if gi, has := groupOf[owner]; has {
				if !containsInt(rawGroups[gi], entry.ID) {
					rawGroups[gi] = append(rawGroups[gi], entry.ID)
					groupOf[entry.ID] = gi
				}
			} else {
				gi := len(rawGroups)
				rawGroups = append(rawGroups, []int{owner, entry.ID})
				groupOf[owner] = gi
				groupOf[entry.ID] = gi
			}
		}
	}

	merged := mergeIntersecting(rawGroups)
	return g.orderGroups(merged), nil
}

func (g *Generic) modFileList(id int) ([]string, error) {
	dir := g.modDir(id)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, pathutil.RelativeTo(path, dir))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: walking mod %d: %v", domain.ErrPathIO, id, err)
	}
	return files, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// mergeIntersecting repeatedly merges any two groups sharing a member,
// until no further merge is possible.
func mergeIntersecting(groups [][]int) [][]int {
	changed := true
	for changed {
		changed = false
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				if intersects(groups[i], groups[j]) {
					groups[i] = unionInts(groups[i], groups[j])
					groups = append(groups[:j], groups[j+1:]...)
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
	}
	return groups
}

func intersects(a, b []int) bool {
	for _, x := range a {
		if containsInt(b, x) {
			return true
		}
	}
	return false
}

func unionInts(a, b []int) []int {
	out := append([]int{}, a...)
	for _, x := range b {
		if !containsInt(out, x) {
			out = append(out, x)
		}
	}
	return out
}

// orderGroups re-walks the load order to produce groups preserving
// loadorder-relative order within each group, with a final trailing group
// of mods that belong to none.
func (g *Generic) orderGroups(merged [][]int) []domain.ConflictGroup {
	memberOf := make(map[int]int)
	for gi, members := range merged {
		for _, id := range members {
			memberOf[id] = gi
		}
	}

	emitted := make([]bool, len(merged))
	var result []domain.ConflictGroup
	var trailing []int

	for _, groupIdx := range orderedGroupIndices(g.Loadorder, memberOf) {
		if emitted[groupIdx] {
			continue
		}
		emitted[groupIdx] = true
		var ordered []int
		for _, entry := range g.Loadorder {
			if gi, ok := memberOf[entry.ID]; ok && gi == groupIdx {
				ordered = append(ordered, entry.ID)
			}
		}
		result = append(result, domain.ConflictGroup{ModIDs: ordered})
	}

	for _, entry := range g.Loadorder {
		if _, ok := memberOf[entry.ID]; !ok {
			trailing = append(trailing, entry.ID)
		}
	}
	result = append(result, domain.ConflictGroup{ModIDs: trailing})
	return result
}

func orderedGroupIndices(loadorder []domain.LoadorderEntry, memberOf map[int]int) []int {
	var order []int
	seen := make(map[int]bool)
	for _, entry := range loadorder {
		gi, ok := memberOf[entry.ID]
		if !ok || seen[gi] {
			continue
		}
		seen[gi] = true
		order = append(order, gi)
	}
	return order
}

// SortByConflicts replaces the current load order with the concatenation of
// the computed conflict groups, respecting within-group order. This is
// labeled unsafe unless EnableUnsafeSorting is set: mods in different
// groups may still shadow each other on a filename collision with a
// non-conflicting sibling.
func (g *Generic) SortByConflicts() error {
	if !g.EnableUnsafeSorting {
		return fmt.Errorf("sort by conflicts is unsafe for %q: enable it explicitly", g.Name)
	}
	groups, err := g.ComputeConflictGroups()
	if err != nil {
		return err
	}
	enabled := make(map[int]bool, len(g.Loadorder))
	for _, e := range g.Loadorder {
		enabled[e.ID] = e.Enabled
	}
	var newOrder []domain.LoadorderEntry
	for _, grp := range groups {
		for _, id := range grp.ModIDs {
			newOrder = append(newOrder, domain.LoadorderEntry{ID: id, Enabled: enabled[id]})
		}
	}
	g.Loadorder = newOrder
	g.ConflictGroups = groups
	return nil
}
