// Package reversedeployer implements the inverse deploy flow: files
// already present in the target directory, and not owned by any other
// deployer, are adopted into a managed-files set, moved into this
// deployer's own source directory, and linked back at deploy time.
package reversedeployer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/linker"
	"github.com/modstage/modstage/internal/pathutil"
)

const (
	ignoreListFileName    = ".revdepl-ignored_files.json"
	managedFilesFileName  = ".revdepl-managed_files.json"
	deployedLoadorderName = ".revdepl-deployed_files.json"
)

// ReverseDeployer adopts unmanaged target-directory files into Source and
// links them back out at Deploy time.
type ReverseDeployer struct {
	Name   string
	Source string
	Target string
	Mode   domain.DeployMode
	Log    func(string)

	SeparateDirs bool

	// ManagedFiles[profile][relpath] = enabled
	ManagedFiles []map[string]bool
	Ignored      map[string]bool

	CurrentProfile  int
	DeployedProfile int // -1 if nothing deployed
	DeployedFiles   []fileEntry

	filesObservedInTarget int

	linker linker.Linker
}

type fileEntry struct {
	Path    string
	Enabled bool
}

// New constructs a ReverseDeployer with a single empty profile.
func New(name, source, target string, mode domain.DeployMode) *ReverseDeployer {
	return &ReverseDeployer{
		Name:            name,
		Source:          source,
		Target:          target,
		Mode:            mode,
		ManagedFiles:    []map[string]bool{{}},
		Ignored:         map[string]bool{},
		DeployedProfile: -1,
		linker:          linker.New(mode),
	}
}

// Load reads persisted managed-files, ignore-list, and deployed-loadorder
// state from disk, leaving defaults in place for any file that is absent.
func (r *ReverseDeployer) Load() error {
	if err := r.readManagedFiles(); err != nil {
		return err
	}
	if err := r.readIgnoredFiles(); err != nil {
		return err
	}
	return r.readDeployedLoadorder()
}

func (r *ReverseDeployer) readDeployedLoadorder() error {
	data, err := os.ReadFile(filepath.Join(r.Source, deployedLoadorderName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	var p persistedDeployed
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrParse, deployedLoadorderName, err)
	}
	r.DeployedProfile = p.Profile
	r.DeployedFiles = p.Files
	return nil
}

func (r *ReverseDeployer) log(format string, args ...any) {
	if r.Log != nil {
		r.Log(fmt.Sprintf(format, args...))
	}
}

func (r *ReverseDeployer) sourcePath(relpath string, profile int) string {
	if r.SeparateDirs {
		return filepath.Join(r.Source, strconv.Itoa(profile), relpath)
	}
	return filepath.Join(r.Source, relpath)
}

// UpdateManagedFiles walks Target, adopting every file not covered by
// another deployer's manifest and not in the ignore set. otherManifests is
// the set of relative paths (from Target) owned by other deployers'
// .lmmfiles, supplied by the caller (the staging controller knows the
// full deployer topology this package does not).
func (r *ReverseDeployer) UpdateManagedFiles(otherManifests map[string]bool, write bool) error {
	current := r.ManagedFiles[r.CurrentProfile]
	seen := make(map[string]bool)
	count := 0

	err := filepath.WalkDir(r.Target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == r.Target {
			return nil
		}
		rel := pathutil.RelativeTo(path, r.Target)
		base := filepath.Base(path)
		if base == ".lmmbak" || base == manifestNameConst || base == ignoreListFileName ||
			r.isOwnManagedFile(base) {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		count++
		if otherManifests[rel] || r.Ignored[rel] {
			delete(current, rel)
			return nil
		}
		current[rel] = true
		seen[rel] = true
		if !r.SeparateDirs {
			for _, m := range r.ManagedFiles {
				m[rel] = true
			}
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: walking %s: %v", domain.ErrPathIO, r.Target, err)
	}
	r.filesObservedInTarget = count

	for rel := range current {
		if !seen[rel] {
			delete(current, rel)
		}
	}

	if write {
		return r.writeManagedFiles()
	}
	return nil
}

func (r *ReverseDeployer) isOwnManagedFile(base string) bool {
	return base == managedFilesFileName || base == deployedLoadorderName
}

const manifestNameConst = ".lmmfiles"

type persistedManaged struct {
	Profiles []map[string]bool `json:"profiles"`
}

func (r *ReverseDeployer) writeManagedFiles() error {
	data, err := json.MarshalIndent(persistedManaged{Profiles: r.ManagedFiles}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return atomicWrite(filepath.Join(r.Source, managedFilesFileName), data)
}

func (r *ReverseDeployer) readManagedFiles() error {
	data, err := os.ReadFile(filepath.Join(r.Source, managedFilesFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	var p persistedManaged
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrParse, managedFilesFileName, err)
	}
	r.ManagedFiles = p.Profiles
	return nil
}

func (r *ReverseDeployer) writeIgnoredFiles() error {
	paths := make([]string, 0, len(r.Ignored))
	for p := range r.Ignored {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return atomicWrite(filepath.Join(r.Target, ignoreListFileName), data)
}

func (r *ReverseDeployer) readIgnoredFiles() error {
	data, err := os.ReadFile(filepath.Join(r.Target, ignoreListFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrParse, ignoreListFileName, err)
	}
	r.Ignored = make(map[string]bool, len(paths))
	for _, p := range paths {
		r.Ignored[p] = true
	}
	return nil
}

func atomicWrite(dst string, data []byte) error {
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return nil
}

// MoveFromTargetToSource moves every managed, still-present, not-yet
// equivalent file from Target into Source. A rename failure for one file
// switches the rest of this run to copy+remove.
func (r *ReverseDeployer) MoveFromTargetToSource() error {
	useCopy := false
	for rel := range r.ManagedFiles[r.CurrentProfile] {
		target := filepath.Join(r.Target, rel)
		source := r.sourcePath(rel, r.CurrentProfile)

		if _, err := os.Stat(target); err != nil {
			continue
		}
		equivalent, err := r.linker.Equivalent(source, target)
		if err != nil {
			return err
		}
		if equivalent {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
		if !useCopy {
			if err := os.Rename(target, source); err == nil {
				continue
			}
			useCopy = true
		}
		if err := pathutil.CopyOrMove(target, source, true); err != nil {
			return err
		}
	}
	return nil
}

// currentLoadorder builds the current load order from
// ManagedFiles[CurrentProfile], in deterministic (sorted) path order.
func (r *ReverseDeployer) currentLoadorder() []fileEntry {
	m := r.ManagedFiles[r.CurrentProfile]
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	entries := make([]fileEntry, len(paths))
	for i, p := range paths {
		entries[i] = fileEntry{Path: p, Enabled: m[p]}
	}
	return entries
}

// Deploy links (or copies) every enabled managed file from Source to
// Target, undeploying any other currently-deployed profile first.
func (r *ReverseDeployer) Deploy() (map[int]int64, error) {
	if r.DeployedProfile >= 0 && r.DeployedProfile != r.CurrentProfile {
		if err := r.Undeploy(); err != nil {
			return nil, err
		}
	}
	entries := r.currentLoadorder()
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		src := r.sourcePath(e.Path, r.CurrentProfile)
		dst := filepath.Join(r.Target, e.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
		equivalent, err := r.linker.Equivalent(src, dst)
		if err != nil {
			return nil, err
		}
		if equivalent {
			continue
		}
		if _, err := os.Lstat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
		}
		if err := r.linker.Deploy(src, dst); err != nil {
			return nil, err
		}
	}
	r.DeployedFiles = entries
	r.DeployedProfile = r.CurrentProfile
	if err := r.writeDeployedLoadorder(); err != nil {
		return nil, err
	}
	return map[int]int64{}, nil
}

// Undeploy removes every file listed in the last deployed loadorder.
func (r *ReverseDeployer) Undeploy() error {
	for _, e := range r.DeployedFiles {
		dst := filepath.Join(r.Target, e.Path)
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}
	r.DeployedFiles = nil
	r.DeployedProfile = -1
	return r.writeDeployedLoadorder()
}

type persistedDeployed struct {
	Profile int         `json:"profile"`
	Files   []fileEntry `json:"files"`
}

func (r *ReverseDeployer) writeDeployedLoadorder() error {
	data, err := json.MarshalIndent(persistedDeployed{Profile: r.DeployedProfile, Files: r.DeployedFiles}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return atomicWrite(filepath.Join(r.Source, deployedLoadorderName), data)
}

// UpdateIgnoredFiles treats the current (non-other-deployer-owned) target
// contents as the new ignore-list baseline.
func (r *ReverseDeployer) UpdateIgnoredFiles(otherManifests map[string]bool, write bool) error {
	r.Ignored = map[string]bool{}
	err := filepath.WalkDir(r.Target, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || path == r.Target {
			return err
		}
		rel := pathutil.RelativeTo(path, r.Target)
		base := filepath.Base(path)
		if base == ".lmmbak" || base == manifestNameConst || base == ignoreListFileName {
			return nil
		}
		if otherManifests[rel] {
			return nil
		}
		r.Ignored[rel] = true
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if write {
		return r.writeIgnoredFiles()
	}
	return nil
}

// DeleteIgnoredFiles empties the ignore set and adopts every
// formerly-ignored file as managed.
func (r *ReverseDeployer) DeleteIgnoredFiles() error {
	current := r.ManagedFiles[r.CurrentProfile]
	for rel := range r.Ignored {
		current[rel] = true
		if !r.SeparateDirs {
			for _, m := range r.ManagedFiles {
				m[rel] = true
			}
		}
	}
	r.Ignored = map[string]bool{}
	if err := r.writeIgnoredFiles(); err != nil {
		return err
	}
	return r.writeManagedFiles()
}

// AddModToIgnoreList moves one managed entry into the ignore set and
// deletes the source-side file.
func (r *ReverseDeployer) AddModToIgnoreList(relpath string) error {
	delete(r.ManagedFiles[r.CurrentProfile], relpath)
	if !r.SeparateDirs {
		for _, m := range r.ManagedFiles {
			delete(m, relpath)
		}
	}
	r.Ignored[relpath] = true
	src := r.sourcePath(relpath, r.CurrentProfile)
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := r.writeIgnoredFiles(); err != nil {
		return err
	}
	return r.writeManagedFiles()
}

// EnableSeparateDirs turns per-profile directory separation on, moving the
// current profile's files into <source>/<profile>/ and creating empty
// directories for the others; or off, hoisting the current profile's
// files to <source>/ and deleting the other profiles' trees.
func (r *ReverseDeployer) EnableSeparateDirs(enabled bool) error {
	if enabled == r.SeparateDirs {
		return nil
	}
	if enabled {
		for i := range r.ManagedFiles {
			dir := filepath.Join(r.Source, strconv.Itoa(i))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
		}
		for rel := range r.ManagedFiles[r.CurrentProfile] {
			from := filepath.Join(r.Source, rel)
			to := filepath.Join(r.Source, strconv.Itoa(r.CurrentProfile), rel)
			if err := pathutil.CopyOrMove(from, to, true); err != nil {
				return err
			}
		}
	} else {
		for i := range r.ManagedFiles {
			if i == r.CurrentProfile {
				continue
			}
			if err := os.RemoveAll(filepath.Join(r.Source, strconv.Itoa(i))); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
		}
		for rel := range r.ManagedFiles[r.CurrentProfile] {
			from := filepath.Join(r.Source, strconv.Itoa(r.CurrentProfile), rel)
			to := filepath.Join(r.Source, rel)
			if err := pathutil.CopyOrMove(from, to, true); err != nil {
				return err
			}
		}
		if err := os.RemoveAll(filepath.Join(r.Source, strconv.Itoa(r.CurrentProfile))); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}
	r.SeparateDirs = enabled
	return nil
}

// ConflictGroups always reports the single non-conflicting group.
func (r *ReverseDeployer) ConflictGroups() []domain.ConflictGroup {
	entries := r.currentLoadorder()
	ids := make([]int, len(entries))
	for i := range entries {
		ids[i] = i
	}
	return []domain.ConflictGroup{{ModIDs: ids}}
}

// Capabilities reports the reverse deployer's feature set: it supports
// neither sorting, reordering, nor conflicts, but does support file
// browsing, and is autonomous like the plugin deployer family.
func (r *ReverseDeployer) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsFileBrowsing:   true,
		IDsAreSourceReferences: true,
		IsAutonomous:           true,
	}
}
