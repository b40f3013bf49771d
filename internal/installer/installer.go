// Package installer orchestrates archive extraction into a staging mod
// directory, applying case/flatten options or dispatching a file-manifest
// install.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/modstage/modstage/internal/archive"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/pathutil"
	"github.com/modstage/modstage/internal/progress"
)

// Flag is an installation option bit. OptionGroups records which flags are
// mutually exclusive.
type Flag int

const (
	PreserveCase Flag = 1 << iota
	LowerCase
	UpperCase
	PreserveDirectories
	SingleDirectory
)

// OptionGroups: every slice is a mutually-exclusive set of flags.
var OptionGroups = [][]Flag{
	{PreserveCase, LowerCase, UpperCase},
	{PreserveDirectories, SingleDirectory},
}

// Type selects the installer's second phase: a plain extract-and-place, or
// a file-manifest install driven by an explicit (src,dst) pair list (the
// shape a FOMOD-style installer produces).
type Type string

const (
	Simple       Type = "simple"
	FileManifest Type = "file_manifest"
)

// FileMapping is one (source-in-archive, destination-in-target) pair for a
// FileManifest install.
type FileMapping struct {
	Source      string
	Destination string
}

const (
	extractTmpDirPrefix = "lmm_tmp_extract"
	moveExtension       = ".tmpmove"
)

// Installer extracts archives into staging mod directories.
type Installer struct {
	extractor *archive.Extractor
}

// New creates an Installer.
func New() *Installer {
	return &Installer{extractor: archive.New()}
}

// Install extracts source to a temp sibling of destination, applies the
// requested options, and renames the result into destination. It returns
// the total byte size of the installed subtree.
func (i *Installer) Install(
	ctx context.Context,
	source, destination string,
	options Flag,
	instType Type,
	rootLevel int,
	mappings []FileMapping,
	node *progress.Node,
) (int64, error) {
	tmp, err := freshTempDir(filepath.Dir(destination))
	if err != nil {
		return 0, err
	}
	if err := i.extractor.Extract(ctx, source, tmp, node); err != nil {
		_ = os.RemoveAll(tmp)
		return 0, err
	}

	switch instType {
	case FileManifest:
		if err := installFileManifest(tmp, destination, mappings); err != nil {
			_ = os.RemoveAll(tmp)
			_ = os.RemoveAll(destination)
			return 0, err
		}
	default:
		if err := installSimple(tmp, destination, options, rootLevel); err != nil {
			_ = os.RemoveAll(tmp)
			_ = os.RemoveAll(destination)
			return 0, err
		}
	}

	return dirSize(destination)
}

func installSimple(tmp, destination string, options Flag, rootLevel int) error {
	switch {
	case options&LowerCase != 0:
		if err := pathutil.RenameWithMap(tmp, tmp, unicode.ToLower); err != nil {
			return err
		}
	case options&UpperCase != 0:
		if err := pathutil.RenameWithMap(tmp, tmp, unicode.ToUpper); err != nil {
			return err
		}
	}

	if options&SingleDirectory != 0 {
		if err := flatten(tmp); err != nil {
			return err
		}
	}

	if rootLevel > 0 {
		flat := tmp + "-depth"
		if err := pathutil.MoveWithDepth(tmp, flat, rootLevel); err != nil {
			return err
		}
		tmp = flat
	}

	if err := os.Rename(tmp, destination); err != nil {
		return fmt.Errorf("%w: installing to %s: %v", domain.ErrPathIO, destination, err)
	}
	return nil
}

// flatten pulls every regular file to tmp's root, then removes the emptied
// sub-directories.
func flatten(tmp string) error {
	var dirs []string
	err := filepath.WalkDir(tmp, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == tmp || d.IsDir() {
			if d != nil && d.IsDir() && path != tmp {
				dirs = append(dirs, path)
			}
			return err
		}
		dst := filepath.Join(tmp, filepath.Base(path))
		if path == dst {
			return nil
		}
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePath, filepath.Base(path))
		}
		return os.Rename(path, dst)
	})
	if err != nil {
		return err
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.RemoveAll(dirs[i])
	}
	return nil
}

// installFileManifest places each (src,dst) pair in order; whether an entry
// moves or copies depends on whether a pair appearing later has the same
// source or a source inside it (shared source implies copy).
func installFileManifest(tmp, destination string, mappings []FileMapping) error {
	for idx, m := range mappings {
		src := filepath.Join(tmp, m.Source)
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("%w: missing source %s in archive", domain.ErrPathIO, m.Source)
		}
		dst := filepath.Join(destination, m.Destination)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}

		move := !sharesLaterSource(mappings, idx)
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
		if info.IsDir() {
			if err := pathutil.MoveToDirectory(src, dst, move); err != nil {
				return err
			}
			continue
		}
		if _, err := os.Stat(dst); err == nil {
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
		}
		if err := pathutil.CopyOrMove(src, dst, move); err != nil {
			return err
		}
	}
	return nil
}

func sharesLaterSource(mappings []FileMapping, idx int) bool {
	cur := mappings[idx].Source
	for j := idx + 1; j < len(mappings); j++ {
		if mappings[j].Source == cur || strings.HasPrefix(mappings[j].Source, cur+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// DetectSignature scans root for fomod/ModuleConfig.xml at increasing root
// levels and returns (rootLevel, headPath, Type). The default when nothing
// matches is (0, "", Simple).
func DetectSignature(root string) (int, string, Type) {
	level := 0
	cur := root
	for {
		candidate := filepath.Join(cur, "fomod", "ModuleConfig.xml")
		if _, err := os.Stat(candidate); err == nil {
			head, _ := filepath.Rel(root, cur)
			return level, head, FileManifest
		}
		entries, err := os.ReadDir(cur)
		if err != nil || len(entries) != 1 || !entries[0].IsDir() {
			break
		}
		cur = filepath.Join(cur, entries[0].Name())
		level++
	}
	return 0, "", Simple
}

// CleanupFailed removes any leftover temp-install directories under
// stagingDir for the given failed mod-id: tmp_replace_* dirs, move-extension
// dirs, lmm_tmp_extract<k> dirs, and the mod's own staging subtree.
func CleanupFailed(stagingDir string, modID int) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "tmp_replace_") ||
			strings.HasSuffix(name, moveExtension) ||
			strings.HasPrefix(name, extractTmpDirPrefix) {
			_ = os.RemoveAll(filepath.Join(stagingDir, name))
		}
	}
	_ = os.RemoveAll(filepath.Join(stagingDir, fmt.Sprint(modID)))
}

func freshTempDir(parent string) (string, error) {
	for k := 0; ; k++ {
		candidate := filepath.Join(parent, fmt.Sprintf("%s%d", extractTmpDirPrefix, k))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.MkdirAll(candidate, 0o755); err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrPathIO, err)
			}
			return candidate, nil
		}
	}
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
