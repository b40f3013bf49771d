// Package pathutil implements the path-level primitives shared by the
// installer and every deployer: case-insensitive resolution, character-map
// renaming, depth-stripping moves, and directory-merge copy/move.
package pathutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/modstage/modstage/internal/domain"
)

// Exists resolves candidate against base case-sensitively first; if that
// fails and caseInsensitive is set, it walks candidate segment by segment,
// at each step accepting an exact match or scanning the current directory
// for a single case-insensitive match. Returns the on-disk path actually
// found (same case as caseInsensitive=false) or ("", false).
func Exists(base, candidate string, caseInsensitive bool) (string, bool) {
	if _, err := os.Stat(filepath.Join(base, candidate)); err == nil {
		return candidate, true
	}
	if !caseInsensitive {
		return "", false
	}
	if base != "" {
		if _, err := os.Stat(base); err != nil {
			return "", false
		}
	}

	target := strings.TrimSuffix(candidate, "/")
	segments := strings.Split(filepath.ToSlash(target), "/")

	var resolved string
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(base, resolved, seg)); err == nil {
			resolved = filepath.Join(resolved, seg)
			continue
		}
		entries, err := os.ReadDir(filepath.Join(base, resolved))
		if err != nil {
			return "", false
		}
		lower := strings.ToLower(seg)
		found := false
		for _, e := range entries {
			if strings.ToLower(e.Name()) == lower {
				resolved = filepath.Join(resolved, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return resolved, true
}

// RelativeTo returns target's path relative to source, or "" if they are
// equal. Both must share source as a literal path prefix.
func RelativeTo(target, source string) string {
	if target == source {
		return ""
	}
	rel, err := filepath.Rel(source, target)
	if err != nil {
		return target
	}
	return rel
}

// DirectoryIsEmpty reports whether dir contains nothing but directories and
// the given ignored file names.
func DirectoryIsEmpty(dir string, ignored ...string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	empty := true
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		for _, ig := range ignored {
			if ig == name {
				return nil
			}
		}
		empty = false
		return nil
	})
	return empty
}

// RemoveComponents splits path into its first n components (head) and the
// remainder (tail).
func RemoveComponents(path string, n int) (head, tail string) {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		if i < n {
			head = filepath.Join(head, seg)
		} else {
			tail = filepath.Join(tail, seg)
		}
	}
	return head, tail
}

// CopyOrMove moves source to destination via a metadata-preserving rename,
// falling back to recursive copy+remove when rename fails (e.g. cross
// device). When move is false it always copies.
func CopyOrMove(source, destination string, move bool) error {
	if move {
		if err := os.Rename(source, destination); err == nil {
			return nil
		}
		if err := copyTree(source, destination); err != nil {
			return fmt.Errorf("%w: copy %s to %s: %v", domain.ErrPathIO, source, destination, err)
		}
		if err := os.RemoveAll(source); err != nil {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrPathIO, source, err)
		}
		return nil
	}
	if err := copyTree(source, destination); err != nil {
		return fmt.Errorf("%w: copy %s to %s: %v", domain.ErrPathIO, source, destination, err)
	}
	return nil
}

func copyTree(source, destination string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		link, err := os.Readlink(source)
		if err != nil {
			return err
		}
		return os.Symlink(link, destination)
	}
	if info.IsDir() {
		if err := os.MkdirAll(destination, info.Mode().Perm()); err != nil {
			return err
		}
		entries, err := os.ReadDir(source)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := copyTree(filepath.Join(source, e.Name()), filepath.Join(destination, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return copyFile(source, destination, info)
}

func copyFile(source, destination string, info os.FileInfo) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// MoveToDirectory merges source's contents into destination, directory by
// directory: an existing directory entry is recursed into, an existing file
// entry is replaced, and an absent entry is moved or copied whole.
func MoveToDirectory(source, destination string, move bool) error {
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrPathIO, destination, err)
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return fmt.Errorf("%w: readdir %s: %v", domain.ErrPathIO, source, err)
	}
	for _, e := range entries {
		src := filepath.Join(source, e.Name())
		dst := filepath.Join(destination, e.Name())
		if dstInfo, err := os.Stat(dst); err == nil {
			if dstInfo.IsDir() {
				if err := MoveToDirectory(src, dst, move); err != nil {
					return err
				}
				continue
			}
			if err := os.Remove(dst); err != nil {
				return fmt.Errorf("%w: remove %s: %v", domain.ErrPathIO, dst, err)
			}
		}
		if err := CopyOrMove(src, dst, move); err != nil {
			return err
		}
	}
	if move {
		_ = os.RemoveAll(source)
	}
	return nil
}

// RenameWithMap walks source recursively; every file's relative path is
// transformed character by character via convert and renamed into
// destination. Directories whose transformed name differs from the
// original are removed afterward once empty. Fails with ErrDuplicatePath if
// a renamed target would collide with an existing distinct file.
func RenameWithMap(source, destination string, convert func(rune) rune) error {
	var oldDirs []string
	err := filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == source {
			return err
		}
		rel := RelativeTo(path, source)
		renamed := renameComponents(rel, convert)
		if d.IsDir() {
			if renamed != rel {
				oldDirs = append(oldDirs, path)
			}
			return nil
		}
		dst := filepath.Join(destination, renamed)
		if _, err := os.Stat(dst); err == nil {
			if abs, _ := filepath.Abs(path); abs != dst {
				return fmt.Errorf("%w: %s", domain.ErrDuplicatePath, renamed)
			}
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrPathIO, filepath.Dir(dst), err)
		}
		if err := os.Rename(path, dst); err != nil {
			return fmt.Errorf("%w: rename %s: %v", domain.ErrPathIO, path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if source == destination {
		sort.Sort(sort.Reverse(sort.StringSlice(oldDirs)))
		for _, dir := range oldDirs {
			if _, err := os.Stat(dir); err == nil {
				_ = os.RemoveAll(dir)
			}
		}
	} else {
		_ = os.RemoveAll(source)
	}
	return nil
}

func renameComponents(rel string, convert func(rune) rune) string {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = strings.Map(convert, seg)
	}
	return filepath.Join(segments...)
}

// MoveWithDepth strips the first depth path components from every file
// under source and moves it to destination. Two distinct sources mapping to
// the same stripped destination is an ErrDuplicatePath.
func MoveWithDepth(source, destination string, depth int) error {
	type move struct{ src, dst string }
	var moves []move
	seen := make(map[string]string)

	err := filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil || path == source {
			return err
		}
		rel := RelativeTo(path, source)
		_, short := RemoveComponents(rel, depth)
		if short == "" {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if prior, ok := seen[short]; ok && prior != path {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePath, short)
		}
		seen[short] = path
		moves = append(moves, move{src: path, dst: filepath.Join(destination, short)})
		return nil
	})
	if err != nil {
		return err
	}

	for _, mv := range moves {
		if err := os.MkdirAll(filepath.Dir(mv.dst), 0o755); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", domain.ErrPathIO, filepath.Dir(mv.dst), err)
		}
		if _, err := os.Stat(mv.dst); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicatePath, mv.dst)
		}
		if err := os.Rename(mv.src, mv.dst); err != nil {
			if err := copyTree(mv.src, mv.dst); err != nil {
				return fmt.Errorf("%w: move %s: %v", domain.ErrPathIO, mv.src, err)
			}
			_ = os.RemoveAll(mv.src)
		}
	}
	return os.RemoveAll(source)
}
