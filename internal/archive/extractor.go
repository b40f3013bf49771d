// Package archive implements the streaming archive extractor: format
// sniffing, two-pass progress-tracked extraction, a RAR-specific fallback,
// and post-extraction permission normalization.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/progress"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Extractor streams archives to disk, reporting progress in bytes.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract extracts source into destination. If source is a directory it is
// recursively copied. If source is an archive it is streamed in two passes:
// one to sum entry sizes (driving node's total), one to write entries
// (driving node's advance). node may be nil.
func (e *Extractor) Extract(ctx context.Context, source, destination string, node *progress.Node) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
	}
	if info.IsDir() {
		return copyDir(source, destination)
	}

	if err := e.extractArchive(ctx, source, destination, node); err != nil {
		if strings.EqualFold(filepath.Ext(source), ".rar") {
			_ = os.RemoveAll(destination)
			if rerr := e.extractRarFallback(ctx, source, destination); rerr == nil {
				return normalizePermissions(destination)
			}
		}
		return err
	}
	return normalizePermissions(destination)
}

func (e *Extractor) extractArchive(ctx context.Context, source, destination string, node *progress.Node) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
	}
	defer f.Close()

	format, stream, err := archives.Identify(ctx, source, f)
	if err != nil {
		return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("%w: extraction failed: format does not support extraction", domain.ErrArchive)
	}

	if err := os.MkdirAll(destination, dirPerm); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}

	if node != nil {
		var total int64
		if err := extractor.Extract(ctx, stream, func(_ context.Context, fi archives.FileInfo) error {
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		}); err != nil {
			return fmt.Errorf("%w: extraction failed: %v", domain.ErrArchive, err)
		}
		node.SetTotal(float64(total))

		f2, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
		}
		defer f2.Close()
		_, stream2, err := archives.Identify(ctx, source, f2)
		if err != nil {
			return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
		}
		stream = stream2
	}

	err = extractor.Extract(ctx, stream, func(_ context.Context, fi archives.FileInfo) error {
		target := filepath.Join(destination, fi.NameInArchive)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destination)) {
			return fmt.Errorf("path traversal in archive entry: %s", fi.NameInArchive)
		}
		if fi.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return err
		}
		rc, err := fi.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		n, err := io.Copy(out, rc)
		if err != nil {
			return err
		}
		if node != nil {
			_ = node.Advance(float64(n))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: extraction failed: %v", domain.ErrArchive, err)
	}
	return nil
}

// extractRarFallback forces the rardecode-backed Rar format handler,
// bypassing format sniffing. mholt/archives pulls in
// github.com/nwaples/rardecode/v2 for this transitively.
func (e *Extractor) extractRarFallback(ctx context.Context, source, destination string) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("%w: could not open %s: %v", domain.ErrArchive, source, err)
	}
	defer f.Close()

	rar := archives.Rar{}
	err = rar.Extract(ctx, f, func(_ context.Context, fi archives.FileInfo) error {
		target := filepath.Join(destination, fi.NameInArchive)
		if fi.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			return err
		}
		rc, err := fi.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, rc)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: extraction failed: %v", domain.ErrArchive, err)
	}
	return nil
}

// CanExtract reports whether filename's extension is a recognized archive
// format.
func (e *Extractor) CanExtract(filename string) bool {
	return e.DetectFormat(filename) != ""
}

// DetectFormat returns a short format tag derived from filename's
// extension, or "" if unrecognized.
func (e *Extractor) DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return "zip"
	case ".7z":
		return "7z"
	case ".rar":
		return "rar"
	case ".tar":
		return "tar"
	case ".gz", ".tgz":
		return "gzip"
	case ".bz2":
		return "bzip2"
	case ".xz":
		return "xz"
	case ".zst":
		return "zstd"
	default:
		return ""
	}
}

func copyDir(source, destination string) error {
	return filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, rel)
		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}

func normalizePermissions(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, dirPerm)
		}
		return os.Chmod(path, filePerm)
	})
}
