package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modstage/modstage/internal/domain"
)

// SymlinkLinker deploys via os.Symlink.
type SymlinkLinker struct{}

// NewSymlink creates a new symlink linker.
func NewSymlink() *SymlinkLinker {
	return &SymlinkLinker{}
}

// Deploy creates a symlink from src to dst.
func (l *SymlinkLinker) Deploy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: creating destination dir: %v", domain.ErrPathIO, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing existing file: %v", domain.ErrPathIO, err)
	}
	if err := os.Symlink(src, dst); err != nil {
		return fmt.Errorf("%w: creating symlink: %v", domain.ErrPathIO, err)
	}
	return nil
}

// Undeploy removes the symlink at dst.
func (l *SymlinkLinker) Undeploy(dst string) error {
	info, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: checking file: %v", domain.ErrPathIO, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%w: not a symlink: %s", domain.ErrPathIO, dst)
	}
	if err := os.Remove(dst); err != nil {
		return fmt.Errorf("%w: removing symlink: %v", domain.ErrPathIO, err)
	}
	return nil
}

// IsDeployed reports whether dst is a symlink.
func (l *SymlinkLinker) IsDeployed(dst string) (bool, error) {
	info, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// Equivalent reports whether dst is a symlink pointing at src. A missing
// dst is not equivalent.
func (l *SymlinkLinker) Equivalent(src, dst string) (bool, error) {
	info, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}
	target, err := os.Readlink(dst)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return target == src, nil
}

// Method returns the deploy mode this linker implements.
func (l *SymlinkLinker) Method() domain.DeployMode {
	return domain.DeploySymlink
}
