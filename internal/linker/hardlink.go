package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/modstage/modstage/internal/domain"
)

// HardlinkLinker deploys via os.Link.
type HardlinkLinker struct{}

// NewHardlink creates a new hardlink linker.
func NewHardlink() *HardlinkLinker {
	return &HardlinkLinker{}
}

// Deploy creates a hard link from src to dst.
func (l *HardlinkLinker) Deploy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: creating destination dir: %v", domain.ErrPathIO, err)
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing existing file: %v", domain.ErrPathIO, err)
	}
	if err := os.Link(src, dst); err != nil {
		return fmt.Errorf("%w: creating hardlink: %v", domain.ErrPathIO, err)
	}
	return nil
}

// Undeploy removes the file at dst.
func (l *HardlinkLinker) Undeploy(dst string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing file: %v", domain.ErrPathIO, err)
	}
	return nil
}

// IsDeployed reports whether dst exists; hard links are indistinguishable
// from regular files.
func (l *HardlinkLinker) IsDeployed(dst string) (bool, error) {
	_, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Equivalent reports whether dst and src share the same inode on the same
// device. A missing dst is not equivalent, never an error.
func (l *HardlinkLinker) Equivalent(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return os.SameFile(srcInfo, dstInfo), nil
}

// Method returns the deploy mode this linker implements.
func (l *HardlinkLinker) Method() domain.DeployMode {
	return domain.DeployHardlink
}
