// Package linker implements the three deploy mechanisms a deployer may use
// to place a staging file at a target path: hard link, symlink, or copy.
package linker

import "github.com/modstage/modstage/internal/domain"

// Linker deploys and undeploys a single staging file to a target path.
type Linker interface {
	Deploy(src, dst string) error
	Undeploy(dst string) error
	IsDeployed(dst string) (bool, error)
	// Equivalent reports whether dst already holds a link/copy equivalent
	// to src, per this linker's notion of equivalence. A missing dst is
	// never equivalent, resolving the open question around sfs::equivalent
	// throwing on a missing path.
	Equivalent(src, dst string) (bool, error)
	Method() domain.DeployMode
}

// New creates a linker for the given deploy mode.
func New(mode domain.DeployMode) Linker {
	switch mode {
	case domain.DeployHardlink:
		return NewHardlink()
	case domain.DeployCopy:
		return NewCopy()
	default:
		return NewSymlink()
	}
}
