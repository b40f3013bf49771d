// Package deployer implements the generic and case-matching deployers:
// load order composition via hard link / symlink / copy, conflict-group
// computation, backup/restore of displaced target files, and
// external-modification detection.
//
// Per the capability-object redesign (deep C++ inheritance chains become
// one struct per concrete deployer implementing a shared interface), this
// package has no base class: Generic and CaseMatching are independent
// structs, and CaseMatching holds a *Generic it delegates to after its own
// preprocessing pass.
package deployer

import "github.com/modstage/modstage/internal/domain"

// Deployer is the shared interface the staging-state controller dispatches
// through, regardless of concrete deployer kind.
type Deployer interface {
	Deploy() (map[int]int64, error)
	Undeploy() error
	Capabilities() domain.Capabilities
}

// GenericCapabilities is shared by Generic and CaseMatching.
func GenericCapabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsSorting:         true,
		SupportsReordering:      true,
		SupportsModConflicts:    true,
		SupportsFileConflicts:   true,
		SupportsFileBrowsing:    true,
		SupportsExpandableItems: true,
	}
}
