package domain

import "time"

// Mod is a durably-installed, numbered payload. Its payload lives at
// staging/<ID>/, an opaque tree owned by the controller. ID also serves as
// the relative-path component under the staging root.
type Mod struct {
	ID                 int
	Name               string
	Version            string
	InstallTime        time.Time
	RemoteUpdateTime   time.Time
	SuppressNotifyTime time.Time
	LocalSource        string
	RemoteSource       string
	RemoteModID        string
	RemoteFileID       string
	RemoteType         string
	SizeOnDisk         int64
	Installer          string
}

// LoadorderEntry is one (mod-id, enabled) pair in a deployer's per-profile
// load order. Position in the containing slice is deploy priority: later
// entries override earlier ones on a relative-path collision.
type LoadorderEntry struct {
	ID      int
	Enabled bool
}

// ConflictGroup is one equivalence class of the current loadorder: two mods
// land in the same group iff some relative file path is present in both.
// The trailing group of any computation holds mods that conflict with none.
type ConflictGroup struct {
	ModIDs []int
}
