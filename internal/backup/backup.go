// Package backup implements the per-application, per-profile backup
// manager: named targets with numbered backup slots and one active slot.
package backup

import (
	"fmt"
	"os"

	"github.com/modstage/modstage/internal/domain"
)

const activeBackupSuffix = ".lmmbak"

func slotSuffix(n int) string {
	return fmt.Sprintf(".bak%d", n)
}

// Manager owns one profile's list of backup targets.
type Manager struct {
	Targets []domain.BackupTarget
}

// New constructs an empty Manager.
func New() *Manager {
	return &Manager{}
}

// AddTarget registers path under name, creating two backup slots, each a
// copy of path's current content; slot 0 is active.
func (m *Manager) AddTarget(path, name string) error {
	if err := copyFile(path, path+slotSuffix(0)); err != nil {
		return err
	}
	if err := copyFile(path, path+slotSuffix(1)); err != nil {
		return err
	}
	m.Targets = append(m.Targets, domain.BackupTarget{
		Path:    path,
		Name:    name,
		Backups: []int{0, 1},
		Active:  0,
	})
	return nil
}

func (m *Manager) find(name string) (int, error) {
	for i, t := range m.Targets {
		if t.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: backup target %q", domain.ErrNoSuchItem, name)
}

// AddBackup clones the target's currently active slot into a new slot.
func (m *Manager) AddBackup(name string) error {
	i, err := m.find(name)
	if err != nil {
		return err
	}
	t := &m.Targets[i]
	next := nextSlot(t.Backups)
	if err := copyFile(t.Path+slotSuffix(t.Active), t.Path+slotSuffix(next)); err != nil {
		return err
	}
	t.Backups = append(t.Backups, next)
	return nil
}

func nextSlot(existing []int) int {
	max := -1
	for _, n := range existing {
		if n > max {
			max = n
		}
	}
	return max + 1
}

// SetActiveBackup renames the currently-live file out to its slot and
// renames the target slot's file in, making it the new live file.
func (m *Manager) SetActiveBackup(name string, slot int) error {
	i, err := m.find(name)
	if err != nil {
		return err
	}
	t := &m.Targets[i]
	if !containsInt(t.Backups, slot) {
		return fmt.Errorf("%w: backup slot %d for %q", domain.ErrNoSuchItem, slot, name)
	}
	if slot == t.Active {
		return nil
	}
	if err := os.Rename(t.Path, t.Path+slotSuffix(t.Active)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(t.Path+slotSuffix(slot), t.Path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	t.Active = slot
	return nil
}

// OverwriteBackup copies the content of slot src over slot dst.
func (m *Manager) OverwriteBackup(name string, src, dst int) error {
	i, err := m.find(name)
	if err != nil {
		return err
	}
	t := &m.Targets[i]
	if !containsInt(t.Backups, src) || !containsInt(t.Backups, dst) {
		return fmt.Errorf("%w: backup slot for %q", domain.ErrNoSuchItem, name)
	}
	return copyFile(t.Path+slotSuffix(src), t.Path+slotSuffix(dst))
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", domain.ErrPathIO, src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, dst, err)
	}
	return nil
}
