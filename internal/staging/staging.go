// Package staging implements the per-application staging-state controller:
// the central object binding installed mods, deployers, profiles, groups,
// tags, and the backup manager, persisted as one JSON graph per staging
// directory.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/modstage/modstage/internal/backup"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/installer"
)

const configFileName = "lmm.json"

// Deployer is the shape common to every concrete deployer package
// (internal/deployer, internal/plugindeployer, internal/reversedeployer):
// the controller dispatches through this interface without knowing which
// concrete type backs a given DeployerRecord.
type Deployer interface {
	Deploy() (map[int]int64, error)
	Undeploy() error
	Capabilities() domain.Capabilities
}

// ExternalChangeDetector is implemented by deployers that can report
// target-side modifications (Generic; reverse and plugin deployers do not).
type ExternalChangeDetector interface {
	ExternalChanges() ([]string, error)
}

// loadorderSetter is implemented by deployers whose Deploy() reads a live,
// flat load order field rather than deriving it per call (Generic and
// CaseMatching); the controller pushes the active profile's persisted
// order into it whenever that order changes or the profile switches.
type loadorderSetter interface {
	SetLoadorder([]domain.LoadorderEntry)
}

// deployerBinding pairs a deployer's persisted record with its live
// implementation.
type deployerBinding struct {
	Record domain.DeployerRecord
	Impl   Deployer
}

// Controller is the central per-application object.
type Controller struct {
	StagingRoot string

	Name       string
	Command    string
	IconPath   string
	SteamAppID string

	Mods       map[int]*domain.Mod
	deployers  []*deployerBinding
	Profiles   []domain.Profile
	current    string
	Groups     []domain.Group
	ManualTags []domain.Tag
	AutoTags   []domain.Tag
	Tools      []string

	Backups map[string]*backup.Manager // keyed by profile name

	installer *installer.Installer

	// Mu serializes operations against this controller, the way
	// appconfig's registryMu guards concurrent CLI invocations.
	// Callers running an operation on a background goroutine (install,
	// deploy, uninstall) must hold it for that operation's full
	// duration; the controller's own methods are not reentrant-safe
	// and never take it themselves.
	Mu sync.Mutex
}

// New constructs a Controller with a single default profile.
func New(stagingRoot string, inst *installer.Installer) *Controller {
	return &Controller{
		StagingRoot: stagingRoot,
		Mods:        map[int]*domain.Mod{},
		Profiles:    []domain.Profile{{Name: "Default"}},
		current:     "Default",
		Backups:     map[string]*backup.Manager{"Default": backup.New()},
		installer:   inst,
	}
}

// CurrentProfile reports the active profile name.
func (c *Controller) CurrentProfile() string { return c.current }

// DeployerNames returns the registered deployer names in declared order.
func (c *Controller) DeployerNames() []string {
	names := make([]string, len(c.deployers))
	for i, b := range c.deployers {
		names[i] = b.Record.Name
	}
	return names
}

// DeployerRecords returns the persisted record for each registered
// deployer, in declared order.
func (c *Controller) DeployerRecords() []domain.DeployerRecord {
	records := make([]domain.DeployerRecord, len(c.deployers))
	for i, b := range c.deployers {
		records[i] = b.Record
	}
	return records
}

// AddDeployer registers a deployer binding under the controller.
func (c *Controller) AddDeployer(record domain.DeployerRecord, impl Deployer) {
	b := &deployerBinding{Record: record, Impl: impl}
	c.deployers = append(c.deployers, b)
	c.syncLoadorder(b)
}

func (c *Controller) modDir(id int) string {
	return filepath.Join(c.StagingRoot, fmt.Sprint(id))
}

// smallestFreeID returns the smallest non-negative id that is both unused
// in Mods and has no colliding staging subdirectory.
func (c *Controller) smallestFreeID() int {
	for id := 0; ; id++ {
		if _, used := c.Mods[id]; used {
			continue
		}
		if _, err := os.Stat(c.modDir(id)); err == nil {
			continue
		}
		return id
	}
}

// InstallOptions bundles the installer call's parameters for installMod.
type InstallOptions struct {
	Source   string
	Name     string
	Version  string
	Flags    installer.Flag
	Type     installer.Type
	Mappings []installer.FileMapping
	GroupID  int // -1 for none
	Deploy   []string
}

// InstallMod allocates an id, invokes the installer, and records a new Mod.
func (c *Controller) InstallMod(opts InstallOptions) (*domain.Mod, error) {
	id := c.smallestFreeID()
	dest := c.modDir(id)

	size, err := c.installer.Install(nil, opts.Source, dest, opts.Flags, opts.Type, 0, opts.Mappings, nil)
	if err != nil {
		return nil, err
	}

	mod := &domain.Mod{
		ID:         id,
		Name:       opts.Name,
		Version:    opts.Version,
		SizeOnDisk: size,
	}
	c.Mods[id] = mod

	if opts.GroupID >= 0 {
		if err := c.AddModToGroup(opts.GroupID, id); err != nil {
			return nil, err
		}
	}
	for _, name := range opts.Deploy {
		if err := c.AddModToDeployer(name, id); err != nil {
			return nil, err
		}
	}
	return mod, nil
}

// ReplaceMod reinstalls in place: the id and every deployer membership
// survive, only the payload and metadata are replaced.
func (c *Controller) ReplaceMod(id int, opts InstallOptions) error {
	mod, ok := c.Mods[id]
	if !ok {
		return fmt.Errorf("%w: mod %d", domain.ErrNoSuchItem, id)
	}

	tempDir := c.modDir(id) + ".tmp_replace"
	size, err := c.installer.Install(nil, opts.Source, tempDir, opts.Flags, opts.Type, 0, opts.Mappings, nil)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(c.modDir(id)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(tempDir, c.modDir(id)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}

	mod.Name = opts.Name
	mod.Version = opts.Version
	mod.SizeOnDisk = size

	for _, b := range c.deployers {
		if b.Impl.Capabilities().IsAutonomous {
			continue
		}
		if !containsLoadorderID(b.Record.Profiles, id) {
			continue
		}
		if err := c.SplitMod(id, b.Record.Name); err != nil {
			return err
		}
	}
	return nil
}

func containsLoadorderID(profiles []domain.ProfileState, id int) bool {
	for _, p := range profiles {
		for _, e := range p.Loadorder {
			if e.ID == id {
				return true
			}
		}
	}
	return false
}

// SplitMod extracts the subtree of mod id that falls under a sub-deployer's
// target path (a proper subdirectory of parentDeployer's target) into a new
// Mod assigned only to that sub-deployer.
func (c *Controller) SplitMod(id int, parentDeployerName string) error {
	var parent, sub *deployerBinding
	for _, b := range c.deployers {
		if b.Record.Name == parentDeployerName {
			parent = b
		}
	}
	if parent == nil {
		return fmt.Errorf("%w: deployer %q", domain.ErrNoSuchItem, parentDeployerName)
	}
	for _, b := range c.deployers {
		if b == parent {
			continue
		}
		if isProperSubdir(parent.Record.TargetPath, b.Record.TargetPath) {
			sub = b
			break
		}
	}
	if sub == nil {
		return nil
	}

	rel, err := filepath.Rel(parent.Record.TargetPath, sub.Record.TargetPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	subtree := filepath.Join(c.modDir(id), rel)
	if _, err := os.Stat(subtree); err != nil {
		return nil
	}

	parentMod := c.Mods[id]
	newID := c.smallestFreeID()
	newDir := c.modDir(newID)
	if err := os.MkdirAll(filepath.Dir(newDir), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(subtree, newDir); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}

	newMod := &domain.Mod{
		ID:      newID,
		Name:    fmt.Sprintf("%s [%s]", parentMod.Name, sub.Record.Name),
		Version: parentMod.Version,
	}
	c.Mods[newID] = newMod
	return c.AddModToDeployer(sub.Record.Name, newID)
}

func isProperSubdir(parent, candidate string) bool {
	rel, err := filepath.Rel(parent, candidate)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// AddModToDeployer appends an existing mod id to the named deployer's
// loadorder in every profile.
func (c *Controller) AddModToDeployer(name string, id int) error {
	for _, b := range c.deployers {
		if b.Record.Name != name {
			continue
		}
		for i := range b.Record.Profiles {
			b.Record.Profiles[i].Loadorder = append(b.Record.Profiles[i].Loadorder, domain.LoadorderEntry{ID: id, Enabled: true})
		}
		c.syncLoadorder(b)
		return nil
	}
	return fmt.Errorf("%w: deployer %q", domain.ErrNoSuchItem, name)
}

// syncLoadorder pushes the active profile's persisted load order into b's
// live implementation, for deployers that hold one (loadorderSetter).
// Autonomous deployers (plugin family, reverse) manage their own state and
// are left untouched.
func (c *Controller) syncLoadorder(b *deployerBinding) {
	setter, ok := b.Impl.(loadorderSetter)
	if !ok {
		return
	}
	for _, p := range b.Record.Profiles {
		if p.Name == c.current {
			setter.SetLoadorder(p.Loadorder)
			return
		}
	}
}

func (c *Controller) syncAllLoadorders() {
	for _, b := range c.deployers {
		c.syncLoadorder(b)
	}
}

// UninstallMods removes the given mod ids from every group, every
// deployer's every profile, deletes their staging trees and records, and
// drops them from every manual tag.
func (c *Controller) UninstallMods(ids []int) error {
	idSet := make(map[int]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	affected := map[*deployerBinding]bool{}
	for _, b := range c.deployers {
		for pi := range b.Record.Profiles {
			var kept []domain.LoadorderEntry
			for _, e := range b.Record.Profiles[pi].Loadorder {
				if idSet[e.ID] {
					affected[b] = true
					continue
				}
				kept = append(kept, e)
			}
			b.Record.Profiles[pi].Loadorder = kept
		}
	}

	var keptGroups []domain.Group
	for _, g := range c.Groups {
		var members []int
		for _, m := range g.Members {
			if !idSet[m] {
				members = append(members, m)
			}
		}
		if len(members) < 2 {
			continue
		}
		activeID := g.Members[g.ActiveMember]
		if idx := indexOfInt(members, activeID); idx >= 0 {
			g.ActiveMember = idx
		} else {
			g.ActiveMember = 0
		}
		g.Members = members
		keptGroups = append(keptGroups, g)
	}
	c.Groups = keptGroups

	for i := range c.ManualTags {
		var kept []int
		for _, m := range c.ManualTags[i].ModIDs {
			if !idSet[m] {
				kept = append(kept, m)
			}
		}
		c.ManualTags[i].ModIDs = kept
	}

	for id := range idSet {
		delete(c.Mods, id)
		if err := os.RemoveAll(c.modDir(id)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}

	for b := range affected {
		c.syncLoadorder(b)
		if _, err := computeConflictGroupsFor(b, c.current); err != nil {
			return err
		}
	}
	return nil
}

// computeConflictGroupsFor recomputes conflict groups for a binding if its
// implementation exposes the capability, storing them on the profile named
// current (the one whose load order the implementation holds); a no-op
// otherwise (autonomous deployers don't support mod conflicts).
func computeConflictGroupsFor(b *deployerBinding, current string) ([]domain.ConflictGroup, error) {
	type conflictComputer interface {
		ComputeConflictGroups() ([]domain.ConflictGroup, error)
	}
	if cc, ok := b.Impl.(conflictComputer); ok {
		groups, err := cc.ComputeConflictGroups()
		if err != nil {
			return nil, err
		}
		for i := range b.Record.Profiles {
			if b.Record.Profiles[i].Name == current {
				b.Record.Profiles[i].ConflictGroups = groups
			}
		}
		return groups, nil
	}
	return nil, nil
}

// ConflictGroups recomputes and returns the current conflict groups for
// the named deployer, or nil if it does not support mod conflicts.
func (c *Controller) ConflictGroups(name string) ([]domain.ConflictGroup, error) {
	for _, b := range c.deployers {
		if b.Record.Name == name {
			return computeConflictGroupsFor(b, c.current)
		}
	}
	return nil, fmt.Errorf("%w: deployer %q", domain.ErrNoSuchItem, name)
}

// CreateGroup forms a new group of a and b, or joins b into a's existing
// group (or vice versa) when either is already grouped.
func (c *Controller) CreateGroup(a, b int) error {
	if gi := c.groupOf(a); gi >= 0 {
		return c.AddModToGroup(gi, b)
	}
	if gi := c.groupOf(b); gi >= 0 {
		return c.AddModToGroup(gi, a)
	}
	c.Groups = append(c.Groups, domain.Group{ActiveMember: 0, Members: []int{a, b}})
	c.reconcileGroupLoadorders([]int{a, b}, a)
	return nil
}

// GroupOf returns the index of the version group containing id, or -1 if
// id is not grouped.
func (c *Controller) GroupOf(id int) int {
	return c.groupOf(id)
}

func (c *Controller) groupOf(id int) int {
	for i, g := range c.Groups {
		if g.Contains(id) {
			return i
		}
	}
	return -1
}

func indexOfInt(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// reconcileGroupLoadorders enforces, for every non-autonomous deployer's
// every profile, that at most one of members appears in the loadorder: the
// first occurrence found keeps its slot but is redirected to activeID
// (preserving that slot's Enabled state), and any further occurrence of a
// member is dropped outright. Deployers whose loadorder actually changed
// are resynced.
func (c *Controller) reconcileGroupLoadorders(members []int, activeID int) {
	memberSet := make(map[int]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}
	for _, b := range c.deployers {
		if b.Impl.Capabilities().IsAutonomous {
			continue
		}
		changed := false
		for pi := range b.Record.Profiles {
			lo := b.Record.Profiles[pi].Loadorder
			kept := make([]domain.LoadorderEntry, 0, len(lo))
			swapped := false
			for _, e := range lo {
				if !memberSet[e.ID] {
					kept = append(kept, e)
					continue
				}
				if swapped {
					changed = true
					continue
				}
				swapped = true
				if e.ID == activeID {
					kept = append(kept, e)
				} else {
					kept = append(kept, domain.LoadorderEntry{ID: activeID, Enabled: e.Enabled})
					changed = true
				}
			}
			b.Record.Profiles[pi].Loadorder = kept
		}
		if changed {
			c.syncLoadorder(b)
		}
	}
}

// AddModToGroup adds id as a member of group index gi.
func (c *Controller) AddModToGroup(gi, id int) error {
	if gi < 0 || gi >= len(c.Groups) {
		return fmt.Errorf("%w: group %d", domain.ErrNoSuchItem, gi)
	}
	g := &c.Groups[gi]
	g.Members = append(g.Members, id)
	activeID := g.Members[g.ActiveMember]
	c.reconcileGroupLoadorders(g.Members, activeID)
	return nil
}

// RemoveModFromGroup removes id from its group, erasing the group if that
// drops it below two members. Every non-autonomous deployer loadorder slot
// that held id (or any other now-redundant member) is redirected to the
// group's surviving active member.
func (c *Controller) RemoveModFromGroup(id int) error {
	gi := c.groupOf(id)
	if gi < 0 {
		return nil
	}
	g := &c.Groups[gi]
	oldMembers := append([]int(nil), g.Members...)
	oldActiveID := g.Members[g.ActiveMember]

	var kept []int
	for _, m := range g.Members {
		if m != id {
			kept = append(kept, m)
		}
	}

	newActiveID := oldActiveID
	if oldActiveID == id {
		if len(kept) > 0 {
			newActiveID = kept[0]
		}
	}
	c.reconcileGroupLoadorders(oldMembers, newActiveID)

	if len(kept) < 2 {
		c.Groups = append(c.Groups[:gi], c.Groups[gi+1:]...)
		return nil
	}
	g.Members = kept
	if idx := indexOfInt(kept, newActiveID); idx >= 0 {
		g.ActiveMember = idx
	} else {
		g.ActiveMember = 0
	}
	return nil
}

// ChangeActiveGroupMember makes the member at index newActive of group
// groupIdx the group's active member, moving it into whatever deployer
// loadorder slot the previous active member held.
func (c *Controller) ChangeActiveGroupMember(groupIdx, newActive int) error {
	if groupIdx < 0 || groupIdx >= len(c.Groups) {
		return fmt.Errorf("%w: group %d", domain.ErrNoSuchItem, groupIdx)
	}
	g := &c.Groups[groupIdx]
	if newActive < 0 || newActive >= len(g.Members) {
		return fmt.Errorf("%w: group member index %d", domain.ErrNoSuchItem, newActive)
	}
	oldID := g.Members[g.ActiveMember]
	newID := g.Members[newActive]
	for _, b := range c.deployers {
		changed := false
		for pi := range b.Record.Profiles {
			for ei, e := range b.Record.Profiles[pi].Loadorder {
				if e.ID == oldID {
					b.Record.Profiles[pi].Loadorder[ei] = domain.LoadorderEntry{ID: newID, Enabled: e.Enabled}
					changed = true
				}
			}
		}
		if changed {
			c.syncLoadorder(b)
		}
	}
	g.ActiveMember = newActive
	return nil
}

// CreateProfile adds a new profile, either empty or cloned from
// cloneFrom's load orders and app version. It does not switch to it.
func (c *Controller) CreateProfile(name, cloneFrom string) error {
	if name == "" {
		return fmt.Errorf("%w: profile name must not be empty", domain.ErrValidation)
	}
	for _, p := range c.Profiles {
		if p.Name == name {
			return fmt.Errorf("%w: profile %q already exists", domain.ErrValidation, name)
		}
	}

	profile := domain.Profile{Name: name}
	if cloneFrom != "" {
		var source *domain.Profile
		for i := range c.Profiles {
			if c.Profiles[i].Name == cloneFrom {
				source = &c.Profiles[i]
			}
		}
		if source == nil {
			return fmt.Errorf("%w: profile %q", domain.ErrNoSuchItem, cloneFrom)
		}
		profile.AppVersion = source.AppVersion
	}
	c.Profiles = append(c.Profiles, profile)

	for _, b := range c.deployers {
		state := domain.ProfileState{Name: name}
		if cloneFrom != "" {
			for _, p := range b.Record.Profiles {
				if p.Name == cloneFrom {
					state.Loadorder = append([]domain.LoadorderEntry(nil), p.Loadorder...)
					state.ConflictGroups = append([]domain.ConflictGroup(nil), p.ConflictGroups...)
				}
			}
		}
		b.Record.Profiles = append(b.Record.Profiles, state)
	}
	c.Backups[name] = backup.New()
	return nil
}

// RemoveProfile deletes a profile's per-deployer state and backup
// manager. It refuses to remove the active profile or the last profile.
func (c *Controller) RemoveProfile(name string) error {
	if name == c.current {
		return fmt.Errorf("%w: cannot remove the active profile", domain.ErrValidation)
	}
	if len(c.Profiles) <= 1 {
		return fmt.Errorf("%w: at least one profile must remain", domain.ErrValidation)
	}
	idx := -1
	for i, p := range c.Profiles {
		if p.Name == name {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: profile %q", domain.ErrNoSuchItem, name)
	}
	c.Profiles = append(c.Profiles[:idx], c.Profiles[idx+1:]...)

	for _, b := range c.deployers {
		for i, p := range b.Record.Profiles {
			if p.Name == name {
				b.Record.Profiles = append(b.Record.Profiles[:i], b.Record.Profiles[i+1:]...)
				break
			}
		}
	}
	delete(c.Backups, name)
	return nil
}

// SetProfile makes name the active profile, without re-deploying: it
// pushes that profile's load order into every deployer that holds one
// (Generic, CaseMatching) and ensures a backup manager exists for it.
// Autonomous deployers (plugin family, reverse) are not switched; their
// own profile state is left unchanged.
func (c *Controller) SetProfile(name string) error {
	found := false
	for _, p := range c.Profiles {
		if p.Name == name {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: profile %q", domain.ErrNoSuchItem, name)
	}
	c.current = name
	if _, ok := c.Backups[name]; !ok {
		c.Backups[name] = backup.New()
	}
	c.syncAllLoadorders()
	return nil
}

// TagAction is one step of an editManualTags/editAutoTags batch.
type TagAction struct {
	Op        string // "add", "remove", "rename", "change_evaluator"
	Name      string
	NewName   string
	ModIDs    []int
	Evaluator string
}

// EditManualTags applies actions atomically: on any failure, the prior tag
// list is restored unchanged.
func (c *Controller) EditManualTags(actions []TagAction) error {
	saved := make([]domain.Tag, len(c.ManualTags))
	copy(saved, c.ManualTags)
	if err := c.applyTagActions(&c.ManualTags, actions); err != nil {
		c.ManualTags = saved
		return err
	}
	return nil
}

// EditAutoTags applies actions atomically like EditManualTags; if any
// action is "change_evaluator", every auto tag is reapplied to every mod
// after the batch using evalFn, a per-mod predicate evaluator the caller
// supplies (the file-listing cache it should use lives with the caller).
func (c *Controller) EditAutoTags(actions []TagAction, evalFn func(tag domain.Tag, modID int) bool) error {
	saved := make([]domain.Tag, len(c.AutoTags))
	copy(saved, c.AutoTags)
	reapply := false
	for _, a := range actions {
		if a.Op == "change_evaluator" {
			reapply = true
		}
	}
	if err := c.applyTagActions(&c.AutoTags, actions); err != nil {
		c.AutoTags = saved
		return err
	}
	if reapply && evalFn != nil {
		for ti := range c.AutoTags {
			tag := &c.AutoTags[ti]
			var members []int
			for id := range c.Mods {
				if evalFn(*tag, id) {
					members = append(members, id)
				}
			}
			sort.Ints(members)
			tag.ModIDs = members
		}
	}
	return nil
}

func (c *Controller) applyTagActions(tags *[]domain.Tag, actions []TagAction) error {
	for _, a := range actions {
		switch a.Op {
		case "add":
			*tags = append(*tags, domain.Tag{Name: a.Name, ModIDs: a.ModIDs, Evaluator: a.Evaluator})
		case "remove":
			idx := indexOfTag(*tags, a.Name)
			if idx < 0 {
				return fmt.Errorf("%w: tag %q", domain.ErrNoSuchItem, a.Name)
			}
			*tags = append((*tags)[:idx], (*tags)[idx+1:]...)
		case "rename":
			idx := indexOfTag(*tags, a.Name)
			if idx < 0 {
				return fmt.Errorf("%w: tag %q", domain.ErrNoSuchItem, a.Name)
			}
			(*tags)[idx].Name = a.NewName
		case "change_evaluator":
			idx := indexOfTag(*tags, a.Name)
			if idx < 0 {
				return fmt.Errorf("%w: tag %q", domain.ErrNoSuchItem, a.Name)
			}
			(*tags)[idx].Evaluator = a.Evaluator
		default:
			return fmt.Errorf("%w: tag action %q", domain.ErrUnknownType, a.Op)
		}
	}
	return nil
}

func indexOfTag(tags []domain.Tag, name string) int {
	for i, t := range tags {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// DeployResult pairs a deployer name with its outcome.
type DeployResult struct {
	Name   string
	Totals map[int]int64
	Err    error
}

// Deploy runs deploy in declared-priority order against the named
// deployers, writing back per-mod byte totals for non-autonomous deployers.
func (c *Controller) Deploy(names []string) []DeployResult {
	ordered := c.byPriority(names)
	var results []DeployResult
	for _, b := range ordered {
		totals, err := b.Impl.Deploy()
		results = append(results, DeployResult{Name: b.Record.Name, Totals: totals, Err: err})
		if err != nil {
			continue
		}
		if b.Impl.Capabilities().IsAutonomous {
			continue
		}
		for id, size := range totals {
			if mod, ok := c.Mods[id]; ok {
				mod.SizeOnDisk = size
			}
		}
	}
	return results
}

// UndeployResult pairs a deployer name with its Undeploy outcome.
type UndeployResult struct {
	Name string
	Err  error
}

// Undeploy runs undeploy in declared-priority order against the named
// deployers, removing their links/files from their targets without
// touching mod records or deployer assignments.
func (c *Controller) Undeploy(names []string) []UndeployResult {
	ordered := c.byPriority(names)
	var results []UndeployResult
	for _, b := range ordered {
		results = append(results, UndeployResult{Name: b.Record.Name, Err: b.Impl.Undeploy()})
	}
	return results
}

func (c *Controller) byPriority(names []string) []*deployerBinding {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []*deployerBinding
	for _, b := range c.deployers {
		if wanted[b.Record.Name] {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityOf(out[i].Record.Type) < priorityOf(out[j].Record.Type)
	})
	return out
}

func priorityOf(t domain.DeployerType) int {
	switch t {
	case domain.DeployerGeneric, domain.DeployerCaseMatching:
		return 0
	case domain.DeployerReverse:
		return 2
	default:
		return 1
	}
}

// GetExternalChanges runs ExternalChanges on every deployer that supports
// it, among the named deployers.
func (c *Controller) GetExternalChanges(names []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, b := range c.byPriority(names) {
		detector, ok := b.Impl.(ExternalChangeDetector)
		if !ok {
			continue
		}
		changes, err := detector.ExternalChanges()
		if err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			out[b.Record.Name] = changes
		}
	}
	return out, nil
}
