// Package plugindeployer implements the autonomous plugin deployer family:
// a deployer that manages its own filename-based identifiers rather than
// referencing the staging controller's installed mods by id.
//
// Per the capability-object redesign, Base holds the shared scan/write/
// profile machinery and the load-order, archive-list, and config-based
// variants each wrap a Base, overriding only what they surgically rewrite.
package plugindeployer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/modstage/modstage/internal/domain"
)

const (
	configFileName     = ".lmmconfig"
	sourceModsFileName = ".lmm_mod_sources"
	profileExtension   = ".lmmprof"
	undeployBackupExt  = ".undeplbak"
)

// Entry is one plugin's load-order slot.
type Entry struct {
	Name    string
	Enabled bool
}

// Base implements the scan/write/profile machinery shared by every
// autonomous plugin deployer. The plain plugin deployer type uses a Base
// directly; the LoadOrder, ArchiveList and ConfigList variants wrap one.
// PluginRegex and LineRegex stay nil unless the creator sets them, and
// while nil no source file or plugin-file line is recognized.
type Base struct {
	Name       string
	Source     string
	Target     string
	PluginFile string // e.g. "plugins.txt"

	PluginRegex *regexp.Regexp // matches candidate filenames under Source
	LineRegex   *regexp.Regexp // parses a plugin-file line: group 1 "*" or "", group 2 name

	Log func(string)

	Plugins        []Entry
	Tags           [][]string
	NumProfiles    int
	CurrentProfile int
	SourceMods     map[string]int // plugin name -> owning installed-mod id
}

// NewBase constructs a Base with sane defaults; variants typically set
// PluginRegex/LineRegex/PluginFile immediately afterward.
func NewBase(name, source, target string) *Base {
	return &Base{
		Name:           name,
		Source:         source,
		Target:         target,
		PluginFile:     "plugins.txt",
		NumProfiles:    1,
		CurrentProfile: 0,
		SourceMods:     map[string]int{},
	}
}

func (b *Base) log(format string, args ...any) {
	if b.Log != nil {
		b.Log(fmt.Sprintf(format, args...))
	}
}

func (b *Base) hideFile(name string) string {
	if strings.HasPrefix(name, ".") {
		return name
	}
	return "." + name
}

func (b *Base) profilePath(profile int) string {
	return filepath.Join(b.Target, b.hideFile(b.PluginFile)+profileExtension+strconv.Itoa(profile))
}

func (b *Base) pluginPath() string {
	return filepath.Join(b.Target, b.PluginFile)
}

// RestoreUndeployBackupIfExists restores a plugins-file backup left behind
// by a prior undeploy, overriding whatever is currently in place.
func (b *Base) RestoreUndeployBackupIfExists() error {
	backup := b.pluginPath() + undeployBackupExt
	if _, err := os.Stat(backup); err != nil {
		return nil
	}
	if err := os.Remove(b.pluginPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(backup, b.pluginPath()); err != nil {
		return fmt.Errorf("%w: restoring undeploy backup: %v", domain.ErrPathIO, err)
	}
	return nil
}

// UpdatePlugins rescans Source for files matching PluginRegex: new files
// are appended enabled, disappeared files are dropped, surviving order is
// preserved.
func (b *Base) UpdatePlugins() error {
	entries, err := os.ReadDir(b.Source)
	if err != nil {
		return fmt.Errorf("%w: scanning %s: %v", domain.ErrPathIO, b.Source, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if b.PluginRegex != nil && b.PluginRegex.MatchString(e.Name()) {
			found = append(found, e.Name())
		}
	}

	foundSet := make(map[string]bool, len(found))
	for _, f := range found {
		foundSet[f] = true
	}

	var survivors []Entry
	survivorSet := make(map[string]bool)
	for _, p := range b.Plugins {
		if foundSet[p.Name] {
			survivors = append(survivors, p)
			survivorSet[p.Name] = true
		}
	}
	for _, f := range found {
		if !survivorSet[f] {
			survivors = append(survivors, Entry{Name: f, Enabled: true})
		}
	}
	b.Plugins = survivors
	return b.WritePlugins()
}

// LoadPlugins reads the current plugin file into Plugins, replacing it.
func (b *Base) LoadPlugins() error {
	f, err := os.Open(b.pluginPath())
	if err != nil {
		return fmt.Errorf("%w: opening %s (has the game been launched once?): %v", domain.ErrPathIO, b.PluginFile, err)
	}
	defer f.Close()

	b.Plugins = nil
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if b.LineRegex == nil {
			continue
		}
		m := b.LineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		b.Plugins = append(b.Plugins, Entry{Name: m[2], Enabled: m[1] == "*"})
	}
	return scanner.Err()
}

// WritePlugins writes the plugin file, one line per entry, enabled entries
// prefixed with "*".
func (b *Base) WritePlugins() error {
	var sb strings.Builder
	for _, p := range b.Plugins {
		if p.Enabled {
			sb.WriteString("*")
		}
		sb.WriteString(p.Name)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(b.pluginPath(), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, b.PluginFile, err)
	}
	return nil
}

type pluginSettings struct {
	NumProfiles    int `json:"num_profiles"`
	CurrentProfile int `json:"current_profile"`
}

// SaveSettings persists NumProfiles/CurrentProfile to the config file.
func (b *Base) SaveSettings() error {
	data, err := json.Marshal(pluginSettings{NumProfiles: b.NumProfiles, CurrentProfile: b.CurrentProfile})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if err := os.WriteFile(filepath.Join(b.Target, configFileName), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, configFileName, err)
	}
	return nil
}

// LoadSettings reads the config file, resetting to defaults if absent or
// malformed.
func (b *Base) LoadSettings() error {
	data, err := os.ReadFile(filepath.Join(b.Target, configFileName))
	if err != nil {
		b.resetSettings()
		return nil
	}
	var s pluginSettings
	if err := json.Unmarshal(data, &s); err != nil {
		b.resetSettings()
		return nil
	}
	b.NumProfiles = s.NumProfiles
	b.CurrentProfile = s.CurrentProfile
	return nil
}

func (b *Base) resetSettings() {
	b.NumProfiles = 1
	b.CurrentProfile = 0
}

// WritePluginTags writes Tags as a JSON array-of-arrays.
func (b *Base) WritePluginTags(tagsFileName string) error {
	data, err := json.Marshal(b.Tags)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if err := os.WriteFile(filepath.Join(b.Target, tagsFileName), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, tagsFileName, err)
	}
	return nil
}

// UpdateSourceMods refreshes the plugin-name -> owning-mod-id map by
// reading the persisted mapping file, dropping entries for plugins that no
// longer exist.
func (b *Base) UpdateSourceMods() error {
	if err := b.readSourceMods(); err != nil {
		return err
	}
	known := make(map[string]bool, len(b.Plugins))
	for _, p := range b.Plugins {
		known[p.Name] = true
	}
	for name := range b.SourceMods {
		if !known[name] {
			delete(b.SourceMods, name)
		}
	}
	return b.writeSourceMods()
}

func (b *Base) readSourceMods() error {
	data, err := os.ReadFile(filepath.Join(b.Target, sourceModsFileName))
	if err != nil {
		if b.SourceMods == nil {
			b.SourceMods = map[string]int{}
		}
		return nil
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrParse, sourceModsFileName, err)
	}
	b.SourceMods = m
	return nil
}

func (b *Base) writeSourceMods() error {
	data, err := json.Marshal(b.SourceMods)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if err := os.WriteFile(filepath.Join(b.Target, sourceModsFileName), data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, sourceModsFileName, err)
	}
	return nil
}

// Deploy rescans and rewrites the plugin file. Autonomous deployers never
// receive or apply a loadorder from the controller.
func (b *Base) Deploy() (map[int]int64, error) {
	b.log("deployer %q: updating plugins", b.Name)
	if err := b.RestoreUndeployBackupIfExists(); err != nil {
		return nil, err
	}
	if err := b.UpdatePlugins(); err != nil {
		return nil, err
	}
	if err := b.UpdateSourceMods(); err != nil {
		return nil, err
	}
	return map[int]int64{}, nil
}

// Undeploy backs up the plugin file (so a future deploy can restore it)
// and removes it from the target.
func (b *Base) Undeploy() error {
	src := b.pluginPath()
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	return os.Rename(src, src+undeployBackupExt)
}

// ChangeLoadorder moves one plugin entry to a new position, preserving
// Tags in lockstep when present.
func (b *Base) ChangeLoadorder(from, to int) error {
	if from == to || to < 0 || to >= len(b.Plugins) || from < 0 || from >= len(b.Plugins) {
		return nil
	}
	rotate(b.Plugins, from, to)
	if len(b.Tags) == len(b.Plugins) {
		rotate(b.Tags, from, to)
	}
	return b.WritePlugins()
}

func rotate[T any](s []T, from, to int) {
	v := s[from]
	if to < from {
		copy(s[to+1:from+1], s[to:from])
		s[to] = v
	} else {
		copy(s[from:to], s[from+1:to+1])
		s[to] = v
	}
}

// SetModStatus toggles one entry's enabled flag by index and rewrites.
func (b *Base) SetModStatus(index int, enabled bool) error {
	if index < 0 || index >= len(b.Plugins) {
		return nil
	}
	b.Plugins[index].Enabled = enabled
	return b.WritePlugins()
}

// ConflictGroups always reports the single non-conflicting group: this
// deployer type does not support mod conflicts.
func (b *Base) ConflictGroups() []domain.ConflictGroup {
	ids := make([]int, len(b.Plugins))
	for i := range ids {
		ids[i] = i
	}
	return []domain.ConflictGroup{{ModIDs: ids}}
}

// AddProfile appends a new profile slot, optionally seeded from an
// existing profile's file.
func (b *Base) AddProfile(source int) error {
	if b.NumProfiles == 0 {
		b.NumProfiles++
		return b.SaveSettings()
	}
	dst := b.profilePath(b.NumProfiles)
	var srcPath string
	if source >= 0 && source <= b.NumProfiles && b.NumProfiles > 1 && source != b.CurrentProfile {
		srcPath = b.profilePath(source)
	} else {
		srcPath = b.pluginPath()
	}
	if err := copyFile(srcPath, dst); err != nil {
		return err
	}
	b.NumProfiles++
	return b.SaveSettings()
}

// RemoveProfile deletes a profile slot, switching away from it first if
// it is currently active.
func (b *Base) RemoveProfile(profile int) error {
	if profile < 0 || profile >= b.NumProfiles {
		return nil
	}
	if profile == b.CurrentProfile {
		if err := b.SetProfile(0); err != nil {
			return err
		}
	} else if profile < b.CurrentProfile {
		if err := b.SetProfile(b.CurrentProfile - 1); err != nil {
			return err
		}
	}
	if err := os.Remove(b.profilePath(profile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	b.NumProfiles--
	return b.SaveSettings()
}

// SetProfile swaps the active plugin file for the given profile's hidden
// copy and reloads state from it.
func (b *Base) SetProfile(profile int) error {
	if profile < 0 || profile >= b.NumProfiles || profile == b.CurrentProfile {
		return nil
	}
	if _, err := os.Stat(b.pluginPath()); err != nil {
		b.resetSettings()
		return nil
	}
	if _, err := os.Stat(b.profilePath(profile)); err != nil {
		b.resetSettings()
		return nil
	}
	if err := os.Rename(b.pluginPath(), b.profilePath(b.CurrentProfile)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(b.profilePath(profile), b.pluginPath()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	b.CurrentProfile = profile
	if err := b.SaveSettings(); err != nil {
		return err
	}
	if err := b.LoadPlugins(); err != nil {
		return err
	}
	return b.UpdatePlugins()
}

// Cleanup removes the config file and every profile file.
func (b *Base) Cleanup() error {
	for i := 0; i < b.NumProfiles; i++ {
		_ = os.Remove(b.profilePath(i))
	}
	b.CurrentProfile = 0
	b.NumProfiles = 1
	return os.Remove(filepath.Join(b.Target, configFileName))
}

// Loadorder reports (source-mod-id, enabled) per plugin: -1 if the plugin
// was not created by another deployer.
func (b *Base) Loadorder() []domain.LoadorderEntry {
	out := make([]domain.LoadorderEntry, 0, len(b.Plugins))
	for _, p := range b.Plugins {
		id := -1
		if v, ok := b.SourceMods[p.Name]; ok {
			id = v
		}
		out = append(out, domain.LoadorderEntry{ID: id, Enabled: p.Enabled})
	}
	return out
}

// Capabilities reports the shared autonomous-deployer capability set.
func (b *Base) Capabilities() domain.Capabilities {
	return domain.Capabilities{
		SupportsFileBrowsing:   true,
		IDsAreSourceReferences: true,
		IsAutonomous:           true,
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return nil
}

// SortedPluginNames returns Plugins' names, for callers that want a
// deterministic listing independent of load order.
func (b *Base) SortedPluginNames() []string {
	names := make([]string, len(b.Plugins))
	for i, p := range b.Plugins {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}
