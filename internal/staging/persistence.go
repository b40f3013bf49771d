package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modstage/modstage/internal/backup"
	"github.com/modstage/modstage/internal/deployer"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/plugindeployer"
	"github.com/modstage/modstage/internal/reversedeployer"
)

// persistedMod is the on-disk shape of one installed_mods[] entry.
type persistedMod struct {
	ID                 int       `json:"id"`
	Name               string    `json:"name"`
	Version            string    `json:"version"`
	InstallTime        time.Time `json:"install_time"`
	RemoteUpdateTime   time.Time `json:"remote_update_time,omitempty"`
	SuppressNotifyTime time.Time `json:"suppress_notify_time,omitempty"`
	LocalSource        string    `json:"local_source,omitempty"`
	RemoteSource       string    `json:"remote_source,omitempty"`
	RemoteModID        string    `json:"remote_mod_id,omitempty"`
	RemoteFileID       string    `json:"remote_file_id,omitempty"`
	RemoteType         string    `json:"remote_type,omitempty"`
	SizeOnDisk         int64     `json:"size_on_disk"`
	Installer          string    `json:"installer,omitempty"`
}

// persistedDeployer is the on-disk shape of one deployers[] entry. Config
// carries the variant-specific fields (config_file, masterlist_url,
// prelude_url, cache_dir) that differ per deployer type, rather than
// repeating every one as a named field here.
type persistedDeployer struct {
	Type                domain.DeployerType   `json:"type"`
	Name                string                `json:"name"`
	SourcePath          string                `json:"source_path"`
	TargetPath          string                `json:"target_path"`
	DeployMode          string                `json:"deploy_mode"`
	EnableUnsafeSorting bool                  `json:"enable_unsafe_sorting,omitempty"`
	SeparateDirs        bool                  `json:"separate_dirs,omitempty"`
	IgnoredPaths        []string              `json:"ignored_paths,omitempty"`
	DeployedProfile     int                   `json:"deployed_profile,omitempty"`
	Profiles            []domain.ProfileState `json:"profiles"`
	Config              map[string]string     `json:"config,omitempty"`
}

type persistedGroup struct {
	ActiveMember int   `json:"active_member"`
	Members      []int `json:"members"`
}

type persistedTag struct {
	Name      string `json:"name"`
	ModIDs    []int  `json:"mod_ids"`
	Evaluator string `json:"evaluator,omitempty"`
}

type persistedBackupTarget struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Backups []int  `json:"backups"`
	Active  int    `json:"active"`
}

type persistedConfig struct {
	Name           string                              `json:"name"`
	Command        string                              `json:"command"`
	IconPath       string                              `json:"icon_path"`
	SteamAppID     string                              `json:"steam_app_id,omitempty"`
	Profiles       []domain.Profile                     `json:"profiles"`
	CurrentProfile string                              `json:"current_profile"`
	InstalledMods  []persistedMod                       `json:"installed_mods"`
	Groups         []persistedGroup                     `json:"groups,omitempty"`
	Deployers      []persistedDeployer                   `json:"deployers"`
	Tools          []string                             `json:"tools,omitempty"`
	BackupTargets  map[string][]persistedBackupTarget    `json:"backup_targets,omitempty"`
	ManualTags     []persistedTag                       `json:"manual_tags,omitempty"`
	AutoTags       []persistedTag                       `json:"auto_tags,omitempty"`
}

// Dependencies bundles the collaborators a load-order plugin deployer
// needs but the controller cannot construct on its own: the external
// sorting engine and the archive-fetching client.
type Dependencies struct {
	SortEngine plugindeployer.SortEngine
	Fetcher    plugindeployer.Fetcher
}

func (c *Controller) configPath() string {
	return filepath.Join(c.StagingRoot, configFileName)
}

// Save writes the controller's full state to <StagingRoot>/lmm.json
// atomically, keeping the previous version as a .bak sibling.
func (c *Controller) Save() error {
	cfg := c.toPersisted()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	path := c.configPath()
	if existing, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", existing, 0o644); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	return nil
}

func (c *Controller) toPersisted() persistedConfig {
	cfg := persistedConfig{
		Name:           c.Name,
		Command:        c.Command,
		IconPath:       c.IconPath,
		SteamAppID:     c.SteamAppID,
		Profiles:       c.Profiles,
		CurrentProfile: c.current,
		Tools:          c.Tools,
		BackupTargets:  map[string][]persistedBackupTarget{},
	}

	for _, m := range c.Mods {
		cfg.InstalledMods = append(cfg.InstalledMods, persistedMod{
			ID:                 m.ID,
			Name:               m.Name,
			Version:            m.Version,
			InstallTime:        m.InstallTime,
			RemoteUpdateTime:   m.RemoteUpdateTime,
			SuppressNotifyTime: m.SuppressNotifyTime,
			LocalSource:        m.LocalSource,
			RemoteSource:       m.RemoteSource,
			RemoteModID:        m.RemoteModID,
			RemoteFileID:       m.RemoteFileID,
			RemoteType:         m.RemoteType,
			SizeOnDisk:         m.SizeOnDisk,
			Installer:          m.Installer,
		})
	}

	for _, g := range c.Groups {
		cfg.Groups = append(cfg.Groups, persistedGroup{ActiveMember: g.ActiveMember, Members: g.Members})
	}
	for _, t := range c.ManualTags {
		cfg.ManualTags = append(cfg.ManualTags, persistedTag{Name: t.Name, ModIDs: t.ModIDs, Evaluator: t.Evaluator})
	}
	for _, t := range c.AutoTags {
		cfg.AutoTags = append(cfg.AutoTags, persistedTag{Name: t.Name, ModIDs: t.ModIDs, Evaluator: t.Evaluator})
	}
	for name, mgr := range c.Backups {
		for _, bt := range mgr.Targets {
			cfg.BackupTargets[name] = append(cfg.BackupTargets[name], persistedBackupTarget{
				Path: bt.Path, Name: bt.Name, Backups: bt.Backups, Active: bt.Active,
			})
		}
	}
	for _, b := range c.deployers {
		cfg.Deployers = append(cfg.Deployers, persistedDeployer{
			Type:                b.Record.Type,
			Name:                b.Record.Name,
			SourcePath:          b.Record.SourcePath,
			TargetPath:          b.Record.TargetPath,
			DeployMode:          b.Record.DeployMode.String(),
			EnableUnsafeSorting: b.Record.EnableUnsafeSorting,
			SeparateDirs:        b.Record.SeparateDirs,
			IgnoredPaths:        b.Record.IgnoredPaths,
			DeployedProfile:     b.Record.DeployedProfile,
			Profiles:            b.Record.Profiles,
			Config:              deployerConfig(b.Impl),
		})
	}
	return cfg
}

// deployerConfig extracts the variant-specific settings a deployer's
// concrete type carries beyond domain.DeployerRecord's common fields, so
// they survive a save/load round trip.
func deployerConfig(impl Deployer) map[string]string {
	switch d := impl.(type) {
	case *plugindeployer.LoadOrder:
		return map[string]string{
			"masterlist_url": d.MasterlistURL,
			"prelude_url":    d.PreludeURL,
			"cache_dir":      d.CacheDir,
			"plugin_file":    d.PluginFile,
		}
	case *plugindeployer.ArchiveList:
		return map[string]string{"config_file": d.ConfigFile, "prefix": d.Prefix, "plugin_file": d.PluginFile}
	case *plugindeployer.ConfigList:
		return map[string]string{"config_file": d.ConfigFile, "prefix": d.Prefix, "plugin_file": d.PluginFile}
	case *plugindeployer.Base:
		return map[string]string{"plugin_file": d.PluginFile}
	default:
		return nil
	}
}

// Load reads <stagingRoot>/lmm.json, validates required keys and
// referential integrity, and reconstructs a Controller with every
// concrete deployer instance wired up. It falls back to the .bak sibling
// if the primary file is missing or fails to parse.
func Load(stagingRoot string, inst *installer.Installer, deps Dependencies) (*Controller, error) {
	path := filepath.Join(stagingRoot, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		data, err = os.ReadFile(path + ".bak")
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrPathIO, path, err)
		}
	}

	var cfg persistedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		backupData, backupErr := os.ReadFile(path + ".bak")
		if backupErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		if err := json.Unmarshal(backupData, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	c := &Controller{
		StagingRoot: stagingRoot,
		Name:        cfg.Name,
		Command:     cfg.Command,
		IconPath:    cfg.IconPath,
		SteamAppID:  cfg.SteamAppID,
		Mods:        map[int]*domain.Mod{},
		Profiles:    cfg.Profiles,
		current:     cfg.CurrentProfile,
		Groups:      make([]domain.Group, 0, len(cfg.Groups)),
		Tools:       cfg.Tools,
		Backups:     map[string]*backup.Manager{},
		installer:   inst,
	}

	for name, targets := range cfg.BackupTargets {
		mgr := backup.New()
		for _, bt := range targets {
			mgr.Targets = append(mgr.Targets, domain.BackupTarget{
				Path: bt.Path, Name: bt.Name, Backups: bt.Backups, Active: bt.Active,
			})
		}
		c.Backups[name] = mgr
	}
	if _, ok := c.Backups[c.current]; !ok {
		c.Backups[c.current] = backup.New()
	}

	for _, m := range cfg.InstalledMods {
		c.Mods[m.ID] = &domain.Mod{
			ID:                 m.ID,
			Name:               m.Name,
			Version:            m.Version,
			InstallTime:        m.InstallTime,
			RemoteUpdateTime:   m.RemoteUpdateTime,
			SuppressNotifyTime: m.SuppressNotifyTime,
			LocalSource:        m.LocalSource,
			RemoteSource:       m.RemoteSource,
			RemoteModID:        m.RemoteModID,
			RemoteFileID:       m.RemoteFileID,
			RemoteType:         m.RemoteType,
			SizeOnDisk:         m.SizeOnDisk,
			Installer:          m.Installer,
		}
	}
	for _, g := range cfg.Groups {
		c.Groups = append(c.Groups, domain.Group{ActiveMember: g.ActiveMember, Members: g.Members})
	}
	for _, t := range cfg.ManualTags {
		c.ManualTags = append(c.ManualTags, domain.Tag{Name: t.Name, Kind: domain.TagManual, ModIDs: t.ModIDs, Evaluator: t.Evaluator})
	}
	for _, t := range cfg.AutoTags {
		c.AutoTags = append(c.AutoTags, domain.Tag{Name: t.Name, Kind: domain.TagAutomatic, ModIDs: t.ModIDs, Evaluator: t.Evaluator})
	}

	for _, pd := range cfg.Deployers {
		impl, err := buildDeployer(pd, deps)
		if err != nil {
			return nil, err
		}
		record := domain.DeployerRecord{
			Type:                pd.Type,
			Name:                pd.Name,
			SourcePath:          pd.SourcePath,
			TargetPath:          pd.TargetPath,
			DeployMode:          domain.ParseDeployMode(pd.DeployMode),
			EnableUnsafeSorting: pd.EnableUnsafeSorting,
			SeparateDirs:        pd.SeparateDirs,
			IgnoredPaths:        pd.IgnoredPaths,
			DeployedProfile:     pd.DeployedProfile,
			Profiles:            pd.Profiles,
		}
		c.AddDeployer(record, impl)
	}

	return c, nil
}

// buildDeployer reconstructs the concrete implementation behind a
// persisted deployer record, dispatching on its declared type.
func buildDeployer(pd persistedDeployer, deps Dependencies) (Deployer, error) {
	mode := domain.ParseDeployMode(pd.DeployMode)
	switch pd.Type {
	case domain.DeployerGeneric:
		g := deployer.NewGeneric(pd.Name, pd.SourcePath, pd.TargetPath, mode)
		g.EnableUnsafeSorting = pd.EnableUnsafeSorting
		return g, nil
	case domain.DeployerCaseMatching:
		g := deployer.NewGeneric(pd.Name, pd.SourcePath, pd.TargetPath, mode)
		g.EnableUnsafeSorting = pd.EnableUnsafeSorting
		return deployer.NewCaseMatching(g), nil
	case domain.DeployerPlugin:
		b := plugindeployer.NewBase(pd.Name, pd.SourcePath, pd.TargetPath)
		if pf := pd.Config["plugin_file"]; pf != "" {
			b.PluginFile = pf
		}
		return b, nil
	case domain.DeployerLoadorderPlugin:
		lo := plugindeployer.NewLoadOrder(pd.Name, pd.SourcePath, pd.TargetPath,
			pd.Config["masterlist_url"], pd.Config["prelude_url"], pd.Config["cache_dir"])
		lo.Engine = deps.SortEngine
		lo.Fetcher = deps.Fetcher
		if pf := pd.Config["plugin_file"]; pf != "" {
			lo.PluginFile = pf
		}
		return lo, nil
	case domain.DeployerArchiveList:
		al := plugindeployer.NewArchiveList(pd.Name, pd.SourcePath, pd.TargetPath, pd.Config["config_file"])
		if prefix := pd.Config["prefix"]; prefix != "" {
			al.Prefix = prefix
		}
		if pf := pd.Config["plugin_file"]; pf != "" {
			al.PluginFile = pf
		}
		return al, nil
	case domain.DeployerConfigList:
		cl := plugindeployer.NewConfigList(pd.Name, pd.SourcePath, pd.TargetPath, pd.Config["config_file"])
		if prefix := pd.Config["prefix"]; prefix != "" {
			cl.Prefix = prefix
		}
		if pf := pd.Config["plugin_file"]; pf != "" {
			cl.PluginFile = pf
		}
		return cl, nil
	case domain.DeployerReverse:
		r := reversedeployer.New(pd.Name, pd.SourcePath, pd.TargetPath, mode)
		r.SeparateDirs = pd.SeparateDirs
		return r, nil
	default:
		return nil, fmt.Errorf("%w: deployer type %q", domain.ErrUnknownType, pd.Type)
	}
}

// validate enforces required-keys and referential-integrity rules before
// a persisted config is allowed to back a live Controller.
func validate(cfg persistedConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: missing required key \"name\"", domain.ErrParse)
	}
	if cfg.Command == "" {
		return fmt.Errorf("%w: missing required key \"command\"", domain.ErrParse)
	}
	if cfg.IconPath == "" {
		return fmt.Errorf("%w: missing required key \"icon_path\"", domain.ErrParse)
	}
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("%w: missing required key \"profiles\"", domain.ErrParse)
	}
	if len(cfg.Deployers) == 0 {
		return fmt.Errorf("%w: missing required key \"deployers\"", domain.ErrParse)
	}

	modIDs := make(map[int]bool, len(cfg.InstalledMods))
	for _, m := range cfg.InstalledMods {
		modIDs[m.ID] = true
	}
	for _, g := range cfg.Groups {
		for _, m := range g.Members {
			if !modIDs[m] {
				return fmt.Errorf("%w: group references unknown mod id %d", domain.ErrDuplicatePath, m)
			}
		}
		if g.ActiveMember < 0 || g.ActiveMember >= len(g.Members) {
			return fmt.Errorf("%w: group active_member %d out of range", domain.ErrParse, g.ActiveMember)
		}
	}
	for _, pd := range cfg.Deployers {
		for _, p := range pd.Profiles {
			for _, e := range p.Loadorder {
				if !modIDs[e.ID] {
					return fmt.Errorf("%w: deployer %q references unknown mod id %d", domain.ErrDuplicatePath, pd.Name, e.ID)
				}
			}
		}
	}
	for _, t := range cfg.ManualTags {
		for _, m := range t.ModIDs {
			if !modIDs[m] {
				return fmt.Errorf("%w: tag %q references unknown mod id %d", domain.ErrDuplicatePath, t.Name, m)
			}
		}
	}
	return nil
}
