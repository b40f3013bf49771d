package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/modstage/modstage/internal/domain"

	"gopkg.in/yaml.v3"
)

// registryMu serializes read-modify-write of applications.yaml to avoid
// lost updates across concurrent commands.
var registryMu sync.Mutex

const registryFileName = "applications.yaml"

// applicationYAML is the on-disk shape of one registry entry.
type applicationYAML struct {
	Name        string `yaml:"name"`
	StagingRoot string `yaml:"staging_root"`
	TargetRoot  string `yaml:"target_root"`
	Command     string `yaml:"command"`
	IconPath    string `yaml:"icon_path,omitempty"`
	SteamAppID  string `yaml:"steam_app_id,omitempty"`
}

// registryFile is the top-level applications.yaml structure.
type registryFile struct {
	Applications map[string]applicationYAML `yaml:"applications"`
}

// LoadApplications reads every configured application from the registry.
func LoadApplications(configDir string) (map[string]*domain.Application, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	return loadApplicationsLocked(configDir)
}

func loadApplicationsLocked(configDir string) (map[string]*domain.Application, error) {
	path := filepath.Join(configDir, registryFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*domain.Application{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrPathIO, path, err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrParse, path, err)
	}

	apps := make(map[string]*domain.Application, len(rf.Applications))
	for id, a := range rf.Applications {
		apps[id] = &domain.Application{
			ID:          id,
			Name:        a.Name,
			StagingRoot: ExpandPath(a.StagingRoot),
			TargetRoot:  ExpandPath(a.TargetRoot),
			Command:     a.Command,
			IconPath:    ExpandPath(a.IconPath),
			SteamAppID:  a.SteamAppID,
		}
	}
	return apps, nil
}

// SaveApplication adds or updates one entry in the registry.
func SaveApplication(configDir string, app *domain.Application) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	apps, err := loadApplicationsLocked(configDir)
	if err != nil {
		return err
	}
	apps[app.ID] = app
	return saveApplicationsLocked(configDir, apps)
}

func saveApplicationsLocked(configDir string, apps map[string]*domain.Application) error {
	rf := registryFile{Applications: make(map[string]applicationYAML, len(apps))}
	for id, a := range apps {
		rf.Applications[id] = applicationYAML{
			Name:        a.Name,
			StagingRoot: a.StagingRoot,
			TargetRoot:  a.TargetRoot,
			Command:     a.Command,
			IconPath:    a.IconPath,
			SteamAppID:  a.SteamAppID,
		}
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("%w: marshaling applications: %v", domain.ErrParse, err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	path := filepath.Join(configDir, registryFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, path, err)
	}
	return nil
}

// DeleteApplication removes one entry from the registry.
func DeleteApplication(configDir, id string) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	apps, err := loadApplicationsLocked(configDir)
	if err != nil {
		return err
	}
	if _, ok := apps[id]; !ok {
		return fmt.Errorf("%w: application %q", domain.ErrNoSuchItem, id)
	}
	delete(apps, id)
	return saveApplicationsLocked(configDir, apps)
}
