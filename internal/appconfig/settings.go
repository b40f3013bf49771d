// Package appconfig holds the manager-wide settings and application
// registry: state that lives above any single application's staging
// graph, analogous to the teacher's config.yaml/games.yaml side-store.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modstage/modstage/internal/domain"

	"gopkg.in/yaml.v3"
)

// Settings holds manager-wide preferences that apply across every
// configured application: default deploy mode, color mode, log
// level/path, and the data root new applications default into.
type Settings struct {
	DefaultDeployMode domain.DeployMode `yaml:"-"`
	DeployModeStr     string            `yaml:"default_deploy_mode"`
	Color             string            `yaml:"color"` // auto, always, never
	LogLevel          string            `yaml:"log_level"`
	LogPath           string            `yaml:"log_path"`
	DataRoot          string            `yaml:"data_root"`
}

const settingsFileName = "config.yaml"

// LoadSettings reads <configDir>/config.yaml, returning defaults if it
// does not yet exist.
func LoadSettings(configDir string) (*Settings, error) {
	s := &Settings{
		DefaultDeployMode: domain.DeploySymlink,
		Color:             "auto",
		LogLevel:          "info",
	}

	path := filepath.Join(configDir, settingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrPathIO, path, err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrParse, path, err)
	}
	if s.DeployModeStr != "" {
		s.DefaultDeployMode = domain.ParseDeployMode(s.DeployModeStr)
	}
	return s, nil
}

// Save writes s to <configDir>/config.yaml, creating the directory if
// needed.
func (s *Settings) Save(configDir string) error {
	s.DeployModeStr = s.DefaultDeployMode.String()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: marshaling settings: %v", domain.ErrParse, err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPathIO, err)
	}
	path := filepath.Join(configDir, settingsFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, path, err)
	}
	return nil
}

// ColorEnabled resolves the effective color mode against the NO_COLOR
// convention (https://no-color.org): an explicit "never" or a non-empty
// NO_COLOR environment variable both win over "auto"/"always".
func (s *Settings) ColorEnabled() bool {
	if s.Color == "never" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if s.Color == "always" {
		return true
	}
	return true
}
