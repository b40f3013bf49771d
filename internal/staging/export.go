package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/modstage/modstage/internal/domain"
)

// exportedDeployer is the portable, mod-state-free description of a
// deployer definition written by ExportConfiguration.
type exportedDeployer struct {
	Type                domain.DeployerType `json:"type"`
	Name                string              `json:"name"`
	SourcePath          string              `json:"source_path"`
	TargetPath          string              `json:"target_path"`
	DeployMode          string              `json:"deploy_mode"`
	EnableUnsafeSorting bool                `json:"enable_unsafe_sorting,omitempty"`
}

type exportedTag struct {
	Name      string `json:"name"`
	Evaluator string `json:"evaluator"`
}

// ExportedConfig is the on-disk shape written by ExportConfiguration and
// read back by ImportConfiguration.
type ExportedConfig struct {
	Deployers []exportedDeployer `json:"deployers"`
	AutoTags  []exportedTag      `json:"auto_tags"`
}

// SteamContext supplies the path fragments ExportConfiguration rewrites
// to portable placeholders.
type SteamContext struct {
	AppID string // steamapps/common/<app>, steamapps/compatdata/<AppID>/pfx/...
	Home  string
}

// ExportConfiguration serializes every deployer definition and the named
// auto-tags (all of them, if names is empty) to destPath, rewriting
// source/target paths under Steam-standard prefixes and $HOME as portable
// placeholders so the file can be replayed on another machine.
func (c *Controller) ExportConfiguration(destPath string, steam SteamContext, autoTagNames []string) error {
	cfg := ExportedConfig{}
	for _, b := range c.deployers {
		cfg.Deployers = append(cfg.Deployers, exportedDeployer{
			Type:                b.Record.Type,
			Name:                b.Record.Name,
			SourcePath:          portablePath(b.Record.SourcePath, steam),
			TargetPath:          portablePath(b.Record.TargetPath, steam),
			DeployMode:          b.Record.DeployMode.String(),
			EnableUnsafeSorting: b.Record.EnableUnsafeSorting,
		})
	}

	wanted := make(map[string]bool, len(autoTagNames))
	for _, n := range autoTagNames {
		wanted[n] = true
	}
	for _, t := range c.AutoTags {
		if len(autoTagNames) == 0 || wanted[t.Name] {
			cfg.AutoTags = append(cfg.AutoTags, exportedTag{Name: t.Name, Evaluator: t.Evaluator})
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, destPath, err)
	}
	return nil
}

// portablePath rewrites a Steam compatdata path, a Steam common-install
// path, or a $HOME-rooted path into a placeholder form, leaving any other
// path untouched.
func portablePath(p string, steam SteamContext) string {
	if steam.AppID != "" {
		prefix := "/steamapps/compatdata/" + steam.AppID + "/pfx/"
		if idx := strings.Index(p, prefix); idx >= 0 {
			return "{COMPATDATA}/" + p[idx+len(prefix):]
		}
	}
	const commonPrefix = "/steamapps/common/"
	if idx := strings.Index(p, commonPrefix); idx >= 0 {
		rest := p[idx+len(commonPrefix):]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			return "{STEAMAPP:" + rest[:slash] + "}" + rest[slash:]
		}
		return "{STEAMAPP:" + rest + "}"
	}
	if steam.Home != "" && strings.HasPrefix(p, steam.Home) {
		return "{HOME}" + strings.TrimPrefix(p, steam.Home)
	}
	return p
}
