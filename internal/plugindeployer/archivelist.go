package plugindeployer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/modstage/modstage/internal/domain"
)

// ArchiveList is the plugin-deployer variant that manages a game's
// archive-list section of a config file by surgically rewriting only
// "fallback-archive=…" lines, leaving everything else untouched.
type ArchiveList struct {
	*Base

	ConfigFile string
	Prefix     string // "fallback-archive="
}

// NewArchiveList constructs an ArchiveList variant targeting ConfigFile's
// fallback-archive lines.
func NewArchiveList(name, source, target, configFile string) *ArchiveList {
	b := NewBase(name, source, target)
	return &ArchiveList{Base: b, ConfigFile: configFile, Prefix: "fallback-archive="}
}

// RewriteConfig replaces every existing Prefix-line in ConfigFile with one
// line per enabled plugin, preserving every other line verbatim and in
// place (first match position is reused; subsequent plugin lines follow
// immediately after).
func (a *ArchiveList) RewriteConfig() error {
	return surgicalRewrite(a.ConfigFile, a.Prefix, a.enabledLines())
}

func (a *ArchiveList) enabledLines() []string {
	var lines []string
	for _, p := range a.Plugins {
		if p.Enabled {
			lines = append(lines, a.Prefix+p.Name)
		}
	}
	return lines
}

// surgicalRewrite reads path, drops every line starting with prefix, and
// reinserts replacement at the position of the first dropped line (or
// appends, if none was found).
func surgicalRewrite(path, prefix string, replacement []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", domain.ErrPathIO, path, err)
	}

	var out []string
	inserted := false
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, prefix) {
			if !inserted {
				out = append(out, replacement...)
				inserted = true
			}
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if !inserted {
		out = append(out, replacement...)
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", domain.ErrPathIO, path, err)
	}
	return nil
}
