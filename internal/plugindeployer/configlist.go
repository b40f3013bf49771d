package plugindeployer

// ConfigList is the plugin-deployer variant for config-based games (e.g.
// engines reading an .cfg/.ini file) that maintain their load order as a
// sequence of "content=…" lines rather than a separate plugins file.
type ConfigList struct {
	*Base

	ConfigFile string
	Prefix     string // "content="
}

// NewConfigList constructs a ConfigList variant targeting ConfigFile's
// content lines.
func NewConfigList(name, source, target, configFile string) *ConfigList {
	b := NewBase(name, source, target)
	return &ConfigList{Base: b, ConfigFile: configFile, Prefix: "content="}
}

// RewriteConfig replaces every existing Prefix-line with one per enabled
// plugin, in load-order order, preserving everything else in the file.
func (c *ConfigList) RewriteConfig() error {
	var lines []string
	for _, p := range c.Plugins {
		if p.Enabled {
			lines = append(lines, c.Prefix+p.Name)
		}
	}
	return surgicalRewrite(c.ConfigFile, c.Prefix, lines)
}
