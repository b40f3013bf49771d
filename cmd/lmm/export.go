package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/modstage/modstage/internal/staging"

	"github.com/spf13/cobra"
)

var exportTags string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export deployer definitions and auto-tags to a portable file",
	Long: `Export writes every deployer definition and the selected auto-tag
definitions (all of them, by default) to a JSON file, rewriting paths
under the Steam install/compatdata prefixes and $HOME as portable
placeholders.

Examples:
  lmm export layout.json
  lmm export layout.json --tags light,master`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTags, "tags", "", "comma-separated auto-tag names (default: all)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	app, err := requireApp(cfgDir)
	if err != nil {
		return err
	}
	c, err := openController(app)
	if err != nil {
		return err
	}

	var tags []string
	if exportTags != "" {
		for _, n := range strings.Split(exportTags, ",") {
			if n = strings.TrimSpace(n); n != "" {
				tags = append(tags, n)
			}
		}
	}

	home, _ := os.UserHomeDir()
	steam := staging.SteamContext{AppID: app.SteamAppID, Home: home}
	if err := c.ExportConfiguration(args[0], steam, tags); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"exported": args[0]})
	}
	fmt.Printf("Exported configuration to %s\n", args[0])
	return nil
}
