package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed mods",
	Long: `List prints every mod staged for the current application, in mod
id order, along with its version and on-disk size.

Examples:
  lmm list
  lmm list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

type modListEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Size    int64  `json:"size_on_disk"`
	Group   int    `json:"group_id"`
}

func runList(cmd *cobra.Command, args []string) error {
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

	ids := sortedModIDs(c.Mods)

	if jsonOutput {
		entries := make([]modListEntry, len(ids))
		for i, id := range ids {
			mod := c.Mods[id]
			entries[i] = modListEntry{ID: mod.ID, Name: mod.Name, Version: mod.Version, Size: mod.SizeOnDisk, Group: c.GroupOf(id)}
		}
		return printJSON(entries)
	}

	if len(ids) == 0 {
		fmt.Println("No mods installed.")
		return nil
	}

	fmt.Printf("%s (profile: %s) — %d mod(s)\n\n", app.Name, c.CurrentProfile(), len(ids))

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Version", "Size", "Group"})
	for _, id := range ids {
		mod := c.Mods[id]
		group := "-"
		if g := c.GroupOf(id); g != -1 {
			group = fmt.Sprint(g)
		}
		t.AppendRow(table.Row{mod.ID, mod.Name, mod.Version, humanizeBytes(mod.SizeOnDisk), group})
	}
	t.Render()
	return nil
}
