package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var conflictsDeployer string

type conflictGroupView struct {
	Deployer string   `json:"deployer"`
	ModIDs   []int    `json:"mod_ids"`
	ModNames []string `json:"mod_names"`
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Show mod-conflict groups for a deployer",
	Long: `Conflicts recomputes and lists the current conflict groups for a
deployer: sets of two or more mods that touch the same relative path in
its load order. The last mod in load order wins each path; everyone
else in the group is shadowed on at least one file. The last group
lists the mods that conflict with no other mod; it may be empty.

Examples:
  lmm conflicts --deployer main`,
	RunE: runConflicts,
}

func init() {
	conflictsCmd.Flags().StringVar(&conflictsDeployer, "deployer", "", "deployer name (required)")
	_ = conflictsCmd.MarkFlagRequired("deployer")
	rootCmd.AddCommand(conflictsCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
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

	groups, err := c.ConflictGroups(conflictsDeployer)
	if err != nil {
		return err
	}

	views := make([]conflictGroupView, len(groups))
	for i, g := range groups {
		names := make([]string, len(g.ModIDs))
		for j, id := range g.ModIDs {
			if mod, ok := c.Mods[id]; ok {
				names[j] = mod.Name
			}
		}
		views[i] = conflictGroupView{Deployer: conflictsDeployer, ModIDs: g.ModIDs, ModNames: names}
	}

	if jsonOutput {
		return printJSON(views)
	}

	if len(views) == 0 {
		fmt.Println("No conflicts found.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Group", "Mods"})
	for i, v := range views {
		t.AppendRow(table.Row{i, fmt.Sprint(v.ModNames)})
	}
	t.Render()
	return nil
}
