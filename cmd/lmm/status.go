package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current application's status",
	Long: `Status summarizes the configured application: its staging and
target roots, active profile, registered deployers, and mod/group/tag
counts.

Examples:
  lmm status
  lmm status --app skyrim-se`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusDeployerView struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type statusOutput struct {
	App            string               `json:"app"`
	StagingRoot    string               `json:"staging_root"`
	TargetRoot     string               `json:"target_root"`
	ActiveProfile  string               `json:"active_profile"`
	Profiles       []string             `json:"profiles"`
	ModCount       int                  `json:"mod_count"`
	GroupCount     int                  `json:"group_count"`
	ManualTagCount int                  `json:"manual_tag_count"`
	AutoTagCount   int                  `json:"auto_tag_count"`
	Deployers      []statusDeployerView `json:"deployers"`
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	profileNames := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		profileNames[i] = p.Name
	}

	deployers := make([]statusDeployerView, 0, len(c.DeployerRecords()))
	for _, r := range c.DeployerRecords() {
		deployers = append(deployers, statusDeployerView{Name: r.Name, Type: string(r.Type)})
	}

	out := statusOutput{
		App:            app.Name,
		StagingRoot:    c.StagingRoot,
		TargetRoot:     app.TargetRoot,
		ActiveProfile:  c.CurrentProfile(),
		Profiles:       profileNames,
		ModCount:       len(c.Mods),
		GroupCount:     len(c.Groups),
		ManualTagCount: len(c.ManualTags),
		AutoTagCount:   len(c.AutoTags),
		Deployers:      deployers,
	}

	if jsonOutput {
		return printJSON(out)
	}

	fmt.Printf("Application: %s\n", out.App)
	fmt.Printf("  Staging root: %s\n", out.StagingRoot)
	fmt.Printf("  Target root:  %s\n", out.TargetRoot)
	fmt.Printf("  Profiles: %v (active: %s)\n", out.Profiles, out.ActiveProfile)
	fmt.Println()
	fmt.Printf("Mods: %d, Groups: %d, Manual tags: %d, Auto tags: %d\n", out.ModCount, out.GroupCount, out.ManualTagCount, out.AutoTagCount)
	fmt.Println()
	if len(out.Deployers) == 0 {
		fmt.Println("No deployers registered.")
		return nil
	}
	fmt.Println("Deployers:")
	for _, d := range out.Deployers {
		fmt.Printf("  - %s (%s)\n", d.Name, d.Type)
	}
	return nil
}
