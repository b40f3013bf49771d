package main

import (
	"fmt"

	"github.com/modstage/modstage/internal/appconfig"
	"github.com/modstage/modstage/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage configured applications",
	Long: `Manage the registry of applications this manager stages mods for.

Each application binds a staging root, a target root, and a launch
command; its installed mods, deployers and profiles live separately, in
that staging root's own state graph.`,
}

var (
	appAddTargetRoot string
	appAddCommand    string
	appAddIconPath   string
	appAddSteamAppID string
)

var appAddCmd = &cobra.Command{
	Use:   "add <id> <name> <staging-root>",
	Short: "Register a new application",
	Args:  cobra.ExactArgs(3),
	RunE:  runAppAdd,
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured applications",
	RunE:  runAppList,
}

var appRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an application from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runAppRemove,
}

func init() {
	appAddCmd.Flags().StringVar(&appAddTargetRoot, "target", "", "default deploy target root")
	appAddCmd.Flags().StringVar(&appAddCommand, "command", "", "launch command template")
	appAddCmd.Flags().StringVar(&appAddIconPath, "icon", "", "path to an icon file")
	appAddCmd.Flags().StringVar(&appAddSteamAppID, "steam-app-id", "", "Steam app id, if applicable")

	appCmd.AddCommand(appAddCmd, appListCmd, appRemoveCmd)
	rootCmd.AddCommand(appCmd)
}

func runAppAdd(cmd *cobra.Command, args []string) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}

	app := &domain.Application{
		ID:          args[0],
		Name:        args[1],
		StagingRoot: appconfig.ExpandPath(args[2]),
		TargetRoot:  appconfig.ExpandPath(appAddTargetRoot),
		Command:     appAddCommand,
		IconPath:    appconfig.ExpandPath(appAddIconPath),
		SteamAppID:  appAddSteamAppID,
	}
	if err := appconfig.SaveApplication(cfgDir, app); err != nil {
		return err
	}
	fmt.Printf("Registered application %q (%s)\n", app.ID, app.Name)
	return nil
}

func runAppList(cmd *cobra.Command, args []string) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	apps, err := appconfig.LoadApplications(cfgDir)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(apps)
	}

	if len(apps) == 0 {
		fmt.Println("No applications configured. Use 'lmm app add' to register one.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Staging Root", "Target Root", "Command"})
	for _, app := range apps {
		t.AppendRow(table.Row{app.ID, app.Name, app.StagingRoot, app.TargetRoot, app.Command})
	}
	t.Render()
	return nil
}

func runAppRemove(cmd *cobra.Command, args []string) error {
	_, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	if err := appconfig.DeleteApplication(cfgDir, args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed application %q from the registry\n", args[0])
	return nil
}
