package main

import (
	"fmt"

	"github.com/modstage/modstage/internal/logging"
	"github.com/modstage/modstage/internal/staging"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage per-application profiles",
	Long: `A profile is a named load-order-and-groups-and-app-version
container. Exactly one profile is active at a time; switching updates
every deployer's live load order without re-deploying.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfileList,
}

var profileCloneFrom string

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Long: `Create adds an empty profile, or one cloned from an existing
profile's load orders and app version via --from.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileCreate,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Switch the active profile",
	Long: `Switch points every deployer and the backup manager at the named
profile's state. It does not re-deploy; run 'lmm deploy' afterward to
bring the target directory in line.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSwitch,
}

func init() {
	profileCreateCmd.Flags().StringVar(&profileCloneFrom, "from", "", "clone load orders and app version from this profile")

	profileCmd.AddCommand(profileListCmd, profileCreateCmd, profileDeleteCmd, profileSwitchCmd)
	rootCmd.AddCommand(profileCmd)
}

type profileView struct {
	Name       string `json:"name"`
	AppVersion string `json:"app_version,omitempty"`
	Active     bool   `json:"active"`
}

func runProfileList(cmd *cobra.Command, args []string) error {
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

	views := make([]profileView, len(c.Profiles))
	for i, p := range c.Profiles {
		views[i] = profileView{Name: p.Name, AppVersion: p.AppVersion, Active: p.Name == c.CurrentProfile()}
	}

	if jsonOutput {
		return printJSON(views)
	}

	t := newTable()
	t.AppendHeader(table.Row{"Name", "App Version", "Active"})
	for _, v := range views {
		active := ""
		if v.Active {
			active = "*"
		}
		t.AppendRow(table.Row{v.Name, v.AppVersion, active})
	}
	t.Render()
	return nil
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	return withController(func(c *staging.Controller) error {
		return c.CreateProfile(args[0], profileCloneFrom)
	})
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	return withController(func(c *staging.Controller) error {
		return c.RemoveProfile(args[0])
	})
}

func runProfileSwitch(cmd *cobra.Command, args []string) error {
	settings, cfgDir, err := loadSettings()
	if err != nil {
		return err
	}
	dataDir, err := defaultDataDir()
	if err != nil {
		return err
	}
	lg := newLogger(settings, dataDir)
	defer lg.Close()

	app, err := requireApp(cfgDir)
	if err != nil {
		return err
	}
	c, err := openController(app)
	if err != nil {
		return err
	}

	opID := logging.NewOperationID()
	lg.Info("switching profile", logging.F("op", opID), logging.F("profile", args[0]))

	c.Mu.Lock()
	err = c.SetProfile(args[0])
	saveErr := c.Save()
	c.Mu.Unlock()
	if err != nil {
		lg.Error("profile switch failed", logging.F("op", opID), logging.F("error", err))
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	if jsonOutput {
		return printJSON(map[string]any{"active_profile": args[0]})
	}
	fmt.Printf("Switched to profile %q\n", args[0])
	return nil
}
