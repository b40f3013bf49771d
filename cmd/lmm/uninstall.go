package main

import (
	"fmt"
	"strconv"

	"github.com/modstage/modstage/internal/logging"
	"github.com/modstage/modstage/internal/staging"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <mod-id>...",
	Short: "Uninstall one or more mods",
	Long: `Uninstall removes the given mods from every group, deployer load
order, and manual tag, then deletes their staging files.

Examples:
  lmm uninstall 12
  lmm uninstall 12 13 14`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

// parseModIDs validates the positional mod-id arguments against the
// controller's known mods, returning ids in the same order as args.
func parseModIDs(c *staging.Controller, args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid mod id %q: %w", a, err)
		}
		if _, ok := c.Mods[id]; !ok {
			return nil, fmt.Errorf("no such mod %d", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
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

	ids, err := parseModIDs(c, args)
	if err != nil {
		return err
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = c.Mods[id].Name
	}

	opID := logging.NewOperationID()
	lg.Info("uninstalling mods", logging.F("op", opID), logging.F("ids", args))

	c.Mu.Lock()
	err = c.UninstallMods(ids)
	saveErr := c.Save()
	c.Mu.Unlock()
	if err != nil {
		lg.Error("uninstall failed", logging.F("op", opID), logging.F("error", err))
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	if jsonOutput {
		return printJSON(map[string]any{"uninstalled": ids})
	}
	for i, id := range ids {
		fmt.Printf("Uninstalled mod %d (%s)\n", id, names[i])
	}
	return nil
}
