package main

import (
	"fmt"
	"strings"

	"github.com/modstage/modstage/internal/logging"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var deployNames string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy mods through one or more deployers",
	Long: `Deploy runs each named deployer's Deploy step in priority order:
link-based deployers first, then load-order plugin deployers, then any
reverse deployer last. Re-running deploy against an already-deployed
target re-syncs it; deploy is safe to repeat.

Without --deployer, every registered deployer runs.

Examples:
  lmm deploy
  lmm deploy --deployer main
  lmm deploy --deployer main,plugins`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployNames, "deployer", "", "comma-separated deployer names (default: all)")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
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

	names := c.DeployerNames()
	if deployNames != "" {
		names = nil
		for _, n := range strings.Split(deployNames, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no deployers registered; add one before running deploy")
	}

	opID := logging.NewOperationID()
	lg.Info("deploying", logging.F("op", opID), logging.F("deployers", names))

	c.Mu.Lock()
	results := c.Deploy(names)
	saveErr := c.Save()
	c.Mu.Unlock()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			lg.Error("deployer failed", logging.F("op", opID), logging.F("deployer", r.Name), logging.F("error", r.Err))
		}
	}
	if saveErr != nil {
		return saveErr
	}

	if jsonOutput {
		return printJSON(results)
	}

	t := newTable()
	t.AppendHeader(table.Row{"Deployer", "Mods", "Bytes", "Status"})
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		var total int64
		for _, size := range r.Totals {
			total += size
		}
		t.AppendRow(table.Row{r.Name, len(r.Totals), humanizeBytes(total), status})
	}
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d deployer(s) failed", failed)
	}
	return nil
}
