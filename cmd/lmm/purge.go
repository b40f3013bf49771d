package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/modstage/modstage/internal/logging"

	"github.com/spf13/cobra"
)

var (
	purgeYes      bool
	purgeDeployer string
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Undeploy mods without uninstalling them",
	Long: `Purge undeploys one or more deployers, removing their links/files
from the target directory while leaving staged mods and their deployer
assignments untouched. Use 'lmm deploy' afterward to restore them.

Without --deployer, every registered deployer is purged.

Examples:
  lmm purge
  lmm purge --deployer main --yes`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "skip confirmation prompt")
	purgeCmd.Flags().StringVar(&purgeDeployer, "deployer", "", "comma-separated deployer names (default: all)")

	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
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
	if purgeDeployer != "" {
		names = nil
		for _, n := range strings.Split(purgeDeployer, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no deployers registered")
	}

	if !purgeYes {
		fmt.Printf("This will undeploy %d deployer(s): %v\n", len(names), names)
		fmt.Print("Continue? [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		response := strings.TrimSpace(strings.ToLower(line))
		if response != "y" && response != "yes" {
			return ErrCancelled
		}
	}

	opID := logging.NewOperationID()
	lg.Info("purging", logging.F("op", opID), logging.F("deployers", names))

	c.Mu.Lock()
	results := c.Undeploy(names)
	saveErr := c.Save()
	c.Mu.Unlock()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			lg.Error("undeploy failed", logging.F("op", opID), logging.F("deployer", r.Name), logging.F("error", r.Err))
			fmt.Printf("  ✗ %s - %v\n", r.Name, r.Err)
			continue
		}
		fmt.Printf("  ✓ %s\n", r.Name)
	}
	if saveErr != nil {
		return saveErr
	}

	if failed > 0 {
		return fmt.Errorf("%d deployer(s) failed to undeploy", failed)
	}
	fmt.Println("\nMod records preserved. Use 'lmm deploy' to restore mods.")
	return nil
}
