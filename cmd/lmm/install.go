package main

import (
	"fmt"
	"strings"

	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/logging"
	"github.com/modstage/modstage/internal/staging"

	"github.com/spf13/cobra"
)

var (
	installName    string
	installVersion string
	installCase    string
	installLayout  string
	installGroup   int
	installDeploy  string
)

var installCmd = &cobra.Command{
	Use:   "install <source>",
	Short: "Install a mod into staging",
	Long: `Install extracts an archive or copies a directory into a fresh
staging subdirectory, records it as an installed mod, and optionally
joins a version group and assigns it to one or more deployers.

Examples:
  lmm install ./SkyUI_5_2.7z --name SkyUI --version 5.2 --deploy main
  lmm install ./retex.zip --name "HD Retexture" --deploy main --case lower`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installName, "name", "", "display name for the installed mod (required)")
	installCmd.Flags().StringVar(&installVersion, "version", "", "version string")
	installCmd.Flags().StringVar(&installCase, "case", "", "rename extracted paths: preserve, lower, upper")
	installCmd.Flags().StringVar(&installLayout, "layout", "", "directory layout: preserve, single")
	installCmd.Flags().IntVar(&installGroup, "group", -1, "join the version group at this group index")
	installCmd.Flags().StringVar(&installDeploy, "deploy", "", "comma-separated deployer names to assign this mod to")
	_ = installCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(installCmd)
}

func installFlags() (installer.Flag, error) {
	var flags installer.Flag
	switch installCase {
	case "", "preserve":
		flags |= installer.PreserveCase
	case "lower":
		flags |= installer.LowerCase
	case "upper":
		flags |= installer.UpperCase
	default:
		return 0, fmt.Errorf("invalid --case %q: must be preserve, lower, or upper", installCase)
	}
	switch installLayout {
	case "", "preserve":
		flags |= installer.PreserveDirectories
	case "single":
		flags |= installer.SingleDirectory
	default:
		return 0, fmt.Errorf("invalid --layout %q: must be preserve or single", installLayout)
	}
	return flags, nil
}

func runInstall(cmd *cobra.Command, args []string) error {
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

	flags, err := installFlags()
	if err != nil {
		return err
	}

	var deployNames []string
	if installDeploy != "" {
		for _, n := range strings.Split(installDeploy, ",") {
			if n = strings.TrimSpace(n); n != "" {
				deployNames = append(deployNames, n)
			}
		}
	}

	opID := logging.NewOperationID()
	lg.Info("installing mod", logging.F("op", opID), logging.F("source", args[0]), logging.F("name", installName))

	c.Mu.Lock()
	mod, err := c.InstallMod(staging.InstallOptions{
		Source:  args[0],
		Name:    installName,
		Version: installVersion,
		Flags:   flags,
		Type:    installer.Simple,
		GroupID: installGroup,
		Deploy:  deployNames,
	})
	saveErr := c.Save()
	c.Mu.Unlock()
	if err != nil {
		lg.Error("install failed", logging.F("op", opID), logging.F("error", err))
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	lg.Info("install complete", logging.F("op", opID), logging.F("mod_id", mod.ID), logging.F("size", mod.SizeOnDisk))

	if jsonOutput {
		return printJSON(mod)
	}
	fmt.Printf("Installed %q as mod %d (%s)\n", mod.Name, mod.ID, humanizeBytes(mod.SizeOnDisk))
	return nil
}
