package main

import (
	"fmt"
	"strconv"

	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/logging"
	"github.com/modstage/modstage/internal/staging"

	"github.com/spf13/cobra"
)

var modCmd = &cobra.Command{
	Use:   "mod",
	Short: "Manage individual mods and version groups",
	Long:  `Commands for replacing mod payloads, splitting mixed installs, and managing version groups.`,
}

var (
	replaceName    string
	replaceVersion string
	replaceCase    string
	replayLayout   string
)

var modReplaceCmd = &cobra.Command{
	Use:   "replace <mod-id> <source>",
	Short: "Reinstall a mod in place from a new source",
	Long: `Replace reinstalls the given mod id from a fresh source payload,
keeping its id, group membership, and every deployer assignment. If the
mod's files previously extended into a sub-deployer's target, that
subtree is automatically re-split out after the replace.

Examples:
  lmm mod replace 4 ./SkyUI_5_2b.7z --version 5.2b`,
	Args: cobra.ExactArgs(2),
	RunE: runModReplace,
}

var modSplitCmd = &cobra.Command{
	Use:   "split <mod-id> <deployer>",
	Short: "Split the subtree of a mod that falls under a sub-deployer",
	Long: `Split extracts the portion of a mod's payload that lives under a
sub-deployer's target directory (a subdirectory of the given parent
deployer's target) into a new mod assigned only to that sub-deployer.

Examples:
  lmm mod split 4 main`,
	Args: cobra.ExactArgs(2),
	RunE: runModSplit,
}

func init() {
	modReplaceCmd.Flags().StringVar(&replaceName, "name", "", "new display name (default: keep current)")
	modReplaceCmd.Flags().StringVar(&replaceVersion, "version", "", "new version string")
	modReplaceCmd.Flags().StringVar(&replaceCase, "case", "", "rename extracted paths: preserve, lower, upper")
	modReplaceCmd.Flags().StringVar(&replayLayout, "layout", "", "directory layout: preserve, single")

	modCmd.AddCommand(modReplaceCmd, modSplitCmd)
	rootCmd.AddCommand(modCmd)
}

func runModReplace(cmd *cobra.Command, args []string) error {
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

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid mod id %q: %w", args[0], err)
	}
	mod, ok := c.Mods[id]
	if !ok {
		return fmt.Errorf("no such mod %d", id)
	}

	installCase, installLayout = replaceCase, replayLayout
	flags, err := installFlags()
	if err != nil {
		return err
	}
	name := replaceName
	if name == "" {
		name = mod.Name
	}

	opID := logging.NewOperationID()
	lg.Info("replacing mod", logging.F("op", opID), logging.F("mod_id", id), logging.F("source", args[1]))

	c.Mu.Lock()
	err = c.ReplaceMod(id, staging.InstallOptions{
		Source:  args[1],
		Name:    name,
		Version: replaceVersion,
		Flags:   flags,
		Type:    installer.Simple,
	})
	saveErr := c.Save()
	c.Mu.Unlock()
	if err != nil {
		lg.Error("replace failed", logging.F("op", opID), logging.F("error", err))
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	fmt.Printf("Replaced mod %d (%s)\n", id, name)
	return nil
}

func runModSplit(cmd *cobra.Command, args []string) error {
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

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid mod id %q: %w", args[0], err)
	}

	c.Mu.Lock()
	err = c.SplitMod(id, args[1])
	saveErr := c.Save()
	c.Mu.Unlock()
	if err != nil {
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	fmt.Printf("Split mod %d against deployer %q\n", id, args[1])
	return nil
}
