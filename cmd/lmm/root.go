package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modstage/modstage/internal/appconfig"
	"github.com/modstage/modstage/internal/domain"
	"github.com/modstage/modstage/internal/installer"
	"github.com/modstage/modstage/internal/logging"
	"github.com/modstage/modstage/internal/staging"

	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user declines an interactive prompt.
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "1.0.0"

	configDir  string
	dataDir    string
	appID      string
	profile    string
	verbose    bool
	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "lmm",
	Short:         "A staging-based mod manager",
	Long:          `lmm stages mod payloads per application and deploys them onto a target directory via hardlink, symlink, or copy, tracking conflicts, load order, groups and tags along the way.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/lmm)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/lmm)")
	rootCmd.PersistentFlags().StringVarP(&appID, "app", "a", "", "application id to operate on")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (not read by any command; commands act on the active profile)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command. Exit codes: 0 success, 1 error, 2
// user-cancelled. With --json set, an error is printed as {"error":"..."}
// instead of to stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrCancelled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func defaultConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lmm"), nil
}

func defaultDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "lmm"), nil
}

// loadSettings reads the manager-wide settings, creating the config
// directory if it does not yet exist.
func loadSettings() (*appconfig.Settings, string, error) {
	cfgDir, err := defaultConfigDir()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating config dir: %w", err)
	}
	settings, err := appconfig.LoadSettings(cfgDir)
	if err != nil {
		return nil, "", err
	}
	return settings, cfgDir, nil
}

// newLogger builds the process-wide logger from settings and the
// --verbose/--no-color flags.
func newLogger(settings *appconfig.Settings, dataDir string) *logging.Logger {
	level := logging.ParseLevel(settings.LogLevel)
	if verbose {
		level = logging.LevelDebug
	}
	color := settings.Color
	if noColor {
		color = "never"
	}
	logPath := settings.LogPath
	if logPath == "" {
		logPath = filepath.Join(dataDir, "lmm.log")
	}
	return logging.New(logging.Config{
		Level:      level,
		FilePath:   logPath,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Color:      color,
	})
}

// requireApp resolves the application to operate on, falling back to the
// sole registered application when --app is omitted and exactly one is
// configured.
func requireApp(cfgDir string) (*domain.Application, error) {
	apps, err := appconfig.LoadApplications(cfgDir)
	if err != nil {
		return nil, err
	}
	if appID != "" {
		app, ok := apps[appID]
		if !ok {
			return nil, fmt.Errorf("no such application %q; configure one with 'lmm app add'", appID)
		}
		return app, nil
	}
	if len(apps) == 1 {
		for _, app := range apps {
			return app, nil
		}
	}
	return nil, fmt.Errorf("no application specified; use --app or -a, or configure exactly one with 'lmm app add'")
}

// openController loads (or, on first use, creates) the staging controller
// for app.
func openController(app *domain.Application) (*staging.Controller, error) {
	if err := os.MkdirAll(app.StagingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}
	inst := installer.New()
	deps := staging.Dependencies{}

	if _, err := os.Stat(filepath.Join(app.StagingRoot, "lmm.json")); err == nil {
		return staging.Load(app.StagingRoot, inst, deps)
	}

	c := staging.New(app.StagingRoot, inst)
	c.Name = app.Name
	c.Command = app.Command
	c.IconPath = app.IconPath
	c.SteamAppID = app.SteamAppID
	return c, nil
}

// profileOrCurrent resolves --profile against the controller's current
// profile when the flag is unset.
func profileOrCurrent(c *staging.Controller) string {
	if profile != "" {
		return profile
	}
	return c.CurrentProfile()
}
