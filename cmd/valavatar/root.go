package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"valavatar/pkg/config"
	"valavatar/pkg/logger"
	"valavatar/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "valavatar",
	Short: "Harvest validator avatars from Cosmos chains via Keybase",
	Long: `valavatar collects the Keybase identity of every validator on a set of
Cosmos SDK chains and downloads each identity's avatar.

The chain list comes from a remote directory (Terra Station's chains.json by
default). Every chain's LCD endpoint is paged through for validator
identities, the identities are deduplicated, and each one is resolved through
Keybase to its primary picture, which is saved as <output>/<identity>.<ext>.

Running valavatar without a subcommand is the same as 'valavatar run'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
	RunE: runHarvest,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.valavatar.yaml or ~/.config/valavatar/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and the final summary")

	// run flags also live on root so a bare 'valavatar' accepts them
	addRunFlags(rootCmd)

	rootCmd.SetVersionTemplate(`valavatar {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the changed flags of cmd over file, env and defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configFile, collectFlags(cmd))
}

// collectFlags returns only flags the user actually set, keyed by name
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()

	for _, name := range []string{"directory-url", "network", "output"} {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"skip-chain", "offset-lcd"} {
		if fs.Changed(name) {
			v, _ := fs.GetStringSlice(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"page-size", "concurrency"} {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			flags[name] = v
		}
	}
	if fs.Changed("log-level") {
		flags["log-level"] = logLevel
	}

	return flags
}

// initLogger installs the global logger for cfg
func initLogger(cfg *config.Config) (logger.Logger, error) {
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("valavatar starting")
	return log, nil
}
