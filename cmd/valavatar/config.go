package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"valavatar/pkg/config"
	"valavatar/pkg/ui"
)

const defaultConfigPath = ".valavatar.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage valavatar configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (VALAVATAR_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write a configuration file holding every option at its default value.

The file is created as '.valavatar.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Long: `Load configuration from every source and check it.

This command checks:
  - YAML syntax
  - Required fields and URLs
  - Value ranges`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration is valid")

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\nConfiguration summary:")
	fmt.Fprintf(w, "  Directory: %s (%s)\n", cfg.Directory.URL, cfg.Directory.Network)
	fmt.Fprintf(w, "  Page size: %d\n", cfg.Harvest.PageSize)
	fmt.Fprintf(w, "  Keybase rate: %d requests/minute\n", cfg.Keybase.RequestsPerMinute)
	fmt.Fprintf(w, "  Output directory: %s\n", cfg.Download.OutputDirectory)
	fmt.Fprintf(w, "  Concurrency: %d\n", cfg.Download.Concurrency)
	fmt.Fprintf(w, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
