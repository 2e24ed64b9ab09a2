package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"valavatar/pkg/pipeline"
	"valavatar/pkg/ui"
)

var (
	// Run command flags
	directoryURL string
	network      string
	skipChains   []string
	offsetLCDs   []string
	pageSize     int
	concurrency  int
	outputDir    string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest identities and download every avatar",
	Long: `Harvest validator identities from every chain in the directory, then
resolve each unique identity through Keybase and download its avatar.

Endpoints that fail mid-walk keep the identities gathered so far. Identities
without a Keybase key or picture are listed at the end, as are downloads that
failed. The exit status is non-zero only when the configuration is invalid or
the chain directory cannot be fetched.`,
	Example: `  # Download avatars for all mainnet chains into ./images
  valavatar run

  # Skip a chain and use four download slots
  valavatar run --skip-chain columbus-5 --concurrency 4

  # Treat an extra LCD as offset-paginated
  valavatar run --offset-lcd https://lcd.example.com`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	addHarvestFlags(cmd)
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "maximum identities resolved and downloaded at once")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "images", "directory avatars are written to")
}

func addHarvestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&directoryURL, "directory-url", "", "chain directory URL (default: Terra Station chains.json)")
	cmd.Flags().StringVar(&network, "network", "", "directory network to read (default: mainnet)")
	cmd.Flags().StringSliceVar(&skipChains, "skip-chain", nil, "chain ID to skip (repeatable)")
	cmd.Flags().StringSliceVar(&offsetLCDs, "offset-lcd", nil, "LCD URL that paginates by offset (repeatable)")
	cmd.Flags().IntVar(&pageSize, "page-size", 100, "validators requested per page")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ui.PrintLogo()

	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	log, err := initLogger(cfg)
	if err != nil {
		return err
	}

	ui.PrintInfo("Directory", cfg.Directory.URL+" ("+cfg.Directory.Network+")")
	ui.PrintInfo("Output", cfg.Download.OutputDirectory)
	ui.PrintInfo("Concurrency", strconv.Itoa(cfg.Download.Concurrency))

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg, log)
	if err != nil {
		ui.PrintError("Failed to initialize pipeline", err.Error())
		return err
	}

	ui.PrintHighlight("[HARVESTING VALIDATOR IDENTITIES]")
	report, err := p.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Run failed")
		ui.PrintError("Run failed", err.Error())
		if report != nil && len(report.Identities) > 0 {
			ui.PrintSummary(report)
		}
		return err
	}

	ui.PrintSummary(report)
	ui.PrintSuccess(fmt.Sprintf("[%d AVATARS SAVED]", len(report.Downloaded)))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
