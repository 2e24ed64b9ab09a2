package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"valavatar/pkg/pipeline"
	"valavatar/pkg/ui"
)

// identitiesCmd represents the identities command
var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Print the deduplicated validator identities without downloading",
	Long: `Walk every chain in the directory and print the unique validator
identities, one per line, in sorted order. Nothing is resolved or downloaded.`,
	Example: `  valavatar identities -q > identities.txt`,
	Args:    cobra.NoArgs,
	RunE:    runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	addHarvestFlags(identitiesCmd)
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	log, err := initLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()

	p := pipeline.NewHarvestOnly(cfg, log)
	report, err := p.Harvest(ctx)
	if err != nil {
		ui.PrintError("Harvest failed", err.Error())
		return err
	}

	w := cmd.OutOrStdout()
	for _, id := range report.Identities {
		fmt.Fprintln(w, id)
	}
	return nil
}
