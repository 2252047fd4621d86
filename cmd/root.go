package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicer/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Invoicer - unattended batch invoice valuation and rendering",
	Long: `Invoicer converts batches of customer billing records (delimited text
files in a drop folder) into finalized invoice documents, applying
jurisdiction- and customer-specific tax rules, late-fee accrual, and
bulk-order discounts.

A single malformed row or file never aborts a batch: failures are
isolated per file and per record, logged, and the run continues.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Invoicer - batch invoice processing")
		fmt.Println("Use --help to see available commands and options.")
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
