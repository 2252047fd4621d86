package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/batch"
	"invoicer/internal/config"
	"invoicer/internal/errlog"
	"invoicer/internal/logger"
	"invoicer/internal/notify"
	"invoicer/internal/orchestrator"
	"invoicer/internal/policy"
	"invoicer/internal/render"
	"invoicer/internal/valuation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all pending batch files in the drop folder",
	Long: `Discover pending batch files in the input folder, valuate every valid
record (tax, late fee, bulk discount), render one PDF invoice per record,
and archive each processed file with a timestamp suffix.

Per-file and per-record failures are isolated: a malformed row is logged
and skipped, a failed rendering is counted and skipped, and the run
continues. Only an unreachable input folder aborts the run.

Configuration comes from the environment (or a .env file):
  INVOICE_INPUT_PATH   - drop folder with pending .csv batches
  INVOICE_OUTPUT_PATH  - folder for rendered invoice PDFs
  INVOICE_ARCHIVE_DIR  - archive subdirectory inside the input folder
  INVOICE_ERROR_LOG    - append-only error log file
  INVOICE_POLICY_FILE  - optional YAML rate-table overrides`,
	Example: `  # Process everything pending, valuated as of today
  invoicer run

  # Valuate as of a fixed date (reproducible late fees and surcharge)
  invoicer run --as-of 2024-11-15

  # Valuate only, without rendering or archiving
  invoicer run --dry-run`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("input", "", "Input folder (overrides INVOICE_INPUT_PATH)")
	runCmd.Flags().String("output", "", "Output folder for PDFs (overrides INVOICE_OUTPUT_PATH)")
	runCmd.Flags().String("as-of", "", "Evaluation date YYYY-MM-DD (default: today)")
	runCmd.Flags().Bool("dry-run", false, "Valuate records but don't render or archive")
	runCmd.Flags().Bool("verbose", false, "Show detailed per-record processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log := logger.WithComponent("run")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if input, _ := cmd.Flags().GetString("input"); input != "" {
		cfg.InputPath = input
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.OutputPath = output
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	evalDate, err := resolveEvalDate(cmd)
	if err != nil {
		return err
	}

	tax, fee, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return err
	}

	// An unreachable output location is a startup failure, reported
	// distinctly from per-record problems.
	if !dryRun {
		if err := os.MkdirAll(cfg.OutputPath, 0755); err != nil {
			return fmt.Errorf("output path unreachable: %w", err)
		}
	}

	errors := errlog.New(cfg.ErrorLog)
	reader := batch.NewReader(fee.MinInvoiceAmount, errors)
	engine := valuation.NewEngine(tax, fee)
	store := orchestrator.NewDirStore(cfg.InputPath, cfg.ArchiveDir)
	renderer := render.NewPDFRenderer(cfg.OutputPath)

	runner := orchestrator.NewRunner(store, reader, engine, renderer, notify.NewLogNotifier(), errors)
	runner.DryRun = dryRun

	log.Info().
		Str("input", cfg.InputPath).
		Str("output", cfg.OutputPath).
		Time("eval_date", evalDate).
		Bool("dry_run", dryRun).
		Msg("Starting invoice batch run")

	summary, err := runner.Run(context.Background(), evalDate)
	if err != nil {
		return err
	}

	if summary.Sources == 0 {
		fmt.Println("No batch files found to process.")
		return nil
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("               PROCESSING COMPLETE")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Batch files:      %d\n", summary.Sources)
	fmt.Printf("Total processed:  %d\n", summary.Processed)
	fmt.Printf("Total failed:     %d\n", summary.Failed)
	if summary.Rejected > 0 {
		fmt.Printf("Rows skipped:     %d\n", summary.Rejected)
	}
	fmt.Println(strings.Repeat("=", 50))

	return nil
}

// resolveEvalDate reads --as-of, defaulting to today. Threading the date
// through explicitly keeps valuation reproducible.
func resolveEvalDate(cmd *cobra.Command) (time.Time, error) {
	asOf, _ := cmd.Flags().GetString("as-of")
	if asOf == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	evalDate, err := time.Parse("2006-01-02", asOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q (want YYYY-MM-DD)", asOf)
	}
	return evalDate, nil
}
