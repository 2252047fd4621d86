package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicer/internal/batch"
	"invoicer/internal/config"
	"invoicer/internal/logger"
	"invoicer/internal/policy"
	"invoicer/internal/record"
	"invoicer/internal/valuation"
)

var valuateCmd = &cobra.Command{
	Use:   "valuate [batch-file]",
	Short: "Valuate one batch file and print the results as JSON",
	Long: `Read a single delimited batch file, valuate every valid record (tax,
late fee, bulk discount), and emit the results as JSON without rendering
documents or archiving the file.

Useful for verifying a customer feed or the effect of a policy file
before running the full pipeline.`,
	Example: `  # Valuate to stdout
  invoicer valuate pending/batch_2024.csv

  # Valuate as of a fixed date, saving to a file
  invoicer valuate batch.csv --as-of 2024-11-15 -o results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValuate,
}

// valuationOutput is the JSON shape for one valuated record.
type valuationOutput struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	State        string `json:"state"`
	InvoiceDate  string `json:"invoice_date"`
	DueDate      string `json:"due_date"`
	Amount       string `json:"amount"`
	TaxAmount    string `json:"tax_amount"`
	LateFee      string `json:"late_fee"`
	Total        string `json:"total"`
}

// valuateReport is the top-level JSON document.
type valuateReport struct {
	Source   string            `json:"source"`
	EvalDate string            `json:"eval_date"`
	Records  []valuationOutput `json:"records"`
	Skipped  []skippedRow      `json:"skipped,omitempty"`
}

type skippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func init() {
	rootCmd.AddCommand(valuateCmd)

	valuateCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	valuateCmd.Flags().String("as-of", "", "Evaluation date YYYY-MM-DD (default: today)")
}

func runValuate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("valuate")
	path := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	evalDate, err := resolveEvalDate(cmd)
	if err != nil {
		return err
	}

	tax, fee, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read batch file: %w", err)
	}
	defer src.Close()

	// No persistent error log for an ad-hoc valuation.
	reader := batch.NewReader(fee.MinInvoiceAmount, nil)
	records, rowErrs := reader.Read(src, path)

	engine := valuation.NewEngine(tax, fee)

	report := valuateReport{
		Source:   path,
		EvalDate: evalDate.Format("2006-01-02"),
		Records:  make([]valuationOutput, 0, len(records)),
	}
	for _, rec := range records {
		val := engine.Valuate(rec, evalDate)
		report.Records = append(report.Records, toOutput(rec, val))
	}
	for _, re := range rowErrs {
		report.Skipped = append(report.Skipped, skippedRow{Row: re.Row, Reason: string(re.Reason)})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		fmt.Println(string(data))
	} else {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output", outputPath).
			Int("records", len(report.Records)).
			Msg("Valuation results written")
	}

	return nil
}

func toOutput(rec record.InvoiceRecord, val valuation.Result) valuationOutput {
	return valuationOutput{
		CustomerID:   rec.CustomerID,
		CustomerName: rec.CustomerName,
		State:        rec.State,
		InvoiceDate:  rec.InvoiceDate,
		DueDate:      rec.DueDate,
		Amount:       rec.Amount.StringFixed(2),
		TaxAmount:    val.TaxAmount.StringFixed(2),
		LateFee:      val.LateFee.StringFixed(2),
		Total:        val.Total.StringFixed(2),
	}
}
