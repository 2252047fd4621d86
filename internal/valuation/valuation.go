// Package valuation turns a parsed invoice record into a taxed,
// fee-adjusted monetary total.
//
// Valuate is deterministic: the evaluation date is an explicit parameter
// and no system time is read internally, so the same record, date, and
// policies always produce identical results.
//
// Monetary rounding is two decimal places, half away from zero ("half-up"
// for the non-negative amounts in this domain), applied at every
// intermediate step rather than only at the end. Tests pin this choice.
package valuation

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicer/internal/logger"
	"invoicer/internal/policy"
	"invoicer/internal/record"
)

// dueDateFormats are tried in order; the first that parses wins. These are
// the formats seen in production feeds: MM/DD/YYYY, YYYY-MM-DD, MM-DD-YYYY.
var dueDateFormats = []string{
	"01/02/2006",
	"2006-01-02",
	"01-02-2006",
}

// Result holds the computed amounts for one record. All values are >= 0
// and Total = Amount + TaxAmount + LateFee to the penny.
type Result struct {
	TaxAmount decimal.Decimal
	LateFee   decimal.Decimal
	Total     decimal.Decimal
}

// Engine applies the tax and fee policies. The policies are read-only for
// the engine's lifetime.
type Engine struct {
	tax policy.TaxPolicy
	fee policy.FeePolicy
	log zerolog.Logger
}

// NewEngine creates a valuation engine over the given policies.
func NewEngine(tax policy.TaxPolicy, fee policy.FeePolicy) *Engine {
	return &Engine{
		tax: tax,
		fee: fee,
		log: logger.WithComponent("valuation"),
	}
}

// Valuate computes tax, late fee, and total for a record as of evalDate.
// It never fails: an unknown state falls back to the default rate and an
// unparseable due date yields a zero late fee, each with a logged warning.
func (e *Engine) Valuate(rec record.InvoiceRecord, evalDate time.Time) Result {
	tax := e.taxAmount(rec, evalDate)
	fee := e.lateFee(rec, evalDate)

	amount := round2(rec.Amount)
	return Result{
		TaxAmount: tax,
		LateFee:   fee,
		Total:     amount.Add(tax).Add(fee),
	}
}

// taxAmount resolves the rate, applies the seasonal surcharge, and taxes
// the (possibly bulk-discounted) base.
func (e *Engine) taxAmount(rec record.InvoiceRecord, evalDate time.Time) decimal.Decimal {
	rate := e.resolveRate(rec)

	// Surcharge applies after override/state/default resolution so it
	// affects all three paths uniformly, customer overrides included.
	if e.tax.Surcharge.Contains(evalDate) {
		rate = rate.Mul(e.tax.Surcharge.Multiplier)
	}

	base := rec.Amount
	if base.GreaterThanOrEqual(e.fee.BulkDiscountThreshold) {
		base = round2(base.Mul(decimal.NewFromInt(1).Sub(e.fee.BulkDiscountRate)))
	}

	return round2(base.Mul(rate))
}

// resolveRate applies the strict precedence order: customer override,
// state rate, default rate. An override is used verbatim, including zero
// for tax-exempt customers.
func (e *Engine) resolveRate(rec record.InvoiceRecord) decimal.Decimal {
	if rate, ok := e.tax.CustomerOverrides[rec.CustomerID]; ok {
		return rate
	}
	if rate, ok := e.tax.StateRates[rec.State]; ok {
		return rate
	}

	e.log.Warn().
		Str("state", rec.State).
		Str("customer_id", rec.CustomerID).
		Msg("Unknown state, using default tax rate")
	return e.tax.StateRates[policy.DefaultRateKey]
}

// lateFee accrues the monthly late fee once the invoice is past the grace
// threshold. The fee is linear on the original amount per elapsed
// 30-day month, not compounded on a running balance; that matches the
// verified behavior of the finance rate tables this replaces.
func (e *Engine) lateFee(rec record.InvoiceRecord, evalDate time.Time) decimal.Decimal {
	dueDate, ok := parseDueDate(rec.DueDate)
	if !ok {
		// Never fatal to the record.
		e.log.Warn().
			Str("due_date", rec.DueDate).
			Str("customer_id", rec.CustomerID).
			Msg("Cannot parse due date, late fee skipped")
		return decimal.Zero
	}

	daysLate := int(evalDate.Sub(dueDate).Hours() / 24)
	if daysLate <= e.fee.LateFeeThresholdDays {
		return decimal.Zero
	}

	monthsLate := daysLate / 30
	fee := rec.Amount.Mul(e.fee.LateFeeMonthlyRate).Mul(decimal.NewFromInt(int64(monthsLate)))
	return round2(fee)
}

// parseDueDate tries the known date formats in order.
func parseDueDate(raw string) (time.Time, bool) {
	for _, format := range dueDateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// round2 rounds to two decimal places, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
