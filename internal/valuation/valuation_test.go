package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/policy"
	"invoicer/internal/record"
)

// June 15th is safely outside the Q4 surcharge window.
var outsideWindow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
var insideWindow = time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(policy.DefaultTaxPolicy(), policy.DefaultFeePolicy())
}

func rec(customerID, state, amount, dueDate string) record.InvoiceRecord {
	return record.InvoiceRecord{
		CustomerID:  customerID,
		State:       state,
		Amount:      decimal.RequireFromString(amount),
		InvoiceDate: "01/15/2024",
		DueDate:     dueDate,
	}
}

// daysBefore formats a due date the given number of whole days before t.
func daysBefore(t time.Time, days int) string {
	return t.AddDate(0, 0, -days).Format("2006-01-02")
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, decimal.RequireFromString(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

func TestCustomerOverridePrecedence(t *testing.T) {
	engine := testEngine()

	// The override wins regardless of state, including a zero rate for
	// tax-exempt customers.
	for _, state := range []string{"CA", "NY", "ZZ"} {
		val := engine.Valuate(rec("CUST001", state, "100.00", daysBefore(outsideWindow, 5)), outsideWindow)
		assertMoney(t, "0", val.TaxAmount, "tax-exempt override for state %s", state)
	}

	val := engine.Valuate(rec("CUST447", "CA", "100.00", daysBefore(outsideWindow, 5)), outsideWindow)
	assertMoney(t, "4.50", val.TaxAmount, "negotiated rate beats CA rate")
}

func TestStateRateResolution(t *testing.T) {
	engine := testEngine()

	val := engine.Valuate(rec("CUSTXYZ", "NY", "100.00", daysBefore(outsideWindow, 5)), outsideWindow)
	assertMoney(t, "8.00", val.TaxAmount)
}

func TestUnknownStateFallsBackToDefault(t *testing.T) {
	engine := testEngine()

	val := engine.Valuate(rec("CUSTXYZ", "ZZ", "100.00", daysBefore(outsideWindow, 5)), outsideWindow)
	assertMoney(t, "5.00", val.TaxAmount)
}

func TestSeasonalSurchargeMultipliesResolvedRate(t *testing.T) {
	engine := testEngine()
	due := "2024-01-01" // overdue either way; fee identical across both dates is not needed here

	tests := []struct {
		name        string
		customerID  string
		state       string
		wantOutside string
		wantInside  string
	}{
		// 100 * rate vs 100 * rate * 1.02
		{"state rate", "CUSTXYZ", "NY", "8.00", "8.16"},
		{"default rate", "CUSTXYZ", "ZZ", "5.00", "5.10"},
		{"customer override", "CUST447", "NY", "4.50", "4.59"},
		{"zero override stays zero", "CUST001", "NY", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outside := engine.Valuate(rec(tt.customerID, tt.state, "100.00", due), outsideWindow)
			inside := engine.Valuate(rec(tt.customerID, tt.state, "100.00", due), insideWindow)
			assertMoney(t, tt.wantOutside, outside.TaxAmount)
			assertMoney(t, tt.wantInside, inside.TaxAmount)
		})
	}
}

func TestBulkDiscountBoundary(t *testing.T) {
	engine := testEngine()
	due := daysBefore(outsideWindow, 5)

	// At the threshold the taxable base is discounted by 3%:
	// 10000 * 0.97 = 9700, NY tax 8% = 776.00.
	at := engine.Valuate(rec("CUSTXYZ", "NY", "10000.00", due), outsideWindow)
	assertMoney(t, "776.00", at.TaxAmount)

	// One cent below the threshold the base is unmodified:
	// 9999.99 * 0.08 = 799.9992 -> 800.00.
	below := engine.Valuate(rec("CUSTXYZ", "NY", "9999.99", due), outsideWindow)
	assertMoney(t, "800.00", below.TaxAmount)
}

func TestRoundingIsHalfUp(t *testing.T) {
	engine := testEngine()

	// 42.50 * 0.05 (default rate) = 2.125 exactly. Half-up gives 2.13;
	// half-even would give 2.12. This pins the chosen mode.
	val := engine.Valuate(rec("CUSTXYZ", "ZZ", "42.50", daysBefore(outsideWindow, 5)), outsideWindow)
	assertMoney(t, "2.13", val.TaxAmount)
}

func TestLateFeeBoundary(t *testing.T) {
	engine := testEngine()

	// Exactly at the 30-day threshold: no fee.
	atThreshold := engine.Valuate(rec("CUST001", "CA", "100.00", daysBefore(outsideWindow, 30)), outsideWindow)
	assertMoney(t, "0", atThreshold.LateFee)

	// One day past: one whole 30-day month accrued.
	// 100 * 0.015 * 1 = 1.50.
	pastThreshold := engine.Valuate(rec("CUST001", "CA", "100.00", daysBefore(outsideWindow, 31)), outsideWindow)
	assertMoney(t, "1.50", pastThreshold.LateFee)

	// 60 days late: floor(60/30) = 2 months, linear on the original
	// amount.
	twoMonths := engine.Valuate(rec("CUST001", "CA", "100.00", daysBefore(outsideWindow, 60)), outsideWindow)
	assertMoney(t, "3.00", twoMonths.LateFee)
}

func TestLateFeeDateFormats(t *testing.T) {
	engine := testEngine()

	// All three production formats for the same 40-days-late date.
	due := outsideWindow.AddDate(0, 0, -40)
	formats := []string{
		due.Format("01/02/2006"),
		due.Format("2006-01-02"),
		due.Format("01-02-2006"),
	}

	for _, f := range formats {
		val := engine.Valuate(rec("CUST001", "CA", "200.00", f), outsideWindow)
		assertMoney(t, "3.00", val.LateFee, "format %s", f)
	}
}

func TestUnparseableDueDateSkipsLateFee(t *testing.T) {
	engine := testEngine()

	val := engine.Valuate(rec("CUST001", "CA", "100.00", "sometime next week"), outsideWindow)
	assertMoney(t, "0", val.LateFee, "a bad date is never fatal to the record")
	assertMoney(t, "100.00", val.Total)
}

func TestScenarioTaxExemptRecent(t *testing.T) {
	// CUST001, CA, $100, due 10 days ago: tax-exempt override, inside
	// the late-fee grace period.
	engine := testEngine()

	val := engine.Valuate(rec("CUST001", "CA", "100.00", daysBefore(outsideWindow, 10)), outsideWindow)
	assertMoney(t, "0", val.TaxAmount)
	assertMoney(t, "0", val.LateFee)
	assertMoney(t, "100.00", val.Total)
}

func TestScenarioNewYorkOverdue(t *testing.T) {
	// CUSTXYZ, NY, $200, due 40 days ago, outside the surcharge window:
	// 8% tax = 16.00, one month late fee = 200 * 0.015 = 3.00.
	engine := testEngine()

	val := engine.Valuate(rec("CUSTXYZ", "NY", "200.00", daysBefore(outsideWindow, 40)), outsideWindow)
	assertMoney(t, "16.00", val.TaxAmount)
	assertMoney(t, "3.00", val.LateFee)
	assertMoney(t, "219.00", val.Total)
}

func TestTotalRoundTrip(t *testing.T) {
	engine := testEngine()

	cases := []record.InvoiceRecord{
		rec("CUSTXYZ", "NY", "200.00", daysBefore(outsideWindow, 40)),
		rec("CUST447", "CA", "12345.67", daysBefore(outsideWindow, 95)),
		rec("CUSTXYZ", "ZZ", "42.50", daysBefore(outsideWindow, 5)),
		rec("CUST001", "TX", "10000.00", daysBefore(outsideWindow, 31)),
	}

	for _, r := range cases {
		val := engine.Valuate(r, outsideWindow)
		want := r.Amount.Round(2).Add(val.TaxAmount).Add(val.LateFee)
		require.True(t, val.Total.Equal(want),
			"total %s != amount %s + tax %s + fee %s",
			val.Total, r.Amount, val.TaxAmount, val.LateFee)
	}
}

func TestValuationIsIdempotent(t *testing.T) {
	engine := testEngine()
	r := rec("CUST447", "NY", "10000.00", daysBefore(outsideWindow, 75))

	first := engine.Valuate(r, outsideWindow)
	second := engine.Valuate(r, outsideWindow)

	assert.Equal(t, first.TaxAmount.StringFixed(2), second.TaxAmount.StringFixed(2))
	assert.Equal(t, first.LateFee.StringFixed(2), second.LateFee.StringFixed(2))
	assert.Equal(t, first.Total.StringFixed(2), second.Total.StringFixed(2))
}
