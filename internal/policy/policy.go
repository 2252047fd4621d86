// Package policy holds the rate tables applied during invoice valuation.
//
// Both policies are loaded once at startup and are read-only for the
// duration of a run. The built-in defaults mirror the rate tables the
// finance team maintains; a YAML policy file can override any of them
// between runs.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DefaultRateKey is the mandatory fallback entry in TaxPolicy.StateRates,
// used when a record's state has no configured rate.
const DefaultRateKey = "DEFAULT"

// SurchargeWindow is a calendar window during which the resolved tax rate
// is multiplied by an extra factor (e.g. the Q4 year-end adjustment).
type SurchargeWindow struct {
	StartMonth time.Month
	EndMonth   time.Month
	Multiplier decimal.Decimal
}

// Contains reports whether the given date falls inside the window. A
// window whose start month is after its end month wraps around the year
// end (December-February covers December, January and February).
func (w SurchargeWindow) Contains(date time.Time) bool {
	m := date.Month()
	if w.StartMonth > w.EndMonth {
		return m >= w.StartMonth || m <= w.EndMonth
	}
	return m >= w.StartMonth && m <= w.EndMonth
}

// TaxPolicy maps jurisdictions and customers to tax rates.
type TaxPolicy struct {
	// StateRates maps an uppercased state code to its rate. Must contain
	// a DefaultRateKey entry.
	StateRates map[string]decimal.Decimal

	// CustomerOverrides maps a customer ID to a negotiated rate. An
	// override wins over any state rate, including a zero rate for
	// tax-exempt customers.
	CustomerOverrides map[string]decimal.Decimal

	Surcharge SurchargeWindow
}

// FeePolicy holds late-fee accrual and bulk-discount parameters.
type FeePolicy struct {
	LateFeeThresholdDays  int
	LateFeeMonthlyRate    decimal.Decimal
	BulkDiscountThreshold decimal.Decimal
	BulkDiscountRate      decimal.Decimal
	MinInvoiceAmount      decimal.Decimal
}

// DefaultTaxPolicy returns the production rate tables.
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		StateRates: map[string]decimal.Decimal{
			"CA":           decimal.NewFromFloat(0.0725),
			"NY":           decimal.NewFromFloat(0.08),
			"TX":           decimal.NewFromFloat(0.0625),
			"FL":           decimal.NewFromFloat(0.06),
			"WA":           decimal.NewFromFloat(0.065),
			DefaultRateKey: decimal.NewFromFloat(0.05),
		},
		CustomerOverrides: map[string]decimal.Decimal{
			"CUST001": decimal.Zero,                  // tax exempt - nonprofit
			"CUST447": decimal.NewFromFloat(0.045),   // negotiated rate
			"CUST892": decimal.NewFromFloat(0.0725),  // always CA rate
		},
		Surcharge: SurchargeWindow{
			StartMonth: time.October,
			EndMonth:   time.December,
			Multiplier: decimal.NewFromFloat(1.02),
		},
	}
}

// DefaultFeePolicy returns the production fee parameters.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		LateFeeThresholdDays:  30,
		LateFeeMonthlyRate:    decimal.NewFromFloat(0.015), // 1.5% monthly
		BulkDiscountThreshold: decimal.NewFromInt(10000),
		BulkDiscountRate:      decimal.NewFromFloat(0.03),
		MinInvoiceAmount:      decimal.NewFromInt(25),
	}
}

// Load returns the default policies, layered with overrides from the given
// YAML file when path is non-empty. The file may override any subset of
// keys; unspecified values keep their defaults.
func Load(path string) (TaxPolicy, FeePolicy, error) {
	tax := DefaultTaxPolicy()
	fee := DefaultFeePolicy()

	if path == "" {
		return tax, fee, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return TaxPolicy{}, FeePolicy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}

	// Viper lowercases map keys, so both tables are re-uppercased here.
	// State codes and customer IDs are uppercase everywhere else.
	if rates := v.GetStringMapString("tax.state_rates"); len(rates) > 0 {
		parsed, err := parseRateMap(rates)
		if err != nil {
			return TaxPolicy{}, FeePolicy{}, fmt.Errorf("policy: tax.state_rates: %w", err)
		}
		tax.StateRates = parsed
	}
	if overrides := v.GetStringMapString("tax.customer_overrides"); len(overrides) > 0 {
		parsed, err := parseRateMap(overrides)
		if err != nil {
			return TaxPolicy{}, FeePolicy{}, fmt.Errorf("policy: tax.customer_overrides: %w", err)
		}
		tax.CustomerOverrides = parsed
	}
	if v.IsSet("tax.surcharge.start_month") {
		tax.Surcharge.StartMonth = time.Month(v.GetInt("tax.surcharge.start_month"))
	}
	if v.IsSet("tax.surcharge.end_month") {
		tax.Surcharge.EndMonth = time.Month(v.GetInt("tax.surcharge.end_month"))
	}
	if v.IsSet("tax.surcharge.multiplier") {
		tax.Surcharge.Multiplier = decimal.NewFromFloat(v.GetFloat64("tax.surcharge.multiplier"))
	}

	if v.IsSet("fees.late_fee_threshold_days") {
		fee.LateFeeThresholdDays = v.GetInt("fees.late_fee_threshold_days")
	}
	if v.IsSet("fees.late_fee_monthly_rate") {
		fee.LateFeeMonthlyRate = decimal.NewFromFloat(v.GetFloat64("fees.late_fee_monthly_rate"))
	}
	if v.IsSet("fees.bulk_discount_threshold") {
		fee.BulkDiscountThreshold = decimal.NewFromFloat(v.GetFloat64("fees.bulk_discount_threshold"))
	}
	if v.IsSet("fees.bulk_discount_rate") {
		fee.BulkDiscountRate = decimal.NewFromFloat(v.GetFloat64("fees.bulk_discount_rate"))
	}
	if v.IsSet("fees.min_invoice_amount") {
		fee.MinInvoiceAmount = decimal.NewFromFloat(v.GetFloat64("fees.min_invoice_amount"))
	}

	if err := tax.Validate(); err != nil {
		return TaxPolicy{}, FeePolicy{}, err
	}
	if err := fee.Validate(); err != nil {
		return TaxPolicy{}, FeePolicy{}, err
	}

	return tax, fee, nil
}

// Validate checks the invariants required before a run may start.
func (p TaxPolicy) Validate() error {
	if _, ok := p.StateRates[DefaultRateKey]; !ok {
		return fmt.Errorf("policy: state rates must contain a %s entry", DefaultRateKey)
	}
	for state, rate := range p.StateRates {
		if rate.IsNegative() {
			return fmt.Errorf("policy: negative rate for state %s", state)
		}
	}
	for customer, rate := range p.CustomerOverrides {
		if rate.IsNegative() {
			return fmt.Errorf("policy: negative override for customer %s", customer)
		}
	}
	if p.Surcharge.StartMonth < time.January || p.Surcharge.StartMonth > time.December ||
		p.Surcharge.EndMonth < time.January || p.Surcharge.EndMonth > time.December {
		return fmt.Errorf("policy: surcharge window months out of range")
	}
	return nil
}

// Validate checks the fee parameters.
func (p FeePolicy) Validate() error {
	if p.LateFeeThresholdDays < 0 {
		return fmt.Errorf("policy: late fee threshold days must not be negative")
	}
	if p.LateFeeMonthlyRate.IsNegative() {
		return fmt.Errorf("policy: late fee monthly rate must not be negative")
	}
	if p.BulkDiscountRate.IsNegative() || p.BulkDiscountRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("policy: bulk discount rate must be between 0 and 1")
	}
	return nil
}

func parseRateMap(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for key, val := range raw {
		rate, err := decimal.NewFromString(val)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q for %s: %w", val, key, err)
		}
		out[strings.ToUpper(key)] = rate
	}
	return out, nil
}
