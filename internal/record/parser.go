package record

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// minColumns is the number of positional fields a row must carry:
// customer_id, customer_name, address, city, state, zip, amount,
// invoice_date, due_date, items.
const minColumns = 10

const (
	colCustomerID = iota
	colCustomerName
	colAddress
	colCity
	colState
	colZip
	colAmount
	colInvoiceDate
	colDueDate
	colItems
)

// Parse turns one raw delimited row into an InvoiceRecord. It is a pure
// function of its input: no logging, no clock, no I/O. On failure it
// returns a *RejectError describing why the row was dropped.
//
// Unknown states are accepted here; they are resolved to a fallback tax
// rate during valuation. Malformed item entries never reject the row.
func Parse(fields []string, minAmount decimal.Decimal) (InvoiceRecord, error) {
	const op = "Parse"

	if len(fields) < minColumns {
		return InvoiceRecord{}, reject(op, RejectInsufficientColumns,
			"got %d columns, need %d", len(fields), minColumns)
	}

	amountStr := strings.TrimSpace(fields[colAmount])
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return InvoiceRecord{}, reject(op, RejectInvalidAmount,
			"amount %q does not parse", amountStr)
	}
	if amount.IsNegative() {
		return InvoiceRecord{}, reject(op, RejectInvalidAmount,
			"amount %s is negative", amount)
	}
	if amount.LessThan(minAmount) {
		return InvoiceRecord{}, reject(op, RejectBelowMinimum,
			"amount %s below minimum %s", amount.StringFixed(2), minAmount.StringFixed(2))
	}

	rec := InvoiceRecord{
		CustomerID:   strings.TrimSpace(fields[colCustomerID]),
		CustomerName: strings.TrimSpace(fields[colCustomerName]),
		Address:      strings.TrimSpace(fields[colAddress]),
		City:         strings.TrimSpace(fields[colCity]),
		State:        strings.ToUpper(strings.TrimSpace(fields[colState])),
		Zip:          strings.TrimSpace(fields[colZip]),
		Amount:       amount,
		InvoiceDate:  strings.TrimSpace(fields[colInvoiceDate]),
		DueDate:      strings.TrimSpace(fields[colDueDate]),
		Items:        parseItems(strings.TrimSpace(fields[colItems])),
	}

	return rec, nil
}

// parseItems splits the pipe-delimited items field into line items.
// Entries that do not split into exactly name:quantity:price are kept
// verbatim as display text; items never affect valuation.
func parseItems(raw string) []LineItem {
	if raw == "" {
		return nil
	}

	entries := strings.Split(raw, "|")
	items := make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			items = append(items, LineItem{Raw: entry})
			continue
		}

		qty, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			items = append(items, LineItem{Raw: entry})
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			items = append(items, LineItem{Raw: entry})
			continue
		}

		items = append(items, LineItem{
			Name:      strings.TrimSpace(parts[0]),
			Quantity:  qty,
			UnitPrice: price,
		})
	}

	return items
}
