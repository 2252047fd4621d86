// Package record defines the parsed invoice record and the parser that
// turns one raw delimited row into it.
package record

import (
	"github.com/shopspring/decimal"
)

// InvoiceRecord is one validated invoice row. It is immutable after parse;
// all derived monetary values are computed from Amount.
type InvoiceRecord struct {
	CustomerID   string
	CustomerName string
	Address      string
	City         string
	State        string // normalized to uppercase
	Zip          string

	Amount decimal.Decimal

	// Raw textual dates. Input feeds use inconsistent formats, so these
	// are parsed lazily by whoever needs a time value.
	InvoiceDate string
	DueDate     string

	Items []LineItem
}

// LineItem is one entry of the pipe-delimited items field. When an entry
// does not split into name:quantity:price, Raw holds the original text and
// the other fields are zero; the item is then displayed verbatim.
type LineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Raw       string
}

// Unparsed reports whether this item carries only raw display text.
func (li LineItem) Unparsed() bool {
	return li.Raw != ""
}
