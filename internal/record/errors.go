package record

import "fmt"

// RejectReason classifies why a row was not turned into a record.
type RejectReason string

const (
	// RejectInsufficientColumns means the row had fewer than the required
	// number of positional fields.
	RejectInsufficientColumns RejectReason = "insufficient_columns"

	// RejectInvalidAmount means the amount field did not parse as a
	// non-negative number.
	RejectInvalidAmount RejectReason = "invalid_amount"

	// RejectBelowMinimum means the amount parsed but is below the
	// configured minimum. The row is filtered, not erroneous; callers
	// report it as a warning.
	RejectBelowMinimum RejectReason = "below_minimum"

	// RejectMalformedRow means the row could not be read from the source
	// at all (broken quoting and the like). Set by the batch reader, not
	// the parser.
	RejectMalformedRow RejectReason = "malformed_row"
)

// RejectError is returned by Parse when a row cannot become a record.
type RejectError struct {
	// Op is the operation that rejected the row (e.g. "Parse").
	Op      string
	Reason  RejectReason
	Details string
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("record: %s: rejected (%s): %s", e.Op, e.Reason, e.Details)
	}
	return fmt.Sprintf("record: %s: rejected (%s)", e.Op, e.Reason)
}

// Warning reports whether the rejection is warning-class rather than an
// error (the row was valid but filtered).
func (e *RejectError) Warning() bool {
	return e.Reason == RejectBelowMinimum
}

func reject(op string, reason RejectReason, format string, args ...interface{}) *RejectError {
	return &RejectError{Op: op, Reason: reason, Details: fmt.Sprintf(format, args...)}
}
