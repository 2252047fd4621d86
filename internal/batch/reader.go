// Package batch streams delimited batch sources through the record parser
// with per-row failure isolation.
package batch

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicer/internal/errlog"
	"invoicer/internal/logger"
	"invoicer/internal/record"
)

// RowError records one row that did not become a record.
type RowError struct {
	// Row is the data row index, counted from 1 after the header.
	Row    int
	Reason record.RejectReason
	Err    error
}

// Reader turns one batch source into records, isolating row failures.
type Reader struct {
	minAmount decimal.Decimal
	errors    *errlog.Log
	log       zerolog.Logger
}

// NewReader creates a batch reader. errors may be nil.
func NewReader(minAmount decimal.Decimal, errors *errlog.Log) *Reader {
	return &Reader{
		minAmount: minAmount,
		errors:    errors,
		log:       logger.WithComponent("batch-reader"),
	}
}

// Read parses every data row of the source. The header row is always
// skipped. A bad row is recorded and logged, and reading continues; one
// malformed row never aborts the batch. name is used for logging only.
func (r *Reader) Read(src io.Reader, name string) ([]record.InvoiceRecord, []RowError) {
	slog := logger.WithSource(r.log, name)

	buf := bufio.NewReaderSize(src, sniffLimit)

	cr := csv.NewReader(buf)
	cr.Comma = detectDelimiter(buf)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		records []record.InvoiceRecord
		rowErrs []RowError
		rowNum  int
	)

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				// Source-level failure (broken pipe, I/O error). Fatal
				// for this source only; whatever parsed so far stands.
				slog.Error().
					Err(err).
					Msg("Cannot read batch source, stopping")
				r.errors.Appendf("Cannot read file %s: %v", name, err)
				break
			}

			// Row-level read problem (stray quote etc). Skip the row
			// and keep going, same as a parse rejection.
			rowNum++
			slog.Error().
				Err(err).
				Int("row", rowNum).
				Msg("Failed to read row, skipping")
			r.errors.Appendf("Parse error in %s row %d: %v", name, rowNum, err)
			rowErrs = append(rowErrs, RowError{Row: rowNum, Reason: record.RejectMalformedRow, Err: err})
			continue
		}

		if rowNum == 0 {
			rowNum++
			continue // header row is never parsed
		}

		rec, err := record.Parse(fields, r.minAmount)
		if err != nil {
			rejErr, ok := err.(*record.RejectError)
			if !ok {
				rejErr = &record.RejectError{Op: "Read", Reason: record.RejectMalformedRow, Details: err.Error()}
			}

			if rejErr.Warning() {
				slog.Warn().
					Int("row", rowNum).
					Str("reason", string(rejErr.Reason)).
					Msg("Row filtered, skipping")
			} else {
				slog.Error().
					Err(rejErr).
					Int("row", rowNum).
					Msg("Failed to parse row, skipping")
				r.errors.Appendf("Parse error in %s row %d: %v", name, rowNum, rejErr)
			}

			rowErrs = append(rowErrs, RowError{Row: rowNum, Reason: rejErr.Reason, Err: rejErr})
			rowNum++
			continue
		}

		records = append(records, rec)
		rowNum++
	}

	slog.Info().
		Int("records", len(records)).
		Int("skipped", len(rowErrs)).
		Msg("Batch source read")

	return records, rowErrs
}

// sniffLimit caps how far delimiter detection looks for the end of the
// header line.
const sniffLimit = 64 * 1024

// detectDelimiter inspects the first line without consuming it: semicolon
// if the line contains one, comma otherwise. Detection happens once per
// source; the first line governs the whole file.
func detectDelimiter(buf *bufio.Reader) rune {
	if bytes.ContainsRune(peekFirstLine(buf), ';') {
		return ';'
	}
	return ','
}

// peekFirstLine returns the header line without consuming it, growing the
// peek window until a newline shows up, the source ends, or the reader's
// buffer is exhausted.
func peekFirstLine(buf *bufio.Reader) []byte {
	for n := 4096; ; n *= 2 {
		peek, err := buf.Peek(n)
		if idx := bytes.IndexByte(peek, '\n'); idx >= 0 {
			return peek[:idx]
		}
		if err != nil {
			return peek
		}
	}
}
