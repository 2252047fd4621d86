// Package render is the document-rendering boundary: it consumes a record
// plus its valuation and produces a rendered artifact.
package render

import (
	"context"
	"fmt"
	"strings"

	"invoicer/internal/record"
	"invoicer/internal/valuation"
)

// ArtifactRef identifies a rendered invoice document.
type ArtifactRef struct {
	// Name is the artifact's base name, derived deterministically from the
	// record so re-runs are idempotent.
	Name string

	// Path is where the artifact was written, when applicable.
	Path string
}

// Renderer renders one invoice document per record.
type Renderer interface {
	Render(ctx context.Context, rec record.InvoiceRecord, val valuation.Result) (ArtifactRef, error)
}

// RenderError wraps a rendering failure with the record it was for.
type RenderError struct {
	// Op is the operation that failed (e.g. "Render").
	Op         string
	CustomerID string
	Err        error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s failed for customer %s: %v", e.Op, e.CustomerID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// ArtifactName derives the deterministic artifact base name:
// {customerId}_{invoiceDate with slashes normalized}_{total}. The same
// record and valuation always map to the same name, which both supports
// idempotent re-runs and avoids collisions across records.
func ArtifactName(rec record.InvoiceRecord, val valuation.Result) string {
	invoiceDate := strings.ReplaceAll(rec.InvoiceDate, "/", "-")
	return fmt.Sprintf("%s_%s_%s", rec.CustomerID, invoiceDate, val.Total.StringFixed(2))
}
