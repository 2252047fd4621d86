package render

import (
	"context"
	"sync"

	"invoicer/internal/record"
	"invoicer/internal/valuation"
)

// MockRenderer is a test renderer that records every call and can be
// programmed to fail for specific customers.
type MockRenderer struct {
	mu       sync.Mutex
	Rendered []ArtifactRef

	// FailFor maps customer IDs to the error Render should return.
	FailFor map[string]error
}

// NewMockRenderer creates an empty mock renderer.
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{FailFor: make(map[string]error)}
}

// Render records the call, failing when the customer is marked to fail.
func (m *MockRenderer) Render(_ context.Context, rec record.InvoiceRecord, val valuation.Result) (ArtifactRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[rec.CustomerID]; ok {
		return ArtifactRef{}, &RenderError{Op: "Render", CustomerID: rec.CustomerID, Err: err}
	}

	ref := ArtifactRef{Name: ArtifactName(rec, val) + ".pdf"}
	m.Rendered = append(m.Rendered, ref)
	return ref, nil
}
