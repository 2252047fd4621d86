// Package notify is the invoice delivery boundary. Delivery is
// fire-and-forget: a failed or skipped notification never affects the
// processed/failed bookkeeping of the batch run.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"invoicer/internal/logger"
	"invoicer/internal/record"
	"invoicer/internal/render"
)

// Notifier delivers a rendered invoice to the customer.
type Notifier interface {
	Send(ctx context.Context, rec record.InvoiceRecord, artifact render.ArtifactRef)
}

// LogNotifier logs each would-be delivery instead of sending it. This is
// the default sink; transport-level delivery is pluggable behind the
// Notifier interface.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates the logging notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notifier")}
}

// Send logs the delivery.
func (n *LogNotifier) Send(_ context.Context, rec record.InvoiceRecord, artifact render.ArtifactRef) {
	n.log.Info().
		Str("customer_id", rec.CustomerID).
		Str("artifact", artifact.Name).
		Msg("Invoice ready for delivery")
}
