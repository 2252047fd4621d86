// Package orchestrator drives one full batch run: discover pending
// sources, read them, valuate every record, render, archive, summarize.
//
// Failure isolation follows a strict taxonomy. Only a structural failure
// (unreachable storage root) aborts the run. An unreadable source loses
// that source only. Rejected rows, valuation degradations, render
// failures, and archival failures are all recovered locally and the run
// continues.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicer/internal/batch"
	"invoicer/internal/errlog"
	"invoicer/internal/logger"
	"invoicer/internal/notify"
	"invoicer/internal/render"
	"invoicer/internal/valuation"
)

// archiveTimeFormat is the timestamp suffix appended to archived sources
// so repeated runs never collide on names.
const archiveTimeFormat = "20060102150405"

// Summary is the outcome of one run.
type Summary struct {
	Sources   int // batch sources handled
	Processed int // records rendered successfully
	Failed    int // records whose rendering failed
	Rejected  int // rows dropped or filtered before valuation
}

// Runner wires the pipeline together for one run.
type Runner struct {
	store    Store
	reader   *batch.Reader
	engine   *valuation.Engine
	renderer render.Renderer
	notifier notify.Notifier
	errors   *errlog.Log

	// DryRun valuates records but skips rendering and archival.
	DryRun bool

	log zerolog.Logger
}

// NewRunner assembles a runner. notifier may be nil to skip delivery.
func NewRunner(store Store, reader *batch.Reader, engine *valuation.Engine, renderer render.Renderer, notifier notify.Notifier, errors *errlog.Log) *Runner {
	return &Runner{
		store:    store,
		reader:   reader,
		engine:   engine,
		renderer: renderer,
		notifier: notifier,
		errors:   errors,
		log:      logger.WithComponent("orchestrator"),
	}
}

// Run processes every pending source in order, valuating records as of
// evalDate. A run with nothing to do returns an empty summary and no
// error. The only error it returns is a structural one from source
// discovery.
func (r *Runner) Run(ctx context.Context, evalDate time.Time) (Summary, error) {
	runID := uuid.NewString()
	log := r.log.With().Str("run_id", runID).Logger()

	sources, err := r.store.List()
	if err != nil {
		return Summary{}, fmt.Errorf("orchestrator: source discovery failed: %w", err)
	}

	if len(sources) == 0 {
		log.Info().Msg("No batch sources found, nothing to do")
		return Summary{}, nil
	}

	log.Info().
		Int("sources", len(sources)).
		Time("eval_date", evalDate).
		Bool("dry_run", r.DryRun).
		Msg("Starting batch run")

	var summary Summary
	for _, name := range sources {
		summary.Sources++
		r.processSource(ctx, name, evalDate, log, &summary)
	}

	log.Info().
		Int("sources", summary.Sources).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("rejected", summary.Rejected).
		Msg("Batch run completed")

	return summary, nil
}

// processSource handles one source end to end. Nothing it does can fail
// the run: an unopenable source is logged and skipped, per-record
// failures are counted, archival trouble is a warning.
func (r *Runner) processSource(ctx context.Context, name string, evalDate time.Time, log zerolog.Logger, summary *Summary) {
	src, err := r.store.Open(name)
	if err != nil {
		log.Error().Err(err).Str("source", name).Msg("Cannot read batch source, skipping")
		r.errors.Appendf("Cannot read file %s: %v", name, err)
		return
	}

	records, rowErrs := r.reader.Read(src, name)
	src.Close()
	summary.Rejected += len(rowErrs)

	for _, rec := range records {
		val := r.engine.Valuate(rec, evalDate)

		if r.DryRun {
			summary.Processed++
			continue
		}

		artifact, err := r.renderer.Render(ctx, rec, val)
		if err != nil {
			summary.Failed++
			log.Error().
				Err(err).
				Str("source", name).
				Str("customer_id", rec.CustomerID).
				Msg("Rendering failed")
			r.errors.Appendf("Processing failed for customer %s: %v", rec.CustomerID, err)
			continue
		}

		summary.Processed++
		log.Info().
			Str("source", name).
			Str("artifact", artifact.Name).
			Msg("Invoice rendered")

		if r.notifier != nil {
			r.notifier.Send(ctx, rec, artifact)
		}
	}

	if r.DryRun {
		return
	}

	archivedName := archiveName(name, time.Now())
	if err := r.store.Archive(name, archivedName); err != nil {
		// Does not affect counters or success of the records already
		// processed.
		log.Warn().Err(err).Str("source", name).Msg("Could not archive processed source")
	}
}

// archiveName appends a _processed_ timestamp suffix before the
// extension: batch.csv -> batch_processed_20240101120000.csv.
func archiveName(name string, now time.Time) string {
	stamp := now.Format(archiveTimeFormat)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return fmt.Sprintf("%s_processed_%s%s", name[:idx], stamp, name[idx:])
	}
	return fmt.Sprintf("%s_processed_%s", name, stamp)
}
