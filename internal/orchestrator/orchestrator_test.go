package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/batch"
	"invoicer/internal/policy"
	"invoicer/internal/render"
	"invoicer/internal/valuation"
)

const header = "customer_id,customer_name,address,city,state,zip,amount,invoice_date,due_date,items"

var evalDate = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func writeBatch(t *testing.T, dir, name string, rows ...string) {
	t.Helper()
	content := strings.Join(append([]string{header}, rows...), "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newTestRunner(t *testing.T, dir string, renderer render.Renderer) *Runner {
	t.Helper()
	reader := batch.NewReader(decimal.NewFromInt(25), nil)
	engine := valuation.NewEngine(policy.DefaultTaxPolicy(), policy.DefaultFeePolicy())
	store := NewDirStore(dir, "processed")
	return NewRunner(store, reader, engine, renderer, nil, nil)
}

func TestRunProcessesAndArchives(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "batch.csv",
		"CUST001,Acme Nonprofit,1 Mission St,San Francisco,CA,94105,100.00,01/15/2024,2024-06-05,",
		"CUSTXYZ,Beta LLC,2 Broadway,New York,NY,10001,200.00,01/15/2024,2024-05-06,",
	)

	renderer := render.NewMockRenderer()
	runner := newTestRunner(t, dir, renderer)

	summary, err := runner.Run(context.Background(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, Summary{Sources: 1, Processed: 2}, summary)
	require.Len(t, renderer.Rendered, 2)
	assert.Equal(t, "CUST001_01-15-2024_100.00.pdf", renderer.Rendered[0].Name)
	assert.Equal(t, "CUSTXYZ_01-15-2024_219.00.pdf", renderer.Rendered[1].Name)

	// Source moved to the archive area with a timestamp suffix.
	assert.NoFileExists(t, filepath.Join(dir, "batch.csv"))
	archived, err := filepath.Glob(filepath.Join(dir, "processed", "batch_processed_*.csv"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestRunIsolatesBadRows(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "batch.csv",
		"CUST776,Short Row,5 Road,Austin,TX",
		"CUSTXYZ,Beta LLC,2 Broadway,New York,NY,10001,200.00,01/15/2024,2024-05-06,",
	)

	renderer := render.NewMockRenderer()
	summary, err := newTestRunner(t, dir, renderer).Run(context.Background(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, Summary{Sources: 1, Processed: 1, Rejected: 1}, summary)
	require.Len(t, renderer.Rendered, 1)
	assert.Contains(t, renderer.Rendered[0].Name, "CUSTXYZ")
}

func TestRenderFailureDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "batch.csv",
		"CUST001,Acme Nonprofit,1 Mission St,San Francisco,CA,94105,100.00,01/15/2024,2024-06-05,",
		"CUSTXYZ,Beta LLC,2 Broadway,New York,NY,10001,200.00,01/15/2024,2024-05-06,",
	)

	renderer := render.NewMockRenderer()
	renderer.FailFor["CUST001"] = assert.AnError

	summary, err := newTestRunner(t, dir, renderer).Run(context.Background(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, Summary{Sources: 1, Processed: 1, Failed: 1}, summary)

	// The source is archived even when some records failed.
	assert.NoFileExists(t, filepath.Join(dir, "batch.csv"))
}

func TestRunWithNothingToDo(t *testing.T) {
	summary, err := newTestRunner(t, t.TempDir(), render.NewMockRenderer()).Run(context.Background(), evalDate)

	require.NoError(t, err, "an empty drop folder is not an error")
	assert.Equal(t, Summary{}, summary)
}

func TestUnreachableRootIsStructural(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := newTestRunner(t, dir, render.NewMockRenderer()).Run(context.Background(), evalDate)
	require.Error(t, err)
}

// unopenableStore wraps a Store and refuses to open one source.
type unopenableStore struct {
	Store
	failOn string
}

func (s unopenableStore) Open(name string) (io.ReadCloser, error) {
	if name == s.failOn {
		return nil, errors.New("permission denied")
	}
	return s.Store.Open(name)
}

func TestUnreadableSourceLosesOnlyThatSource(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "bad.csv",
		"CUST001,Acme Nonprofit,1 Mission St,San Francisco,CA,94105,100.00,01/15/2024,2024-06-05,",
	)
	writeBatch(t, dir, "good.csv",
		"CUSTXYZ,Beta LLC,2 Broadway,New York,NY,10001,200.00,01/15/2024,2024-05-06,",
	)

	renderer := render.NewMockRenderer()
	reader := batch.NewReader(decimal.NewFromInt(25), nil)
	engine := valuation.NewEngine(policy.DefaultTaxPolicy(), policy.DefaultFeePolicy())
	store := unopenableStore{Store: NewDirStore(dir, "processed"), failOn: "bad.csv"}

	summary, err := NewRunner(store, reader, engine, renderer, nil, nil).Run(context.Background(), evalDate)
	require.NoError(t, err, "an unreadable source is fatal for that source only")

	assert.Equal(t, 2, summary.Sources)
	assert.Equal(t, 1, summary.Processed)
	require.Len(t, renderer.Rendered, 1)
	assert.Contains(t, renderer.Rendered[0].Name, "CUSTXYZ")

	// The unreadable source stays pending; the good one is archived.
	assert.FileExists(t, filepath.Join(dir, "bad.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "good.csv"))
}

func TestDryRunSkipsRenderingAndArchival(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "batch.csv",
		"CUSTXYZ,Beta LLC,2 Broadway,New York,NY,10001,200.00,01/15/2024,2024-05-06,",
	)

	renderer := render.NewMockRenderer()
	runner := newTestRunner(t, dir, renderer)
	runner.DryRun = true

	summary, err := runner.Run(context.Background(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, Summary{Sources: 1, Processed: 1}, summary)
	assert.Empty(t, renderer.Rendered)
	assert.FileExists(t, filepath.Join(dir, "batch.csv"))
}

func TestArchiveName(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 30, 45, 0, time.UTC)

	assert.Equal(t, "batch_processed_20240615103045.csv", archiveName("batch.csv", now))
	assert.Equal(t, "noext_processed_20240615103045", archiveName("noext", now))
}
