package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/rs/zerolog"

	"invoicer/internal/logger"
	"invoicer/internal/record"
	"invoicer/internal/valuation"
)

var colorGray = &props.Color{Red: 100, Green: 100, Blue: 100}

// PDFRenderer writes one PDF invoice per record into an output directory,
// using Maroto.
type PDFRenderer struct {
	outputDir   string
	companyName string
	companyAddr []string
	log         zerolog.Logger
}

// NewPDFRenderer creates a PDF renderer writing into outputDir.
func NewPDFRenderer(outputDir string) *PDFRenderer {
	return &PDFRenderer{
		outputDir:   outputDir,
		companyName: "ACME Corp Invoice",
		companyAddr: []string{"123 Business St, Suite 100", "San Francisco, CA 94105"},
		log:         logger.WithComponent("pdf-renderer"),
	}
}

// Render builds and saves the invoice document. The file name is the
// deterministic artifact name plus the .pdf extension.
func (r *PDFRenderer) Render(ctx context.Context, rec record.InvoiceRecord, val valuation.Result) (ArtifactRef, error) {
	const op = "Render"

	if err := ctx.Err(); err != nil {
		return ArtifactRef{}, &RenderError{Op: op, CustomerID: rec.CustomerID, Err: err}
	}

	name := ArtifactName(rec, val) + ".pdf"
	path := filepath.Join(r.outputDir, name)

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return ArtifactRef{}, &RenderError{Op: op, CustomerID: rec.CustomerID, Err: err}
	}

	doc, err := r.build(rec, val)
	if err != nil {
		return ArtifactRef{}, &RenderError{Op: op, CustomerID: rec.CustomerID, Err: err}
	}

	if err := doc.Save(path); err != nil {
		return ArtifactRef{}, &RenderError{Op: op, CustomerID: rec.CustomerID, Err: err}
	}

	r.log.Debug().
		Str("customer_id", rec.CustomerID).
		Str("artifact", name).
		Msg("Invoice PDF rendered")

	return ArtifactRef{Name: name, Path: path}, nil
}

func (r *PDFRenderer) build(rec record.InvoiceRecord, val valuation.Result) (core.Document, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(15).WithBottomMargin(15).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 10}).
		Build()

	m := maroto.New(cfg)

	// Company header
	m.AddRows(row.New(10).Add(
		col.New(12).Add(
			text.New(r.companyName, props.Text{Style: fontstyle.Bold, Size: 16}),
		),
	))
	for _, addr := range r.companyAddr {
		m.AddRows(row.New(5).Add(
			col.New(12).Add(text.New(addr, props.Text{Size: 9, Color: colorGray})),
		))
	}

	m.AddRows(row.New(8))
	m.AddRows(row.New(7).Add(
		col.New(12).Add(text.New("INVOICE", props.Text{Style: fontstyle.Bold, Size: 12})),
	))

	// Bill-to block
	m.AddRows(row.New(5).Add(
		col.New(12).Add(text.New("Bill To:", props.Text{Size: 9})),
	))
	billTo := []string{
		rec.CustomerName,
		rec.Address,
		fmt.Sprintf("%s, %s %s", rec.City, rec.State, rec.Zip),
	}
	for _, l := range billTo {
		m.AddRows(row.New(5).Add(
			col.New(12).Add(text.New(l, props.Text{Size: 9, Left: 5})),
		))
	}

	m.AddRows(row.New(5))
	details := []string{
		"Invoice Date: " + rec.InvoiceDate,
		"Due Date: " + rec.DueDate,
		"Customer ID: " + rec.CustomerID,
	}
	for _, l := range details {
		m.AddRows(row.New(5).Add(
			col.New(12).Add(text.New(l, props.Text{Size: 9})),
		))
	}

	// Items, if any. Unparsed entries are printed verbatim.
	if len(rec.Items) > 0 {
		m.AddRows(row.New(7).Add(
			col.New(12).Add(text.New("Items:", props.Text{Style: fontstyle.Bold, Size: 9, Top: 2})),
		))
		for _, item := range rec.Items {
			display := item.Raw
			if !item.Unparsed() {
				display = fmt.Sprintf("%d x %s @ $%s", item.Quantity, item.Name, item.UnitPrice.StringFixed(2))
			}
			m.AddRows(row.New(5).Add(
				col.New(12).Add(text.New(display, props.Text{Size: 9, Left: 5})),
			))
		}
	}

	// Totals block
	m.AddRows(row.New(8))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(totalRow("Subtotal:", rec.Amount.StringFixed(2), false))
	if val.TaxAmount.IsPositive() {
		m.AddRows(totalRow("Tax:", val.TaxAmount.StringFixed(2), false))
	}
	if val.LateFee.IsPositive() {
		m.AddRows(totalRow("Late Fee:", val.LateFee.StringFixed(2), false))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(totalRow("Total Due:", val.Total.StringFixed(2), true))

	return m.Generate()
}

func totalRow(label, amount string, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(6).Add(
		col.New(8).Add(text.New(label, props.Text{Size: 10, Style: style, Align: align.Right})),
		col.New(4).Add(text.New("$"+amount, props.Text{Size: 10, Style: style, Align: align.Right})),
	)
}
