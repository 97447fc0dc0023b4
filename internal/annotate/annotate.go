// Package annotate renders highlight overlays onto an existing PDF.
// The source pages are imported as templates and the highlights are
// drawn on top, so the original content is preserved byte-for-byte as
// page background.
package annotate

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/dgallion1/docmark/internal/document"
	"github.com/dgallion1/docmark/internal/findings"
)

// CapabilityError reports a requested annotation feature this writer
// cannot produce. It is a permanent condition, not a transient failure.
type CapabilityError struct {
	Feature string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("annotation feature not supported: %s", e.Feature)
}

// Options control how highlights are drawn.
type Options struct {
	// FillAlpha is the opacity of the highlight fill, 0..1.
	FillAlpha float64
	// Border draws a solid outline around each highlight.
	Border bool
	// Tooltips requests interactive popup notes on each highlight.
	// The overlay writer draws static content only and rejects this
	// with a *CapabilityError.
	Tooltips bool
}

func DefaultOptions() Options {
	return Options{FillAlpha: 0.3, Border: true}
}

// Writer overlays highlight rectangles onto the pages of a source PDF.
type Writer struct {
	opts Options
}

func NewWriter(opts Options) (*Writer, error) {
	if opts.Tooltips {
		return nil, &CapabilityError{Feature: "tooltips"}
	}
	if opts.FillAlpha < 0 || opts.FillAlpha > 1 {
		return nil, fmt.Errorf("fill alpha %v out of range [0,1]", opts.FillAlpha)
	}
	return &Writer{opts: opts}, nil
}

// Annotate returns a copy of pdfData with the given highlights drawn on
// top. Every page of the document is carried over, annotated or not.
// Instructions must already be in page point coordinates with a
// top-left origin, which is what fpdf draws in.
func (w *Writer) Annotate(doc *document.Document, pdfData []byte, instructions []findings.HighlightInstruction) ([]byte, error) {
	byPage := make(map[int][]findings.HighlightInstruction, len(instructions))
	for _, in := range instructions {
		byPage[in.Page] = append(byPage[in.Page], in)
	}

	pdf := fpdf.New("P", "pt", "", "")
	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(pdfData))

	for _, page := range doc.Pages() {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})

		tpl := importer.ImportPageFromStream(pdf, &rs, page.Number, "/MediaBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, page.Width, 0)

		for _, in := range byPage[page.Number] {
			w.drawHighlight(pdf, in)
		}
	}
	if pdf.Err() {
		return nil, fmt.Errorf("compose annotated pdf: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write annotated pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *Writer) drawHighlight(pdf *fpdf.Fpdf, in findings.HighlightInstruction) {
	r := in.Bounds
	c := in.Color

	pdf.SetFillColor(c.R, c.G, c.B)
	pdf.SetAlpha(w.opts.FillAlpha, "Normal")
	pdf.Rect(r.X, r.Y, r.W, r.H, "F")
	pdf.SetAlpha(1.0, "Normal")

	if w.opts.Border {
		pdf.SetDrawColor(c.R, c.G, c.B)
		pdf.SetLineWidth(0.8)
		pdf.Rect(r.X, r.Y, r.W, r.H, "D")
	}
}
