package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFamily = "unicode"

// PDFOptions configures PDF rendering. Hebrew text needs a TrueType font
// supplied through FontPath; without one the core Arial font is used.
type PDFOptions struct {
	FontPath    string
	RightToLeft bool
}

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct {
	opts PDFOptions
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(opts ...PDFOptions) *PDFExporter {
	exporter := &PDFExporter{}
	if len(opts) > 0 {
		exporter.opts = opts[0]
	}
	return exporter
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	if e.opts.FontPath != "" {
		pdf.AddUTF8Font(unicodeFamily, "", e.opts.FontPath)
		pdf.AddUTF8Font(unicodeFamily, "B", e.opts.FontPath)
		if pdf.Err() {
			return nil, fmt.Errorf("load pdf font: %w", pdf.Error())
		}
		family = unicodeFamily
		if e.opts.RightToLeft {
			pdf.RTL()
		}
	}
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	headers := data.Headers
	if e.opts.RightToLeft && family == unicodeFamily {
		headers = reversed(headers)
	}

	pdf.SetFont(family, "B", 10)
	colWidth := 190.0 / float64(len(headers))
	for _, header := range headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range data.Rows {
		for _, header := range headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func reversed(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
