// Package export writes documents to fixed-layout formats.
package export

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/storage"
)

// Page sizes accepted by PDFOptions.
const (
	PageA4     = "A4"
	PageLetter = "Letter"
)

// PDFOptions configures the PDF layout.
type PDFOptions struct {
	FontSize float64
	PageSize string
}

// PDF lays out markdown as plain text in a PDF document, one block per
// paragraph, heading, list item or code block.
type PDF struct {
	blocks *render.Renderer
	store  storage.Provider
	opts   PDFOptions
}

// NewPDF creates a PDF exporter that writes through store.
func NewPDF(r *render.Renderer, store storage.Provider, opts PDFOptions) *PDF {
	if opts.FontSize <= 0 {
		opts.FontSize = 12
	}
	if opts.PageSize == "" {
		opts.PageSize = PageA4
	}
	return &PDF{blocks: r, store: store, opts: opts}
}

// Export renders text and writes the PDF to dest. A missing .pdf extension
// is appended.
func (p *PDF) Export(ctx context.Context, text, dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("export: destination is required")
	}
	if !strings.EqualFold(filepath.Ext(dest), ".pdf") {
		dest += ".pdf"
	}
	data, err := p.Build(text)
	if err != nil {
		return "", err
	}
	written, err := p.store.WriteFile(ctx, dest, data)
	if err != nil {
		return "", fmt.Errorf("export: write %s: %w", dest, err)
	}
	return written, nil
}

// Build returns the PDF bytes for text.
func (p *PDF) Build(text string) ([]byte, error) {
	const (
		margin = 20.0 // mm
		indent = 8.0  // mm per nesting level
	)
	base := p.opts.FontSize
	lineHeight := base * 0.5

	doc := fpdf.New("P", "mm", p.opts.PageSize, "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	if title := parser.Title([]byte(text), ""); title != "" {
		doc.SetTitle(title, true)
	}
	doc.SetCreator("inkwell", true)
	doc.AddPage()

	for _, b := range p.blocks.Blocks(text) {
		doc.SetX(margin)
		switch b.Kind {
		case render.Heading:
			size := base + float64(max(0, 8-2*(b.Level-1)))
			doc.SetFont("Helvetica", "B", size)
			doc.Ln(lineHeight * 0.5)
			doc.MultiCell(0, size*0.5, tr(b.Text), "", "L", false)
		case render.Code, render.TableRow:
			doc.SetFont("Courier", "", base-1)
			doc.SetX(margin + indent)
			doc.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
		case render.ListItem:
			doc.SetFont("Helvetica", "", base)
			doc.SetX(margin + indent*float64(b.Level))
			doc.MultiCell(0, lineHeight, tr("- "+b.Text), "", "L", false)
		case render.Quote:
			doc.SetFont("Helvetica", "I", base)
			doc.SetX(margin + indent)
			doc.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
		case render.Rule:
			w, _ := doc.GetPageSize()
			y := doc.GetY() + lineHeight*0.5
			doc.Line(margin, y, w-margin, y)
			doc.SetY(y)
		default:
			doc.SetFont("Helvetica", "", base)
			doc.MultiCell(0, lineHeight, tr(b.Text), "", "L", false)
		}
		doc.Ln(lineHeight * 0.5)
	}

	if doc.Err() {
		return nil, fmt.Errorf("export: generate pdf: %w", doc.Error())
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
