package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"

	"promptpack/internal/pipeline"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10
	pdfLineHeight = 5
	pdfFontSize   = 9
	pdfTabWidth   = 4
)

// PDFRenderer emits a syntax-highlighted PDF. It implements the same
// Renderer interface as the text formats and participates in atomic writes
// via pdf.Output.
type PDFRenderer struct{}

func (r *PDFRenderer) Render(w io.Writer, records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	writeHeading(pdf, fmt.Sprintf("Code Context: %s", summary.Root))

	for _, rec := range records {
		writeHeading(pdf, rec.RelPath)
		if opts.IncludeMetadata {
			pdf.SetFont("Helvetica", "", pdfFontSize-1)
			pdf.SetTextColor(0, 0, 0)
			meta := fmt.Sprintf("Language: %s | Encoding: %s | Size: %d bytes | Tokens: %d",
				rec.Language, rec.Encoding, rec.Size, rec.TokenCount)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, meta, "", "L", false)
			pdf.Ln(pdfLineHeight / 2)
		}
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		if err := writeHighlighted(pdf, style, rec); err != nil {
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, rec.Content, "", "L", false)
		}
		pdf.AddPage()
	}

	writeHeading(pdf, "Summary")
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.SetTextColor(0, 0, 0)
	lines := []string{
		fmt.Sprintf("Files discovered: %d", summary.Discovered),
		fmt.Sprintf("Files processed: %d", summary.Processed),
		fmt.Sprintf("Binary files skipped: %d", summary.SkippedBinary),
		fmt.Sprintf("Files failed: %d", summary.Failed),
		fmt.Sprintf("Total tokens: %d", summary.TotalTokens),
		fmt.Sprintf("Total bytes: %d", summary.TotalBytes),
	}
	for _, f := range failures {
		lines = append(lines, fmt.Sprintf("Failed: %s (%s): %s", f.RelPath, f.Stage, f.Reason))
	}
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, strings.Join(lines, "\n"), "", "L", false)

	return pdf.Output(w)
}

func writeHeading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, text, "", "L", false)
	pdf.Ln(pdfLineHeight / 2)
}

// writeHighlighted tokenizes the record's content with chroma and writes each
// token in the style's color and weight.
func writeHighlighted(pdf *gofpdf.Fpdf, style *chroma.Style, rec pipeline.FileRecord) error {
	lexer := lexers.Match(rec.Name)
	if lexer == nil {
		lexer = lexers.Get(rec.Language)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, rec.Content)
	if err != nil {
		return fmt.Errorf("tokenizing %s: %w", rec.RelPath, err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	for tok := iterator(); tok != chroma.EOF; tok = iterator() {
		entry := style.Get(tok.Type)
		fontStyle := ""
		if entry.Bold == chroma.Yes {
			fontStyle += "B"
		}
		if entry.Italic == chroma.Yes {
			fontStyle += "I"
		}
		pdf.SetFontStyle(fontStyle)

		if entry.Colour.IsSet() {
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}

		value := strings.ReplaceAll(tok.Value, "\t", strings.Repeat(" ", pdfTabWidth))
		pdf.Write(pdfLineHeight, value)
	}
	pdf.Ln(-1)
	return nil
}
