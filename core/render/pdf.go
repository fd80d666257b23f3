// Package render — PDF output.
// Lays blocks out on A4 pages with gofpdf core fonts. Text is translated
// from UTF-8 to the core font code page so bullets and accents survive.
package render

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// headingSizes are font sizes in points by heading level.
var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

const listIndent = 6.0 // mm per nesting level

// renderPDF converts blocks into PDF bytes.
func renderPDF(blocks []block, template string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreator("quillpipe ("+template+")", true)
	if t := title(blocks); t != "" {
		pdf.SetTitle(t, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	left, _, _, _ := pdf.GetMargins()

	for _, b := range blocks {
		pdf.SetX(left + float64(b.depth)*listIndent)
		switch b.kind {
		case blockHeading:
			renderHeading(pdf, tr(b.text), b.level)
		case blockCode:
			pdf.Ln(2)
			pdf.SetFont("Courier", "", 9)
			pdf.SetFillColor(245, 245, 245)
			for _, line := range strings.Split(b.text, "\n") {
				pdf.SetX(left + float64(b.depth)*listIndent)
				pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
			}
			pdf.Ln(2)
		case blockListItem:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(b.text), "", "L", false)
		case blockRule:
			y := pdf.GetY() + 2
			w, _ := pdf.GetPageSize()
			_, _, right, _ := pdf.GetMargins()
			pdf.SetDrawColor(180, 180, 180)
			pdf.Line(left, y, w-right, y)
			pdf.Ln(5)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(b.text), "", "L", false)
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	size, ok := headingSizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, text, "", "L", false)
	pdf.Ln(2)
}
