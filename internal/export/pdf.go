package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"
)

// Page geometry in points on a Letter page: text starts 40pt from the left
// edge with its first baseline 42pt below the top.
const (
	pdfLeft       = 40.0
	pdfTop        = 42.0
	pdfFontSize   = 12.0
	pdfLineHeight = 14.4
	pdfBottom     = 40.0
)

// WritePDF renders text line by line, Helvetica 12pt, adding pages as needed.
// Lines are not wrapped.
func WritePDF(w io.Writer, text string) error {
	pdf, err := render(text)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return eris.Wrap(err, "export: write pdf")
	}
	return nil
}

func render(text string) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pdfLeft, pdfTop, pdfLeft)
	pdf.SetAutoPageBreak(false, pdfBottom)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	_, pageHeight := pdf.GetPageSize()
	pdf.AddPage()
	y := pdfTop

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if y > pageHeight-pdfBottom {
			pdf.AddPage()
			y = pdfTop
		}
		pdf.Text(pdfLeft, y, tr(strings.TrimRight(scanner.Text(), "\r")))
		y += pdfLineHeight
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "export: scan text")
	}
	return pdf, pdf.Error()
}
