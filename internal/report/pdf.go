package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 14.0
	pdfLineRatio = 0.5
)

func renderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 20, pdfMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title()+" "+Subtitle, true)
	pdf.SetCreator("content-analyzer", true)
	pdf.SetCreationDate(doc.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	line := func(kind, text, align string) {
		st := styles[kind]
		fontStyle := ""
		if st.Bold {
			fontStyle = "B"
		}
		pdf.SetFont("Helvetica", fontStyle, st.Size)
		r, g, b := rgb(st.Color)
		pdf.SetTextColor(r, g, b)
		pdf.MultiCell(0, st.Size*pdfLineRatio, tr(text), "", align, false)
	}

	line("title", doc.Title(), "C")
	pdf.Ln(2)
	line("subtitle", Subtitle, "C")
	pdf.Ln(8)

	for _, cat := range doc.Result.Categories {
		pdf.Ln(4)
		line("category", cat.Category, "L")
		pdf.Ln(2)
		for _, a := range cat.Answers {
			pdf.Ln(3)
			line("question", a.Question, "L")
			pdf.Ln(1)
			line("answer", a.Answer, "L")
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
