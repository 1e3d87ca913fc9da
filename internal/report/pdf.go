package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumnWidths = []float64{40, 70, 70, 40, 47}

// BuildHistoryPDF renders the snapshot as a landscape A4 document with the
// same two tables as the workbook. The core fonts only cover cp1252, so
// every string goes through the translator.
func BuildHistoryPDF(snap Snapshot) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Historial de mantenimiento"), false)
	pdf.SetCreator("labmaint", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr("Historial de mantenimiento"))
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr("Periodo: "+snap.Period.Label()))
	pdf.Ln(5)
	pdf.Cell(0, 6, tr("Generado: "+snap.completedAtLabel(snap.GeneratedAt)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, tr("Estado actual"))
	pdf.Ln(8)
	table(pdf, tr, summaryHeaders, len(snap.Obligations), func(i int) []string {
		r := snap.Obligations[i]
		return []string{r.Laboratory, r.Machine, r.Type, r.DueDate, string(r.Status)}
	})

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, tr("Mantenimientos realizados"))
	pdf.Ln(8)
	if len(snap.History) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(0, 6, tr("Sin registros en el periodo."))
		pdf.Ln(6)
	} else {
		table(pdf, tr, historyHeaders, len(snap.History), func(i int) []string {
			r := snap.History[i]
			return []string{r.Laboratory, r.Machine, r.Type, r.DueDate, snap.completedAtLabel(r.CompletedAt)}
		})
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, headers []string, n int, row func(int) []string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(221, 235, 247)
	for i, h := range headers {
		pdf.CellFormat(pdfColumnWidths[i], 6, tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i := 0; i < n; i++ {
		for c, v := range row(i) {
			pdf.CellFormat(pdfColumnWidths[c], 6, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
