package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Resumen"
	historySheet = "Historial"
)

var (
	summaryHeaders = []string{"Laboratorio", "Máquina", "Tipo", "Fecha límite", "Estado"}
	historyHeaders = []string{"Laboratorio", "Máquina", "Tipo", "Fecha límite", "Fecha de registro"}
	columnWidths   = []float64{18, 32, 30, 14, 18}
)

// BuildHistoryXLSX renders the snapshot as a workbook with a summary sheet
// of current obligations and a history sheet of completions.
func BuildHistoryXLSX(snap Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   "Historial de mantenimiento " + snap.Period.Label(),
		Creator: "labmaint",
	})

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}

	summary := make([][]any, 0, len(snap.Obligations))
	for _, r := range snap.Obligations {
		summary = append(summary, []any{r.Laboratory, r.Machine, r.Type, r.DueDate, string(r.Status)})
	}
	if err := writeSheet(f, summarySheet, summaryHeaders, summary, headerStyle); err != nil {
		return nil, err
	}

	history := make([][]any, 0, len(snap.History))
	for _, r := range snap.History {
		history = append(history, []any{r.Laboratory, r.Machine, r.Type, r.DueDate, snap.completedAtLabel(r.CompletedAt)})
	}
	if err := writeSheet(f, historySheet, historyHeaders, history, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, columnWidths[i]); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
