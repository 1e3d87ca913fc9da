package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fixtureSnapshot() Snapshot {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, bogota)
	return BuildSnapshot(fixtureMachines(), PreviousPeriod(now, bogota, 2), now, bogota)
}

func TestBuildHistoryXLSX(t *testing.T) {
	content, err := BuildHistoryXLSX(fixtureSnapshot())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Resumen", "Historial"}, f.GetSheetList())

	summary, err := f.GetRows("Resumen")
	require.NoError(t, err)
	require.Len(t, summary, 4)
	assert.Equal(t, []string{"Laboratorio", "Máquina", "Tipo", "Fecha límite", "Estado"}, summary[0])
	assert.Equal(t, []string{"Inyección", "Banco de inyectores", "LIMPIEZA", "4/3/2026", "Próximo"}, summary[1])

	history, err := f.GetRows("Historial")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"Inyección", "Banco de inyectores", "LIMPIEZA", "2/1/2026", "3/1/2026 09:00"}, history[1])
}

func TestBuildHistoryXLSX_Empty(t *testing.T) {
	content, err := BuildHistoryXLSX(Snapshot{Period: PreviousPeriod(time.Now(), time.UTC, 2)})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Historial")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBuildHistoryPDF(t *testing.T) {
	content, err := BuildHistoryPDF(fixtureSnapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))
}

func TestBuildHistoryPDF_NoHistory(t *testing.T) {
	snap := fixtureSnapshot()
	snap.History = nil
	content, err := BuildHistoryPDF(snap)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
