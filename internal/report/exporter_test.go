package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/config"
	"labmaint/internal/external"
	"labmaint/internal/types"
)

type staticLister struct {
	machines []*types.Machine
	err      error
}

func (s staticLister) List(context.Context) ([]*types.Machine, error) { return s.machines, s.err }

type failingEmail struct{}

func (failingEmail) Send(context.Context, types.EmailMessage) (string, error) {
	return "", types.NewAppError(types.ErrCodeEmailBlocked, "blocked", nil)
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, string, []byte) error {
	return types.NewAppError(types.ErrCodeUpstreamStorage, "denied", nil)
}

type recordingMetrics struct {
	reports []string
	emails  []string
}

func (m *recordingMetrics) ObserveReport(format, result string, _ time.Duration) {
	m.reports = append(m.reports, format+":"+result)
}

func (m *recordingMetrics) ObserveEmail(provider, result string) {
	m.emails = append(m.emails, provider+":"+result)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testReportCfg = config.ReportConfig{Recipients: []string{"jefe@lab.test"}, EveryMonths: 2}
	testEmailCfg  = config.EmailConfig{Provider: "stub", FromAddress: "noreply@lab.test", FromName: "Mantenimiento"}
	exportNow     = time.Date(2026, 3, 1, 7, 0, 0, 0, bogota)
)

func TestExport_EmailsAndArchivesBothFormats(t *testing.T) {
	email := external.NewStubEmailProvider(discardLogger())
	archive := external.NewStubArchiver(discardLogger())
	metrics := &recordingMetrics{}
	exp := NewExporter(staticLister{machines: fixtureMachines()}, email, archive, testReportCfg, testEmailCfg, bogota,
		WithMetrics(metrics), WithLogger(discardLogger()))

	require.NoError(t, exp.Export(context.Background(), exportNow))

	sent := email.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, []string{"jefe@lab.test"}, msg.To)
	assert.Equal(t, "noreply@lab.test", msg.From.Address)
	assert.Equal(t, "Reporte de mantenimiento 1/1/2026 - 28/2/2026", msg.Subject)
	assert.Equal(t, "historial-2026-01", msg.ReferenceID)
	assert.Contains(t, msg.TextBody, "Periodo: 1/1/2026 - 28/2/2026")
	assert.Contains(t, msg.HTMLBody, "<h2>Historial de mantenimiento</h2>")
	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "historial_mantenimiento_2026-01-01_2026-02-28.xlsx", msg.Attachments[0].Filename)
	assert.Equal(t, "historial_mantenimiento_2026-01-01_2026-02-28.pdf", msg.Attachments[1].Filename)
	assert.Equal(t, "application/pdf", msg.Attachments[1].ContentType)

	xlsx, ok := archive.Object("reportes/2026-01/historial_mantenimiento_2026-01-01_2026-02-28.xlsx")
	assert.True(t, ok)
	assert.Equal(t, msg.Attachments[0].Content, xlsx)
	_, ok = archive.Object("reportes/2026-01/historial_mantenimiento_2026-01-01_2026-02-28.pdf")
	assert.True(t, ok)

	assert.Equal(t, []string{"xlsx:success", "pdf:success"}, metrics.reports)
	assert.Equal(t, []string{"stub:success"}, metrics.emails)
}

func TestExport_WithoutRecipientsOrArchive(t *testing.T) {
	email := external.NewStubEmailProvider(discardLogger())
	exp := NewExporter(staticLister{machines: fixtureMachines()}, email, nil,
		config.ReportConfig{EveryMonths: 2}, testEmailCfg, bogota, WithLogger(discardLogger()))

	require.NoError(t, exp.Export(context.Background(), exportNow))
	assert.Empty(t, email.Sent())
}

func TestExport_DeliveryFailuresAreJoined(t *testing.T) {
	metrics := &recordingMetrics{}
	exp := NewExporter(staticLister{machines: fixtureMachines()}, failingEmail{}, failingArchive{},
		testReportCfg, testEmailCfg, bogota, WithMetrics(metrics), WithLogger(discardLogger()))

	err := exp.Export(context.Background(), exportNow)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeEmailBlocked))
	assert.Contains(t, err.Error(), "archive reportes/2026-01/")
	assert.Equal(t, []string{"stub:error"}, metrics.emails)
}

func TestExport_StoreError(t *testing.T) {
	email := external.NewStubEmailProvider(discardLogger())
	exp := NewExporter(staticLister{err: errors.New("db down")}, email, nil, testReportCfg, testEmailCfg, bogota)

	err := exp.Export(context.Background(), exportNow)
	require.Error(t, err)
	assert.Empty(t, email.Sent())
}

func TestOnDemand(t *testing.T) {
	exp := NewExporter(staticLister{machines: fixtureMachines()}, nil, nil, testReportCfg, testEmailCfg, bogota)

	file, err := exp.OnDemand(context.Background(), time.Date(2026, 3, 15, 10, 0, 0, 0, bogota), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "historial_mantenimiento_2026-02-01_2026-03-15.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Content)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	f, err = ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("csv")
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidFormat))
}
