package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"labmaint/internal/config"
	"labmaint/internal/external"
	"labmaint/internal/telemetry"
	"labmaint/internal/types"
)

// Format is a report file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "xlsx" or "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatPDF:
		return f, nil
	default:
		return "", types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidFormat,
			"formato debe ser xlsx o pdf", nil, map[string]any{"formato": s})
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// File is a rendered report.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// MachineLister is the read side of the machine store.
type MachineLister interface {
	List(ctx context.Context) ([]*types.Machine, error)
}

// Metrics receives report and email observations.
type Metrics interface {
	ObserveReport(format, result string, d time.Duration)
	ObserveEmail(provider, result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveReport(string, string, time.Duration) {}
func (noopMetrics) ObserveEmail(string, string)                 {}

// Exporter renders the history report and delivers it.
type Exporter struct {
	store         MachineLister
	email         external.EmailProvider
	emailProvider string
	archive       external.Archiver
	recipients    []string
	from          types.SenderIdentity
	everyMonths   int
	loc           *time.Location
	metrics       Metrics
	logger        *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ExporterOption {
	return func(e *Exporter) { e.metrics = m }
}

// WithLogger sets the exporter logger.
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = logger }
}

// NewExporter creates an Exporter. email and archive may be nil; the
// corresponding delivery is then skipped.
func NewExporter(
	store MachineLister,
	email external.EmailProvider,
	archive external.Archiver,
	reportCfg config.ReportConfig,
	emailCfg config.EmailConfig,
	loc *time.Location,
	opts ...ExporterOption,
) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	every := reportCfg.EveryMonths
	if every < 1 {
		every = 2
	}
	e := &Exporter{
		store:         store,
		email:         email,
		emailProvider: emailCfg.Provider,
		archive:       archive,
		recipients:    reportCfg.Recipients,
		from:          types.SenderIdentity{Name: emailCfg.FromName, Address: emailCfg.FromAddress},
		everyMonths:   every,
		loc:           loc,
		metrics:       noopMetrics{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot loads the machines and builds the snapshot for period.
func (e *Exporter) Snapshot(ctx context.Context, period Period, now time.Time) (Snapshot, error) {
	machines, err := e.store.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(machines, period, now, e.loc), nil
}

// Render builds one file from a snapshot.
func (e *Exporter) Render(snap Snapshot, format Format) (File, error) {
	start := time.Now()
	var (
		content []byte
		err     error
	)
	switch format {
	case FormatPDF:
		content, err = BuildHistoryPDF(snap)
	default:
		format = FormatXLSX
		content, err = BuildHistoryXLSX(snap)
	}
	if err != nil {
		e.metrics.ObserveReport(string(format), telemetry.ResultError, time.Since(start))
		return File{}, types.NewAppError(types.ErrCodeInternalReport, "no se pudo generar el reporte", err)
	}
	e.metrics.ObserveReport(string(format), telemetry.ResultSuccess, time.Since(start))
	return File{
		Name:        fileName(snap.Period, format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

// OnDemand renders the trailing period ending at now in one format.
func (e *Exporter) OnDemand(ctx context.Context, now time.Time, format Format) (File, error) {
	snap, err := e.Snapshot(ctx, TrailingPeriod(now, e.loc, e.everyMonths), now)
	if err != nil {
		return File{}, err
	}
	return e.Render(snap, format)
}

// Export renders the previous period in both formats, emails them to the
// recipients and archives them. Delivery failures are joined and returned.
func (e *Exporter) Export(ctx context.Context, now time.Time) error {
	period := PreviousPeriod(now, e.loc, e.everyMonths)
	snap, err := e.Snapshot(ctx, period, now)
	if err != nil {
		return err
	}

	var files []File
	for _, f := range []Format{FormatXLSX, FormatPDF} {
		file, err := e.Render(snap, f)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	var errs []error
	if err := e.mailFiles(ctx, snap, files); err != nil {
		errs = append(errs, err)
	}
	if err := e.archiveFiles(ctx, period, files); err != nil {
		errs = append(errs, err)
	}

	e.logger.InfoContext(ctx, "history report exported",
		"period", period.Label(),
		"obligations", len(snap.Obligations),
		"completions", len(snap.History),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}

func (e *Exporter) mailFiles(ctx context.Context, snap Snapshot, files []File) error {
	if e.email == nil || len(e.recipients) == 0 {
		return nil
	}
	body, err := renderEmail(snap)
	if err != nil {
		return err
	}
	msg := types.EmailMessage{
		To:          e.recipients,
		From:        e.from,
		Subject:     body.Subject,
		TextBody:    body.BodyText,
		HTMLBody:    body.BodyHTML,
		ReferenceID: "historial-" + snap.Period.Start.Format("2006-01"),
	}
	for _, f := range files {
		msg.Attachments = append(msg.Attachments, types.Attachment{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Content:     f.Content,
		})
	}

	id, err := e.email.Send(ctx, msg)
	if err != nil {
		e.metrics.ObserveEmail(e.emailProvider, telemetry.ResultError)
		return fmt.Errorf("email report: %w", err)
	}
	e.metrics.ObserveEmail(e.emailProvider, telemetry.ResultSuccess)
	e.logger.InfoContext(ctx, "history report emailed", "recipients", len(e.recipients), "message_id", id)
	return nil
}

func (e *Exporter) archiveFiles(ctx context.Context, period Period, files []File) error {
	if e.archive == nil {
		return nil
	}
	var errs []error
	for _, f := range files {
		key := ArchiveKey(period, f.Name)
		if err := e.archive.Put(ctx, key, f.ContentType, f.Content); err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// ArchiveKey is the object key of a report file.
func ArchiveKey(period Period, name string) string {
	return "reportes/" + period.Start.Format("2006-01") + "/" + name
}

func fileName(period Period, format Format) string {
	last := period.End.Add(-time.Nanosecond)
	return fmt.Sprintf("historial_mantenimiento_%s_%s.%s",
		period.Start.Format("2006-01-02"), last.Format("2006-01-02"), format)
}
