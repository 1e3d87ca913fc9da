package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"labmaint/internal/config"
)

// ReportExporter produces and delivers the history report for the period
// that ends at now.
type ReportExporter interface {
	Export(ctx context.Context, now time.Time) error
}

// ReportJob exports the history report on a fixed day and minute of every
// EveryMonths-th month, counted from January.
type ReportJob struct {
	exporter    ReportExporter
	loc         *time.Location
	day         int
	at          TimeOfDay
	everyMonths int
	logger      *slog.Logger
}

// NewReportJob creates a ReportJob from the report settings.
func NewReportJob(exporter ReportExporter, cfg config.ReportConfig, loc *time.Location, logger *slog.Logger) (*ReportJob, error) {
	at, err := ParseTimeOfDay(cfg.At)
	if err != nil {
		return nil, fmt.Errorf("report time: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	every := cfg.EveryMonths
	if every < 1 {
		every = 1
	}
	return &ReportJob{
		exporter:    exporter,
		loc:         loc,
		day:         cfg.Day,
		at:          at,
		everyMonths: every,
		logger:      logger,
	}, nil
}

// Name implements Job.
func (j *ReportJob) Name() string { return "history_report" }

// Due reports whether now is the report minute.
func (j *ReportJob) Due(now time.Time) bool {
	local := now.In(j.loc)
	return local.Day() == j.day &&
		(int(local.Month())-1)%j.everyMonths == 0 &&
		j.at.Matches(local)
}

// Run implements Job.
func (j *ReportJob) Run(ctx context.Context, now time.Time) error {
	if !j.Due(now) {
		return nil
	}
	j.logger.InfoContext(ctx, "history report due", "at", now.In(j.loc).Format(time.RFC3339))
	if err := j.exporter.Export(ctx, now); err != nil {
		return fmt.Errorf("export history report: %w", err)
	}
	return nil
}
