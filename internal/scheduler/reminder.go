// Package scheduler runs the periodic jobs of the maintenance service: the
// working-hours reminder sweep and the bimonthly history report.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"labmaint/internal/config"
	"labmaint/internal/maintenance"
	"labmaint/internal/types"
)

const (
	overdueTitle      = "⚠️ Mantenimiento Vencido"
	overdueBodyFormat = "%s (%s): %s venció el %s."
	dueSoonTitle      = "🔔 Mantenimiento Próximo"
	dueSoonBodyFormat = "%s (%s): %s vence el %s."
)

// Tick outcomes, also used as metric labels.
const (
	OutcomeSent          = "sent"
	OutcomeOutsideWindow = "outside_working_hours"
	OutcomeError         = "error"
)

// MachineLister is the read side of the machine store.
type MachineLister interface {
	List(ctx context.Context) ([]*types.Machine, error)
}

// Notifier delivers a best-effort push notification.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// ReminderMetrics receives one observation per tick.
type ReminderMetrics interface {
	ObserveReminderTick(outcome string, overdue, dueSoon int)
}

// ReminderConfig is the parsed schedule of the reminder sweep.
type ReminderConfig struct {
	Location     *time.Location
	WorkdayStart TimeOfDay
	WorkdayEnd   TimeOfDay
	DueSoonAt    TimeOfDay
}

// NewReminderConfig parses the schedule settings.
func NewReminderConfig(cfg config.ScheduleConfig) (ReminderConfig, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ReminderConfig{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	start, err := ParseTimeOfDay(cfg.WorkdayStart)
	if err != nil {
		return ReminderConfig{}, fmt.Errorf("workday start: %w", err)
	}
	end, err := ParseTimeOfDay(cfg.WorkdayEnd)
	if err != nil {
		return ReminderConfig{}, fmt.Errorf("workday end: %w", err)
	}
	dueSoon, err := ParseTimeOfDay(cfg.DueSoonNotifyAt)
	if err != nil {
		return ReminderConfig{}, fmt.Errorf("due soon notify time: %w", err)
	}
	return ReminderConfig{Location: loc, WorkdayStart: start, WorkdayEnd: end, DueSoonAt: dueSoon}, nil
}

// InWorkingHours reports whether local is inside [WorkdayStart, WorkdayEnd).
func (c ReminderConfig) InWorkingHours(local time.Time) bool {
	m := minuteOfDay(local)
	return m >= c.WorkdayStart.Minutes() && m < c.WorkdayEnd.Minutes()
}

// ReminderTickResult summarizes one sweep.
type ReminderTickResult struct {
	MachinesScanned int
	OverdueSent     int
	DueSoonSent     int
	SkippedReason   string
}

// ReminderService notifies about overdue obligations on every tick inside
// working hours, and about obligations coming due once a day. Nothing is
// persisted between ticks, so an overdue obligation keeps notifying until it
// is completed.
type ReminderService struct {
	store    MachineLister
	notifier Notifier
	cfg      ReminderConfig
	metrics  ReminderMetrics
	logger   *slog.Logger
}

// NewReminderService creates a ReminderService. metrics may be nil.
func NewReminderService(store MachineLister, notifier Notifier, cfg ReminderConfig, metrics ReminderMetrics, logger *slog.Logger) *ReminderService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReminderService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Name implements Job.
func (s *ReminderService) Name() string { return "reminders" }

// Run implements Job.
func (s *ReminderService) Run(ctx context.Context, now time.Time) error {
	_, err := s.Tick(ctx, now)
	return err
}

// Tick performs one sweep at now.
func (s *ReminderService) Tick(ctx context.Context, now time.Time) (ReminderTickResult, error) {
	local := now.In(s.cfg.Location)

	if !s.cfg.InWorkingHours(local) {
		res := ReminderTickResult{SkippedReason: OutcomeOutsideWindow}
		s.observe(res)
		return res, nil
	}

	machines, err := s.store.List(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveReminderTick(OutcomeError, 0, 0)
		}
		return ReminderTickResult{}, fmt.Errorf("list machines: %w", err)
	}

	dueSoonMinute := s.cfg.DueSoonAt.Matches(local)
	res := ReminderTickResult{MachinesScanned: len(machines)}

	for _, m := range machines {
		for _, ob := range m.Obligations {
			status, err := maintenance.DeriveStatus(ob.DueDate, local)
			if err != nil {
				s.logger.WarnContext(ctx, "skipping obligation with unreadable due date",
					"machine_id", m.ID,
					"tipo", ob.Type,
					"fecha_limite", ob.DueDate,
				)
				continue
			}

			switch {
			case status == types.StatusOverdue:
				s.notifier.Notify(ctx, overdueTitle,
					fmt.Sprintf(overdueBodyFormat, m.Name, m.Laboratory, ob.Type, ob.DueDate))
				res.OverdueSent++
			case status == types.StatusDueSoon && dueSoonMinute:
				s.notifier.Notify(ctx, dueSoonTitle,
					fmt.Sprintf(dueSoonBodyFormat, m.Name, m.Laboratory, ob.Type, ob.DueDate))
				res.DueSoonSent++
			}
		}
	}

	s.observe(res)
	if res.OverdueSent+res.DueSoonSent > 0 {
		s.logger.InfoContext(ctx, "reminders queued",
			"machines", res.MachinesScanned,
			"overdue", res.OverdueSent,
			"due_soon", res.DueSoonSent,
		)
	}
	return res, nil
}

func (s *ReminderService) observe(res ReminderTickResult) {
	if s.metrics == nil {
		return
	}
	outcome := OutcomeSent
	if res.SkippedReason != "" {
		outcome = res.SkippedReason
	}
	s.metrics.ObserveReminderTick(outcome, res.OverdueSent, res.DueSoonSent)
}
