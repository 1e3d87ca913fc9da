package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"labmaint/internal/types"
)

// Completion notification text.
const (
	completionTitle      = "✅ Registro Exitoso"
	completionBodyFormat = "%s: %s completado."
)

// MachineStore is the persistence the workflow needs.
type MachineStore interface {
	GetByID(ctx context.Context, id string) (*types.Machine, error)
	Replace(ctx context.Context, m *types.Machine) error
}

// Notifier delivers a best-effort notification. It must not block on the
// provider and has no way to report failure.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// CompletionResult describes what a completion changed.
type CompletionResult struct {
	MachineID       string    `json:"machine_id"`
	MachineName     string    `json:"machine_name"`
	ObligationType  string    `json:"tipo"`
	PreviousDueDate string    `json:"fecha_limite_anterior"`
	NextDueDate     string    `json:"fecha_limite"`
	CompletedAt     time.Time `json:"fecha_registro"`
}

// CompletionWorkflow records a completed obligation: it appends history,
// reschedules the obligation and persists the machine as one document.
type CompletionWorkflow struct {
	store    MachineStore
	notifier Notifier
	now      Clock
	loc      *time.Location
	logger   *slog.Logger
}

// WorkflowOption configures a CompletionWorkflow.
type WorkflowOption func(*CompletionWorkflow)

// WithClock overrides time.Now.
func WithClock(now Clock) WorkflowOption {
	return func(w *CompletionWorkflow) { w.now = now }
}

// WithLocation sets the time zone used to compute the next due date.
func WithLocation(loc *time.Location) WorkflowOption {
	return func(w *CompletionWorkflow) { w.loc = loc }
}

// WithLogger sets the workflow logger.
func WithLogger(logger *slog.Logger) WorkflowOption {
	return func(w *CompletionWorkflow) { w.logger = logger }
}

// NewCompletionWorkflow creates a workflow. notifier may be nil, in which
// case completions are silent.
func NewCompletionWorkflow(store MachineStore, notifier Notifier, opts ...WorkflowOption) *CompletionWorkflow {
	w := &CompletionWorkflow{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		loc:      time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Complete marks the first obligation of type obligationType on the machine
// as done.
//
// Errors:
//   - not_found_machine when the machine does not exist
//   - validation_invalid_obligation_type when no obligation has that type
//   - internal_database_error (or the store's own AppError) when the write fails
//
// Nothing is written in any error case. The notification is sent only after
// a successful write and its outcome never affects the result.
func (w *CompletionWorkflow) Complete(ctx context.Context, machineID, obligationType string) (*CompletionResult, error) {
	stored, err := w.store.GetByID(ctx, machineID)
	if err != nil {
		return nil, err
	}

	idx := stored.FindObligation(obligationType)
	if idx < 0 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidObligationType,
			"Tipo no válido",
			nil,
			map[string]any{"tipo": obligationType},
		)
	}

	now := w.now().In(w.loc)
	m := stored.Clone()
	ob := &m.Obligations[idx]

	m.History = append(m.History, types.HistoryEntry{
		Type:       ob.Type,
		Status:     types.StatusCompleted,
		DueDate:    ob.DueDate,
		RecordedAt: now,
	})

	previous := ob.DueDate
	ob.DueDate = NextDueDate(ob.Type, now)
	ob.Status = types.StatusOnTrack
	m.UpdatedAt = now

	if err := w.store.Replace(ctx, m); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to save maintenance record", err)
	}

	w.logger.InfoContext(ctx, "maintenance completed",
		"machine_id", m.ID,
		"obligation_type", ob.Type,
		"previous_due_date", previous,
		"next_due_date", ob.DueDate,
	)

	if w.notifier != nil {
		w.notifier.Notify(ctx, completionTitle, fmt.Sprintf(completionBodyFormat, m.Name, ob.Type))
	}

	return &CompletionResult{
		MachineID:       m.ID,
		MachineName:     m.Name,
		ObligationType:  ob.Type,
		PreviousDueDate: previous,
		NextDueDate:     ob.DueDate,
		CompletedAt:     now,
	}, nil
}
