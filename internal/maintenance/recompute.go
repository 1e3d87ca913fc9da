package maintenance

import (
	"context"
	"log/slog"
	"time"

	"labmaint/internal/types"
)

// Clock returns the current instant. Tests pin it.
type Clock func() time.Time

// RefreshStatuses overwrites every obligation's Status with the value derived
// from its due date. Obligations whose stored date cannot be parsed are
// reported as OnTrack and returned so the caller can log them.
func RefreshStatuses(m *types.Machine, today time.Time) []types.Obligation {
	var invalid []types.Obligation
	for i := range m.Obligations {
		status, err := DeriveStatus(m.Obligations[i].DueDate, today)
		if err != nil {
			invalid = append(invalid, m.Obligations[i])
			status = types.StatusOnTrack
		}
		m.Obligations[i].Status = status
	}
	return invalid
}

// RecomputingStore wraps a repository so that every machine it hands out has
// freshly derived obligation statuses. The stored status is never trusted.
// Writes pass straight through.
type RecomputingStore struct {
	types.MachineRepository
	now    Clock
	loc    *time.Location
	logger *slog.Logger
}

// NewRecomputingStore decorates inner. loc is the plant's time zone; "today"
// is the calendar date of now() in that zone.
func NewRecomputingStore(inner types.MachineRepository, now Clock, loc *time.Location, logger *slog.Logger) *RecomputingStore {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecomputingStore{
		MachineRepository: inner,
		now:               now,
		loc:               loc,
		logger:            logger,
	}
}

// List returns all machines with statuses recomputed.
func (s *RecomputingStore) List(ctx context.Context) ([]*types.Machine, error) {
	machines, err := s.MachineRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now().In(s.loc)
	for _, m := range machines {
		s.refresh(ctx, m, today)
	}
	return machines, nil
}

// GetByID returns one machine with statuses recomputed.
func (s *RecomputingStore) GetByID(ctx context.Context, id string) (*types.Machine, error) {
	m, err := s.MachineRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, m, s.now().In(s.loc))
	return m, nil
}

func (s *RecomputingStore) refresh(ctx context.Context, m *types.Machine, today time.Time) {
	for _, ob := range RefreshStatuses(m, today) {
		s.logger.WarnContext(ctx, "stored due date is not a valid date",
			"machine_id", m.ID,
			"obligation_type", ob.Type,
			"due_date", ob.DueDate,
		)
	}
}
