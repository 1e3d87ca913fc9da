package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

type staticRepo struct {
	machines []*types.Machine
	replaced []*types.Machine
}

func (r *staticRepo) List(context.Context) ([]*types.Machine, error) { return r.machines, nil }
func (r *staticRepo) GetByID(_ context.Context, id string) (*types.Machine, error) {
	for _, m := range r.machines {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundMachine, "Máquina no encontrada", nil)
}
func (r *staticRepo) Replace(_ context.Context, m *types.Machine) error {
	r.replaced = append(r.replaced, m)
	return nil
}
func (r *staticRepo) ReplaceAll(context.Context, []*types.Machine) error { return nil }

func TestRecomputingStore_IgnoresStoredStatus(t *testing.T) {
	repo := &staticRepo{machines: []*types.Machine{{
		ID: "m-1",
		Obligations: types.ObligationList{
			// Stale: stored as on track but long overdue.
			{Type: "MENSUAL", DueDate: "05/01/2026", Status: types.StatusOnTrack},
			{Type: "SEMESTRAL", DueDate: "30/06/2026", Status: types.StatusOverdue},
			{Type: "BIMESTRAL", DueDate: "12/02/2026"},
			{Type: "ANUAL", DueDate: "garbage", Status: types.StatusOverdue},
		},
	}}}
	now := func() time.Time { return time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC) }
	store := NewRecomputingStore(repo, now, time.UTC, nil)

	machines, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 1)

	obs := machines[0].Obligations
	assert.Equal(t, types.StatusOverdue, obs[0].Status)
	assert.Equal(t, types.StatusOnTrack, obs[1].Status)
	assert.Equal(t, types.StatusDueSoon, obs[2].Status)
	assert.Equal(t, types.StatusOnTrack, obs[3].Status, "unparseable dates never alarm")
}

func TestRecomputingStore_GetByID(t *testing.T) {
	repo := &staticRepo{machines: []*types.Machine{{
		ID:          "m-1",
		Obligations: types.ObligationList{{Type: "MENSUAL", DueDate: "10/2/2026"}},
	}}}
	now := func() time.Time { return time.Date(2026, 2, 10, 23, 0, 0, 0, time.UTC) }
	store := NewRecomputingStore(repo, now, time.UTC, nil)

	m, err := store.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDueSoon, m.Obligations[0].Status)

	_, err = store.GetByID(context.Background(), "nope")
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundMachine))
}

func TestRecomputingStore_WritesPassThrough(t *testing.T) {
	repo := &staticRepo{}
	store := NewRecomputingStore(repo, nil, nil, nil)

	require.NoError(t, store.Replace(context.Background(), &types.Machine{ID: "x"}))
	assert.Len(t, repo.replaced, 1)
}
