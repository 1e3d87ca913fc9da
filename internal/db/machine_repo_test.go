package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labmaint/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// mockTxDB is a DBTX that can also begin transactions.
type mockTxDB struct {
	mockDBTX
	tx       *fakeTx
	beginErr error
}

func (m *mockTxDB) Begin(context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

// fakeTx records statements. Methods it does not override panic through
// the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	execs      []string
	execErrAt  int
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	if t.execErrAt > 0 && len(t.execs) == t.execErrAt {
		return pgconn.CommandTag{}, errors.New("unique violation")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// --- Mock rows ---

type mockRow struct {
	scanErr error
	machine *types.Machine
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return scanInto(r.machine, dest)
}

type mockRows struct {
	data   []*types.Machine
	idx    int
	closed bool
	errVal error
}

func newMockRows(data ...*types.Machine) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error                       { return scanInto(r.data[r.idx], dest) }
func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// scanInto copies m into dest in machineColumns order.
func scanInto(m *types.Machine, dest []any) error {
	if len(dest) != 7 {
		return errors.New("unexpected column count")
	}
	*dest[0].(*string) = m.ID
	*dest[1].(*string) = m.Name
	*dest[2].(*string) = m.Laboratory
	*dest[3].(*types.ObligationList) = m.Obligations
	*dest[4].(*types.HistoryList) = m.History
	*dest[5].(*time.Time) = m.CreatedAt
	*dest[6].(*time.Time) = m.UpdatedAt
	return nil
}

// --- Fixtures ---

const (
	idBanco = "0b7a4c1e-5d2f-4f7a-9a55-2f3c9d8e1a01"
	idTorno = "7f3e2d1c-0b9a-4e8d-8c7b-6a5f4e3d2c10"
)

func fixtureMachine(id, name string) *types.Machine {
	return &types.Machine{
		ID:         id,
		Name:       name,
		Laboratory: "Inyección",
		Obligations: types.ObligationList{
			{Type: "MENSUAL", DueDate: "05/01/2026", Status: types.StatusOnTrack},
		},
		History:   types.HistoryList{},
		CreatedAt: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestMachineRepository_List(t *testing.T) {
	db := new(mockDBTX)
	repo := NewMachineRepository(db)

	rows := newMockRows(fixtureMachine(idBanco, "LI_BANCO_CHINO"), fixtureMachine(idTorno, "TORNO_CNC"))
	db.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "ORDER BY laboratory, name")
	}), mock.Anything).Return(rows, nil)

	machines, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "LI_BANCO_CHINO", machines[0].Name)
	assert.Equal(t, "05/01/2026", machines[0].Obligations[0].DueDate)
	assert.True(t, rows.closed)
	db.AssertExpectations(t)
}

func TestMachineRepository_ListEmptyIsNotNil(t *testing.T) {
	db := new(mockDBTX)
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(newMockRows(), nil)

	machines, err := NewMachineRepository(db).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, machines)
	assert.Empty(t, machines)
}

func TestMachineRepository_ListErrors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("conn reset"))
		_, err := NewMachineRepository(db).List(context.Background())
		assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
	})

	t.Run("iteration", func(t *testing.T) {
		db := new(mockDBTX)
		rows := newMockRows()
		rows.errVal = errors.New("conn reset")
		db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)
		_, err := NewMachineRepository(db).List(context.Background())
		assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
	})
}

func TestMachineRepository_GetByID(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, []any{idBanco}).
		Return(&mockRow{machine: fixtureMachine(idBanco, "LI_BANCO_CHINO")})

	m, err := NewMachineRepository(db).GetByID(context.Background(), idBanco)
	require.NoError(t, err)
	assert.Equal(t, idBanco, m.ID)
	assert.Equal(t, "Inyección", m.Laboratory)
}

func TestMachineRepository_GetByIDNotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := NewMachineRepository(db).GetByID(context.Background(), idBanco)
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundMachine))
}

func TestMachineRepository_GetByIDMalformedIDSkipsQuery(t *testing.T) {
	db := new(mockDBTX)

	_, err := NewMachineRepository(db).GetByID(context.Background(), "64f1c2a9e4b0c8a1d2e3f4a5")
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundMachine))
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachineRepository_GetByIDDatabaseError(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanErr: errors.New("timeout")})

	_, err := NewMachineRepository(db).GetByID(context.Background(), idBanco)
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}

func TestMachineRepository_Replace(t *testing.T) {
	db := new(mockDBTX)
	m := fixtureMachine(idBanco, "LI_BANCO_CHINO")
	m.History = append(m.History, types.HistoryEntry{Type: "MENSUAL", Status: types.StatusCompleted, DueDate: "05/01/2026"})

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "UPDATE machines")
	}), mock.MatchedBy(func(args []any) bool {
		return len(args) == 6 && args[0] == idBanco && len(args[4].(types.HistoryList)) == 1
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, NewMachineRepository(db).Replace(context.Background(), m))
	db.AssertExpectations(t)
}

func TestMachineRepository_ReplaceMissingRow(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := NewMachineRepository(db).Replace(context.Background(), fixtureMachine(idBanco, "X"))
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundMachine))
}

func TestMachineRepository_ReplaceDatabaseError(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, errors.New("disk full"))

	err := NewMachineRepository(db).Replace(context.Background(), fixtureMachine(idBanco, "X"))
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}

func TestMachineRepository_ReplaceAllWithoutTransaction(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, "DELETE FROM machines", mock.Anything).Return(pgconn.NewCommandTag("DELETE 3"), nil).Once()
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO machines")
	}), mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Twice()

	fresh := &types.Machine{Name: "ESTUFA", Laboratory: "Mecánico"}
	err := NewMachineRepository(db).ReplaceAll(context.Background(),
		[]*types.Machine{fixtureMachine(idBanco, "LI_BANCO_CHINO"), fresh})
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.ID, "missing ids are assigned")
	db.AssertExpectations(t)
}

func TestMachineRepository_ReplaceAllInTransaction(t *testing.T) {
	tx := &fakeTx{}
	db := &mockTxDB{tx: tx}

	err := NewMachineRepository(db).ReplaceAll(context.Background(),
		[]*types.Machine{fixtureMachine(idBanco, "A"), fixtureMachine(idTorno, "B")})
	require.NoError(t, err)

	require.Len(t, tx.execs, 3)
	assert.Equal(t, "DELETE FROM machines", tx.execs[0])
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestMachineRepository_ReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	tx := &fakeTx{execErrAt: 3}
	db := &mockTxDB{tx: tx}

	err := NewMachineRepository(db).ReplaceAll(context.Background(),
		[]*types.Machine{fixtureMachine(idBanco, "A"), fixtureMachine(idTorno, "B")})
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestMachineRepository_ReplaceAllRejectsBadIDs(t *testing.T) {
	tx := &fakeTx{}
	db := &mockTxDB{tx: tx}

	err := NewMachineRepository(db).ReplaceAll(context.Background(),
		[]*types.Machine{{ID: "not-a-uuid", Name: "A"}})
	assert.True(t, types.IsCode(err, types.ErrCodeValidationInvalidInput))
	assert.Empty(t, tx.execs, "nothing is deleted when validation fails")
}

func TestMachineRepository_ReplaceAllBeginError(t *testing.T) {
	db := &mockTxDB{beginErr: errors.New("pool closed")}
	err := NewMachineRepository(db).ReplaceAll(context.Background(), nil)
	assert.True(t, types.IsCode(err, types.ErrCodeInternalDB))
}
