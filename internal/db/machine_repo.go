package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"labmaint/internal/types"
)

// MachineRepository stores each machine as one row; obligations and history
// are JSONB columns so a completion is a single-row update.
type MachineRepository struct {
	db DBTX
}

// NewMachineRepository creates a repository on a pool or transaction.
func NewMachineRepository(db DBTX) *MachineRepository {
	return &MachineRepository{db: db}
}

var _ types.MachineRepository = (*MachineRepository)(nil)

const machineColumns = `id, name, laboratory, obligations, history, created_at, updated_at`

func scanMachine(row pgx.Row) (*types.Machine, error) {
	var m types.Machine
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Laboratory,
		&m.Obligations,
		&m.History,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func machineNotFound(id string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundMachine, "Máquina no encontrada", nil,
		map[string]any{"id": id})
}

// List returns every machine ordered by laboratory then name.
func (r *MachineRepository) List(ctx context.Context) ([]*types.Machine, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+machineColumns+` FROM machines ORDER BY laboratory, name`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list machines", err)
	}
	defer rows.Close()

	machines := []*types.Machine{}
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan machine row", err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating machine rows", err)
	}
	return machines, nil
}

// GetByID returns a machine. Ids that are not UUIDs cannot exist and are
// reported as not found without a query.
func (r *MachineRepository) GetByID(ctx context.Context, id string) (*types.Machine, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, machineNotFound(id)
	}

	m, err := scanMachine(r.db.QueryRow(ctx,
		`SELECT `+machineColumns+` FROM machines WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, machineNotFound(id)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get machine", err)
	}
	return m, nil
}

// Replace overwrites the whole document. created_at is preserved.
func (r *MachineRepository) Replace(ctx context.Context, m *types.Machine) error {
	if _, err := uuid.Parse(m.ID); err != nil {
		return machineNotFound(m.ID)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE machines
		 SET name = $2, laboratory = $3, obligations = $4, history = $5,
		     updated_at = COALESCE($6, NOW())
		 WHERE id = $1`,
		m.ID, m.Name, m.Laboratory, m.Obligations, m.History, nilIfZeroTime(m.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update machine", err)
	}
	if tag.RowsAffected() == 0 {
		return machineNotFound(m.ID)
	}
	return nil
}

// ReplaceAll deletes every machine and inserts machines. It runs in one
// transaction when the connection supports it. Machines without an id get a
// fresh UUID, written back into the slice.
func (r *MachineRepository) ReplaceAll(ctx context.Context, machines []*types.Machine) error {
	for _, m := range machines {
		if m.ID == "" {
			m.ID = uuid.NewString()
			continue
		}
		if _, err := uuid.Parse(m.ID); err != nil {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidInput,
				"machine id must be a UUID", err, map[string]any{"id": m.ID})
		}
	}

	beginner, ok := r.db.(TxBeginner)
	if !ok {
		return replaceAll(ctx, r.db, machines)
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	// No-op after a successful commit.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := replaceAll(ctx, tx, machines); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit machine replacement", err)
	}
	return nil
}

func replaceAll(ctx context.Context, db DBTX, machines []*types.Machine) error {
	if _, err := db.Exec(ctx, `DELETE FROM machines`); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to clear machines", err)
	}
	for _, m := range machines {
		_, err := db.Exec(ctx,
			`INSERT INTO machines (id, name, laboratory, obligations, history, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), COALESCE($7, NOW()))`,
			m.ID, m.Name, m.Laboratory, m.Obligations, m.History,
			nilIfZeroTime(m.CreatedAt), nilIfZeroTime(m.UpdatedAt),
		)
		if err != nil {
			return types.NewAppErrorWithDetails(types.ErrCodeInternalDB, "failed to insert machine", err,
				map[string]any{"name": m.Name})
		}
	}
	return nil
}
