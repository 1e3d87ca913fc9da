package types

import "context"

// MachineRepository is the persistence contract shared by the PostgreSQL and
// Badger backends. Replace writes the whole document; there is no partial
// update and no optimistic locking, the last write wins.
type MachineRepository interface {
	List(ctx context.Context) ([]*Machine, error)
	GetByID(ctx context.Context, id string) (*Machine, error)
	Replace(ctx context.Context, m *Machine) error
	// ReplaceAll deletes every machine and inserts the given set.
	ReplaceAll(ctx context.Context, machines []*Machine) error
}
