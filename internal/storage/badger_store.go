// Package storage is the embedded implementation of the machine repository,
// used for single-node installs and local development. Machines are JSON
// documents under "machine:<id>" in a Badger database.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"labmaint/internal/types"
)

var machinePrefix = []byte("machine:")

func machineKey(id string) []byte {
	return append(bytes.Clone(machinePrefix), id...)
}

// BadgerStore implements types.MachineRepository.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

var _ types.MachineRepository = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a store at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(path)).
		WithLogger(badgerLogger{logger: logger}).
		WithValueLogFileSize(16 << 20)
	return open(opts)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*BadgerStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ping is the health probe: it fails once the store is closed.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store is closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// List returns every machine ordered by laboratory then name.
func (s *BadgerStore) List(ctx context.Context) ([]*types.Machine, error) {
	machines := []*types.Machine{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: machinePrefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var m types.Machine
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			machines = append(machines, &m)
		}
		return nil
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to list machines", err)
	}

	sort.SliceStable(machines, func(i, j int) bool {
		if machines[i].Laboratory != machines[j].Laboratory {
			return machines[i].Laboratory < machines[j].Laboratory
		}
		return machines[i].Name < machines[j].Name
	})
	return machines, nil
}

// GetByID returns one machine.
func (s *BadgerStore) GetByID(_ context.Context, id string) (*types.Machine, error) {
	var m types.Machine
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(machineKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &m) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to get machine", err)
	}
	return &m, nil
}

// update runs fn in a read-write transaction, rerunning it when a concurrent
// commit touched the same keys. The last commit wins.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}
	}
}

// Replace overwrites an existing machine. Replacing a machine that does not
// exist is not_found_machine; the store never creates documents here.
// Concurrent replaces of the same machine all succeed and the last one wins.
func (s *BadgerStore) Replace(ctx context.Context, m *types.Machine) error {
	doc := m.Clone()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now()
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(machineKey(doc.ID))
		if err != nil {
			return err
		}
		var existing types.Machine
		if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &existing) }); err != nil {
			return err
		}
		doc.CreatedAt = existing.CreatedAt
		return setMachine(txn, doc)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return notFound(m.ID)
	default:
		return types.NewAppError(types.ErrCodeInternalStore, "failed to replace machine", err)
	}
}

// ReplaceAll deletes every machine and writes machines in a single
// transaction. Missing ids are assigned and written back into the slice.
func (s *BadgerStore) ReplaceAll(ctx context.Context, machines []*types.Machine) error {
	now := s.now()
	err := s.update(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: machinePrefix})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, m := range machines {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			doc := m.Clone()
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			if doc.UpdatedAt.IsZero() {
				doc.UpdatedAt = now
			}
			if err := setMachine(txn, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to replace machines", err)
	}
	return nil
}

func setMachine(txn *badger.Txn, m *types.Machine) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return txn.Set(machineKey(m.ID), data)
}

func notFound(id string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundMachine, "Máquina no encontrada", nil,
		map[string]any{"id": id})
}

// badgerLogger forwards Badger's warnings and errors to slog and drops the
// chatty info/debug output.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Error("badger: " + fmt.Sprintf(format, args...))
	}
}

func (l badgerLogger) Warningf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
	}
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
