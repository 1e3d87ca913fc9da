package storage

import (
	"context"
	"fmt"
	"log/slog"

	"labmaint/internal/config"
	"labmaint/internal/db"
	"labmaint/internal/types"
)

// Handle is an open machine repository plus the hooks the process needs
// around it.
type Handle struct {
	Driver string
	Repo   types.MachineRepository
	Ping   func(ctx context.Context) error
	Close  func()
}

// Open opens the repository selected by cfg.Driver. Postgres gets its schema
// applied before the handle is returned.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*Handle, error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Handle{
			Driver: cfg.Driver,
			Repo:   db.NewMachineRepository(pool),
			Ping:   pool.Ping,
			Close:  pool.Close,
		}, nil

	case config.StoreDriverBadger:
		store, err := OpenBadger(cfg.BadgerPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open badger at %s: %w", cfg.BadgerPath, err)
		}
		return &Handle{
			Driver: cfg.Driver,
			Repo:   store,
			Ping:   store.Ping,
			Close: func() {
				if err := store.Close(); err != nil && logger != nil {
					logger.Error("closing badger store", "error", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
