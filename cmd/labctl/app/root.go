// Package app holds the labctl commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"labmaint/internal/config"
	"labmaint/internal/maintenance"
	"labmaint/internal/storage"
)

// env is what every subcommand receives once the root has loaded options.
type env struct {
	opts   *Options
	logger *slog.Logger
	now    func() time.Time
}

// openStore opens the configured store.
func (e *env) openStore(ctx context.Context) (*storage.Handle, error) {
	return storage.Open(ctx, e.opts.Store, e.logger)
}

func (e *env) location() (*time.Location, error) {
	loc, err := e.opts.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", e.opts.Schedule.Timezone, err)
	}
	return loc, nil
}

// readStore wraps repo so statuses are derived for today.
func (e *env) readStore(h *storage.Handle, loc *time.Location) *maintenance.RecomputingStore {
	return maintenance.NewRecomputingStore(h.Repo, e.now, loc, e.logger)
}

// NewRootCommand builds the labctl command tree.
func NewRootCommand(ctx context.Context) *cobra.Command {
	return newRootCommand(ctx, time.Now)
}

func newRootCommand(ctx context.Context, now func() time.Time) *cobra.Command {
	opts := &Options{}
	e := &env{opts: opts, now: now}

	cmd := &cobra.Command{
		Use:          "labctl",
		Short:        "Operator tool for the lab maintenance service",
		Long:         "labctl seeds and migrates the machine inventory, lists derived obligation statuses and exports the maintenance history report.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Load(config.NewSecretProvider()); err != nil {
				return err
			}
			e.logger = newLogger(opts.LogLevel)
			return nil
		},
	}
	cmd.SetContext(ctx)
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newSeedCommand(e),
		newMigrateCommand(e),
		newStatusCommand(e),
		newExportCommand(e),
		newNotifyCommand(e),
	)
	return cmd
}
