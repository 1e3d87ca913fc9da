package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"labmaint/internal/config"
	"labmaint/internal/seed"
	"labmaint/internal/storage"
)

// endpoint is one side of a migration.
type endpoint struct {
	driver string
	url    string
	path   string
}

func (ep *endpoint) addFlags(fs *pflag.FlagSet, prefix, side string) {
	fs.StringVar(&ep.driver, prefix+"-driver", "", "Store driver of the "+side+" (postgres|badger)")
	fs.StringVar(&ep.url, prefix+"-url", "", "Postgres connection string of the "+side)
	fs.StringVar(&ep.path, prefix+"-path", "", "Badger data directory of the "+side)
}

// storeConfig starts from base so pool tuning carries over.
func (ep endpoint) storeConfig(base config.StoreConfig) (config.StoreConfig, error) {
	cfg := base
	cfg.Driver = ep.driver
	switch ep.driver {
	case config.StoreDriverPostgres:
		if ep.url == "" {
			return cfg, errors.New("a postgres endpoint needs a url")
		}
		cfg.URL = config.SecretString(ep.url)
	case config.StoreDriverBadger:
		if ep.path == "" {
			return cfg, errors.New("a badger endpoint needs a path")
		}
		cfg.BadgerPath = ep.path
	default:
		return cfg, fmt.Errorf("unknown store driver %q", ep.driver)
	}
	return cfg, nil
}

func newMigrateCommand(e *env) *cobra.Command {
	var from, to endpoint
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every machine from one store to another",
		Long:  "migrate replaces the target store's inventory with the source's. An empty source leaves the target untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromCfg, err := from.storeConfig(e.opts.Store)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			toCfg, err := to.storeConfig(e.opts.Store)
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}

			src, err := storage.Open(cmd.Context(), fromCfg, e.logger)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			defer src.Close()
			dst, err := storage.Open(cmd.Context(), toCfg, e.logger)
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}
			defer dst.Close()

			n, err := seed.Migrate(cmd.Context(), src.Repo, dst.Repo, e.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d máquinas migradas\n", n)
			return nil
		},
	}
	from.addFlags(cmd.Flags(), "from", "source")
	to.addFlags(cmd.Flags(), "to", "target")
	_ = cmd.MarkFlagRequired("from-driver")
	_ = cmd.MarkFlagRequired("to-driver")
	return cmd
}
