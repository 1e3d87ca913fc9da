package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"labmaint/internal/seed"
)

func newSeedCommand(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the inventory with a seed file",
		Long:  "seed deletes every machine in the store and inserts the machines of a YAML seed file. Without --file the built-in inventory is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.LoadFile(file)
			if err != nil {
				return err
			}

			h, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			n, err := seed.Apply(cmd.Context(), h.Repo, f, e.now(), e.logger)
			if err != nil {
				return fmt.Errorf("seed %s store: %w", h.Driver, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d máquinas insertadas\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file (defaults to the built-in inventory)")
	return cmd
}
