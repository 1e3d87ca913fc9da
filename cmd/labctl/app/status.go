package app

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"labmaint/internal/maintenance"
)

func newStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every obligation with its derived status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := e.location()
			if err != nil {
				return err
			}
			h, err := e.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()

			machines, err := e.readStore(h, loc).List(cmd.Context())
			if err != nil {
				return err
			}

			today := e.now().In(loc)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LABORATORIO\tMAQUINA\tTIPO\tFECHA LIMITE\tDIAS\tESTADO")
			for _, m := range machines {
				for _, ob := range m.Obligations {
					days := "-"
					if due, err := maintenance.ParseDueDate(ob.DueDate); err == nil {
						days = strconv.Itoa(maintenance.DaysRemaining(due, today))
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						m.Laboratory, m.Name, ob.Type, ob.DueDate, days, ob.Status)
				}
			}
			return tw.Flush()
		},
	}
}
