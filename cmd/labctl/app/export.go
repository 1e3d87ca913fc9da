package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"labmaint/internal/external"
	"labmaint/internal/report"
)

func newExportCommand(e *env) *cobra.Command {
	var (
		format string
		out    string
		email  bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate the maintenance history report",
		Long: "export writes the history report of the trailing period to disk. With --email it runs the scheduled " +
			"delivery instead: both formats for the previous period, mailed to REPORT_RECIPIENTS and archived to REPORT_BUCKET.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			loc, err := e.location()
			if err != nil {
				return err
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			h, err := e.openStore(ctx)
			if err != nil {
				return err
			}
			defer h.Close()
			machines := e.readStore(h, loc)

			if email {
				clients, err := external.NewClientRegistry(ctx, e.opts.ServiceConfig(false), e.logger)
				if err != nil {
					return err
				}
				exporter := report.NewExporter(machines, clients.Email, clients.Archive, e.opts.Report, e.opts.Email, loc,
					report.WithLogger(e.logger))
				if err := exporter.Export(ctx, e.now()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reporte enviado")
				return nil
			}

			exporter := report.NewExporter(machines, nil, nil, e.opts.Report, e.opts.Email, loc, report.WithLogger(e.logger))
			file, err := exporter.OnDemand(ctx, e.now(), f)
			if err != nil {
				return err
			}
			dest := out
			if dest == "" {
				dest = file.Name
			} else if info, err := os.Stat(dest); err == nil && info.IsDir() {
				dest = filepath.Join(dest, file.Name)
			}
			if err := os.WriteFile(dest, file.Content, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "Report format (xlsx|pdf)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file or directory (defaults to the report name in the working directory)")
	cmd.Flags().BoolVar(&email, "email", false, "Mail and archive the previous period's report instead of writing a file")
	return cmd
}
