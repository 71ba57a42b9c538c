package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"demandboard/internal/services"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		sel    selection
		output string
		format string
		bom    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a filtered view as CSV or XLSX",
		Long: `Write the rows matching the selected products and dates to a file. The
format follows --format, or the output file extension when --format is unset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(output, services.FormatCSV)
			}
			if format != services.FormatCSV && format != services.FormatXLSX {
				return fmt.Errorf("unsupported export format %q, want csv or xlsx", format)
			}

			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}
			criteria, err := sel.criteria(svc, c.logger)
			if err != nil {
				return err
			}

			if output == "-" {
				return svc.Export(ctx, cmd.OutOrStdout(), criteria, format, bom, services.SourceCLI)
			}

			written, err := svc.ExportFile(ctx, output, criteria, format, bom, services.SourceCLI)
			if err != nil {
				return err
			}
			printWrote(cmd.ErrOrStderr(), written)
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "data.csv", `output file, "-" for stdout`)
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix CSV output with a UTF-8 byte order mark")
	return cmd
}
