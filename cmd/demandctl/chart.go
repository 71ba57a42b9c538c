package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"demandboard/internal/services"
	"demandboard/pkg/contracts/domain"
)

func newChartCmd(c *cli) *cobra.Command {
	var (
		sel       selection
		output    string
		chartType string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render demand and forecast for a filtered view",
		Long: `Render demand (red) and forecast (blue) over time for the selected products
as a PNG or SVG image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(output, "png")
			}
			if !domain.ChartType(chartType).IsValid() {
				return fmt.Errorf("%w: %q", services.ErrInvalidChartType, chartType)
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

			err = writeOutput(cmd, output, func(w io.Writer) error {
				return svc.Chart(ctx, w, criteria, domain.ChartType(chartType), format, services.SourceCLI)
			})
			if err != nil {
				return err
			}

			if output != "-" {
				printWrote(cmd.ErrOrStderr(), output)
			}
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "chart.png", `output file, "-" for stdout`)
	cmd.Flags().StringVar(&chartType, "type", string(domain.ChartTypeLine), "line, bar, area or scatter")
	cmd.Flags().StringVar(&format, "format", "", "png or svg")
	return cmd
}
