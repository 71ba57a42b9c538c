package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"demandboard/internal/services"
	"demandboard/pkg/contracts/domain"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the dataset and print its summary",
		Long: `Generate the dataset from the configured seed and shape, then print the
date range, headline metrics and per-product statistics rounded to two decimals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.service(ctx)
			if err != nil {
				return err
			}

			bounds := svc.Range()
			criteria := domain.FilterCriteria{Products: svc.Products(), Start: bounds.Start, End: bounds.End}
			update, err := svc.Dashboard(ctx, criteria, true, services.SourceCLI)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"seed":    c.cfg.Dataset.Seed,
					"rows":    update.Summary.Count,
					"range":   update.Range,
					"summary": update.Summary,
					"groups":  update.Groups,
					"cards":   update.Cards,
				})
			}

			w := cmd.OutOrStdout()
			printHeader(w, "Dataset")
			fmt.Fprintf(w, "seed:     %d\n", c.cfg.Dataset.Seed)
			fmt.Fprintf(w, "rows:     %d\n", update.Summary.Count)
			fmt.Fprintf(w, "products: %d\n", len(update.Products))
			fmt.Fprintf(w, "range:    %s to %s\n", bounds.Start.Format(domain.DateLayout), bounds.End.Format(domain.DateLayout))
			for _, card := range update.Cards {
				fmt.Fprintf(w, "%-15s %s\n", card.Label+":", card.Value)
			}
			fmt.Fprintln(w)

			printHeader(w, "Per product")
			table := newTable(w)
			table.Header([]string{"product", "count", "demand_sum", "demand_mean", "forecast_sum", "forecast_mean"})
			for _, g := range update.Groups {
				if err := table.Append([]string{
					g.ProductName,
					strconv.Itoa(g.Count),
					fmt.Sprintf("%.2f", g.DemandSum),
					formatMean(g.DemandMean),
					fmt.Sprintf("%.2f", g.ForecastSum),
					formatMean(g.ForecastMean),
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func formatMean(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
