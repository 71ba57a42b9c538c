package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"demandboard/internal/app"
	"demandboard/internal/config"
	"demandboard/internal/exporter"
	"demandboard/internal/infrastructure"
	"demandboard/internal/middleware"
	"demandboard/internal/services"
	api "demandboard/pkg/contracts/api/v1"
	"demandboard/pkg/contracts/domain"
)

// cli holds state shared by every subcommand
type cli struct {
	cfgFile  string
	verbose  bool
	seed     uint64
	products int
	weeks    int

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "demandctl",
		Short: "Weekly demand dataset tool",
		Long: `demandctl builds the synthetic weekly demand/forecast dataset served by the
dashboard and writes filtered views to files.

Example usage:
  demandctl generate                               # Dataset shape and per-product totals
  demandctl export -p "Product 1" -o data.csv      # CSV of one product
  demandctl export --all --format xlsx -o data.xlsx
  demandctl chart -p "Product 2" --type bar -o chart.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is config.yaml or configs/config.yaml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "verbose output")
	flags.Uint64Var(&c.seed, "seed", 0, "override the dataset seed")
	flags.IntVar(&c.products, "product-count", 0, "override the number of products")
	flags.IntVar(&c.weeks, "weeks", 0, "override the number of weeks")

	root.AddCommand(
		newGenerateCmd(c),
		newExportCmd(c),
		newChartCmd(c),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and applies flag overrides
func (c *cli) init(cmd *cobra.Command) error {
	var err error
	if c.cfgFile != "" {
		c.cfg, err = config.LoadFile(c.cfgFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		c.cfg.Dataset.Seed = c.seed
	}
	if flags.Changed("product-count") {
		c.cfg.Dataset.Products = c.products
	}
	if flags.Changed("weeks") {
		c.cfg.Dataset.Weeks = c.weeks
	}

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), level, "text")
	return nil
}

// service generates the dataset and builds a dashboard service over it
func (c *cli) service(ctx context.Context) (*services.DashboardService, error) {
	dsConfig, err := app.DatasetConfig(c.cfg.Dataset)
	if err != nil {
		return nil, err
	}
	data, err := app.GenerateDataset(ctx, otel.Tracer(infrastructure.MeterName), dsConfig)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "dataset generated", slog.Int("rows", data.Len()))

	opts := app.DashboardOptions(c.cfg)
	// One evaluation per run
	opts.CacheEnabled = false
	return services.NewDashboardService(data, opts, c.logger)
}

// selection holds the filter flags of export and chart
type selection struct {
	products []string
	all      bool
	from     string
	to       string
}

func (s *selection) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.products, "product", "p", nil, "product name, repeatable or comma separated (default Product 1)")
	cmd.Flags().BoolVar(&s.all, "all", false, "select every product")
	cmd.Flags().StringVar(&s.from, "from", "", "first date, YYYY-MM-DD (default dataset start)")
	cmd.Flags().StringVar(&s.to, "to", "", "last date, YYYY-MM-DD (default dataset end)")
}

// criteria validates the flags the same way the HTTP API validates queries
func (s *selection) criteria(svc *services.DashboardService, logger *slog.Logger) (domain.FilterCriteria, error) {
	products := api.SplitProducts(s.products)
	switch {
	case s.all:
		products = svc.Products()
	case len(products) == 0:
		products = svc.DefaultSelection()
	}

	req := api.DashboardQueryRequest{
		Products:         products,
		DateRangeRequest: api.DateRangeRequest{From: s.from, To: s.to},
	}
	if err := middleware.NewValidationMiddleware(logger, nil).ValidateStruct(&req); err != nil {
		return domain.FilterCriteria{}, err
	}
	if err := svc.ValidateProducts(req.Products); err != nil {
		return domain.FilterCriteria{}, err
	}
	return req.Criteria(svc.Range())
}

// writeOutput runs write against stdout for "-", otherwise against path.
// A failed write leaves no file behind.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}
	return exporter.WriteFile(path, write)
}

// formatFromPath infers an output format from the file extension
func formatFromPath(path, fallback string) string {
	if i := strings.LastIndex(path, "."); i >= 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return fallback
}
