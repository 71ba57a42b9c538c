package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demandboard/internal/charts"
	"demandboard/internal/dataprocessing"
	"demandboard/internal/dataset"
	"demandboard/internal/exporter"
	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/domain"
)

// Evaluation sources recorded on metrics and spans
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceCLI       = "cli"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DashboardOptions configures a DashboardService
type DashboardOptions struct {
	CacheEnabled bool
	CacheSize    int
	ChartWidth   float64 // inches
	ChartHeight  float64 // inches
	Summarizer   dataprocessing.SummarizerConfig
	Tracer       trace.Tracer
	Metrics      *infrastructure.DashboardMetrics
}

// DefaultDashboardOptions returns cache and chart settings matching config.Default
func DefaultDashboardOptions() DashboardOptions {
	return DashboardOptions{
		CacheEnabled: true,
		CacheSize:    256,
		ChartWidth:   10,
		ChartHeight:  4,
		Summarizer:   dataprocessing.DefaultSummarizerConfig(),
	}
}

// DashboardService evaluates filter criteria against the immutable dataset
type DashboardService struct {
	data       *dataset.Dataset
	summarizer *dataprocessing.Summarizer
	csv        *exporter.CSVWriter
	xlsx       *exporter.XLSXWriter
	charts     *charts.Renderer
	cache      *lru.Cache[string, domain.View]
	tracer     trace.Tracer
	metrics    *infrastructure.DashboardMetrics
	logger     *slog.Logger
}

// NewDashboardService creates the service around an already generated dataset
func NewDashboardService(data *dataset.Dataset, opts DashboardOptions, logger *slog.Logger) (*DashboardService, error) {
	if data == nil {
		return nil, ErrNoDataset
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "dashboard_service")

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}

	s := &DashboardService{
		data:       data,
		summarizer: dataprocessing.NewSummarizer(logger, opts.Summarizer),
		csv:        exporter.NewCSVWriter("", logger),
		xlsx:       exporter.NewXLSXWriter(logger),
		charts:     charts.NewRenderer(opts.ChartWidth, opts.ChartHeight, logger),
		tracer:     tracer,
		metrics:    opts.Metrics,
		logger:     logger,
	}

	if opts.CacheEnabled && opts.CacheSize > 0 {
		cache, err := lru.New[string, domain.View](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create view cache: %w", err)
		}
		s.cache = cache
	}

	logger.Info("DashboardService initialized",
		slog.Int("rows", data.Len()),
		slog.Int("products", len(data.Products())),
		slog.Uint64("seed", data.Seed()),
		slog.Bool("cache_enabled", s.cache != nil))

	return s, nil
}

// Products returns the catalog sorted as plain strings
func (s *DashboardService) Products() []string {
	return s.data.Products()
}

// DefaultSelection is the initial widget selection: the first catalog product
func (s *DashboardService) DefaultSelection() []string {
	first := dataset.ProductName(1)
	if s.data.HasProduct(first) {
		return []string{first}
	}
	products := s.data.Products()
	if len(products) == 0 {
		return []string{}
	}
	return products[:1]
}

// Range returns the first and last dataset dates
func (s *DashboardService) Range() domain.DateRange {
	return s.data.Range()
}

// Weeks returns the number of weekly timestamps per product
func (s *DashboardService) Weeks() int {
	products := len(s.data.Products())
	if products == 0 {
		return 0
	}
	return s.data.Len() / products
}

// ValidateProducts rejects names missing from the catalog. Names must match
// exactly, surrounding whitespace included.
func (s *DashboardService) ValidateProducts(names []string) error {
	var unknown []string
	for _, name := range dataprocessing.NormalizeCriteria(domain.FilterCriteria{Products: names}).Products {
		if !s.data.HasProduct(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &UnknownProductError{Names: unknown}
	}
	return nil
}

// Evaluate validates the criteria and returns the filtered view. Views are
// memoized by normalized criteria when the cache is enabled.
func (s *DashboardService) Evaluate(ctx context.Context, criteria domain.FilterCriteria, source string) (domain.View, error) {
	return s.evaluateTraced(infrastructure.WithEvaluation(ctx, source, criteria), criteria, source)
}

// evaluateTraced expects ctx to carry the evaluation log attributes
func (s *DashboardService) evaluateTraced(ctx context.Context, criteria domain.FilterCriteria, source string) (domain.View, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.evaluate",
		trace.WithAttributes(
			attribute.String("source", source),
			attribute.Int("products", len(criteria.Products)),
		))
	defer span.End()

	start := time.Now()
	view, cached, err := s.evaluate(ctx, criteria)
	s.metrics.RecordEvaluation(ctx, source, view.Len(), time.Since(start), cached, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "evaluation rejected", slog.String("error", err.Error()))
		return domain.View{}, err
	}

	span.SetAttributes(attribute.Int("rows", view.Len()), attribute.Bool("cached", cached))
	s.logger.DebugContext(ctx, "evaluation completed",
		slog.Int("rows", view.Len()),
		slog.Bool("cached", cached),
		slog.Duration("duration", time.Since(start)))
	return view, nil
}

func (s *DashboardService) evaluate(ctx context.Context, criteria domain.FilterCriteria) (domain.View, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.View{}, false, err
	}
	if err := s.ValidateProducts(criteria.Products); err != nil {
		return domain.View{}, false, err
	}

	if s.cache == nil {
		return dataprocessing.Filter(s.data, criteria), false, nil
	}

	key := dataprocessing.CacheKey(criteria)
	if view, ok := s.cache.Get(key); ok {
		// Same rows, but this caller's selection order
		view.Criteria = dataprocessing.NormalizeCriteria(criteria)
		return view, true, nil
	}
	view := dataprocessing.Filter(s.data, criteria)
	s.cache.Add(key, view)
	return view, false, nil
}

// Dashboard runs one full evaluation cycle: view, summary, groups and cards
func (s *DashboardService) Dashboard(ctx context.Context, criteria domain.FilterCriteria, round bool, source string) (domain.DashboardUpdate, error) {
	view, err := s.Evaluate(ctx, criteria, source)
	if err != nil {
		return domain.DashboardUpdate{}, err
	}
	return s.update(ctx, view, round), nil
}

func (s *DashboardService) update(ctx context.Context, view domain.View, round bool) domain.DashboardUpdate {
	summary, groups := s.summarizer.Summarize(ctx, view, round)

	// Cards always format the unrounded totals
	cardSource := summary
	if round {
		cardSource = dataprocessing.Aggregate(view)
	}

	return domain.DashboardUpdate{
		Products: view.Criteria.Products,
		Range:    domain.DateRange{Start: view.Criteria.Start, End: view.Criteria.End},
		Rows:     view.Rows,
		Summary:  summary,
		Groups:   groups,
		Cards:    s.summarizer.Cards(cardSource),
	}
}

// Summary returns the ungrouped summary and, when grouped is set, the
// per-product summaries
func (s *DashboardService) Summary(ctx context.Context, criteria domain.FilterCriteria, grouped, round bool, source string) (domain.Summary, []domain.ProductSummary, error) {
	view, err := s.Evaluate(ctx, criteria, source)
	if err != nil {
		return domain.Summary{}, nil, err
	}
	summary, groups := s.summarizer.Summarize(ctx, view, round)
	if !grouped {
		groups = nil
	}
	return summary, groups, nil
}

// Cards returns the formatted headline metrics for the criteria
func (s *DashboardService) Cards(ctx context.Context, criteria domain.FilterCriteria, source string) ([]domain.MetricCard, error) {
	view, err := s.Evaluate(ctx, criteria, source)
	if err != nil {
		return nil, err
	}
	return s.summarizer.Cards(dataprocessing.Aggregate(view)), nil
}

// Product returns the single-product dashboard over the full date range.
// Unknown names are rejected like any other selection.
func (s *DashboardService) Product(ctx context.Context, name string, round bool, source string) (domain.DashboardUpdate, error) {
	bounds := s.data.Range()
	return s.Dashboard(ctx, domain.FilterCriteria{
		Products: []string{name},
		Start:    bounds.Start,
		End:      bounds.End,
	}, round, source)
}

// Export writes the filtered view in the given format to w
func (s *DashboardService) Export(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, format string, bom bool, source string) error {
	return s.export(ctx, criteria, format, source, func(ctx context.Context, view domain.View) error {
		switch format {
		case FormatCSV:
			return s.csv.WriteView(w, view, bom)
		default:
			total, groups := s.summarizer.Summarize(ctx, view, false)
			return s.xlsx.WriteView(w, view, total, groups)
		}
	})
}

// ExportFile writes the filtered view to path and returns the path written.
// Nothing appears at path unless the export succeeds.
func (s *DashboardService) ExportFile(ctx context.Context, path string, criteria domain.FilterCriteria, format string, bom bool, source string) (string, error) {
	written := path
	err := s.export(ctx, criteria, format, source, func(ctx context.Context, view domain.View) error {
		switch format {
		case FormatCSV:
			var err error
			written, err = s.csv.WriteViewFile(path, view, bom)
			return err
		default:
			total, groups := s.summarizer.Summarize(ctx, view, false)
			return exporter.WriteFile(path, func(w io.Writer) error {
				return s.xlsx.WriteView(w, view, total, groups)
			})
		}
	})
	if err != nil {
		return "", err
	}
	return written, nil
}

func (s *DashboardService) export(ctx context.Context, criteria domain.FilterCriteria, format, source string, write func(context.Context, domain.View) error) error {
	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	ctx = infrastructure.WithEvaluation(ctx, source, criteria)
	view, err := s.evaluateTraced(ctx, criteria, source)
	if err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.export",
		trace.WithAttributes(attribute.String("format", format), attribute.Int("rows", view.Len())))
	defer span.End()

	if err := write(ctx, view); err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("%s export failed: %w", format, err)
	}

	s.metrics.RecordExport(ctx, "export", format)
	s.logger.InfoContext(ctx, "view exported",
		slog.String("format", format),
		slog.Int("rows", view.Len()))
	return nil
}

// Chart renders the filtered view as an image to w
func (s *DashboardService) Chart(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, chartType domain.ChartType, format, source string) error {
	if !chartType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidChartType, chartType)
	}
	if format != "png" && format != "svg" {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	ctx = infrastructure.WithEvaluation(ctx, source, criteria)
	view, err := s.evaluateTraced(ctx, criteria, source)
	if err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.chart",
		trace.WithAttributes(
			attribute.String("chart_type", string(chartType)),
			attribute.String("format", format),
		))
	defer span.End()

	if err := s.charts.Render(w, view, chartType, format); err != nil {
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("chart rendering failed: %w", err)
	}

	s.metrics.RecordExport(ctx, "chart", format)
	return nil
}
