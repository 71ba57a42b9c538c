package http

import (
	"context"
	"io"

	"demandboard/pkg/contracts/domain"
)

// DashboardServiceInterface defines the dashboard operations the handlers use
type DashboardServiceInterface interface {
	Products() []string
	DefaultSelection() []string
	Range() domain.DateRange
	Weeks() int

	Evaluate(ctx context.Context, criteria domain.FilterCriteria, source string) (domain.View, error)
	Dashboard(ctx context.Context, criteria domain.FilterCriteria, round bool, source string) (domain.DashboardUpdate, error)
	Summary(ctx context.Context, criteria domain.FilterCriteria, grouped, round bool, source string) (domain.Summary, []domain.ProductSummary, error)
	Cards(ctx context.Context, criteria domain.FilterCriteria, source string) ([]domain.MetricCard, error)
	Product(ctx context.Context, name string, round bool, source string) (domain.DashboardUpdate, error)

	Export(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, format string, bom bool, source string) error
	Chart(ctx context.Context, w io.Writer, criteria domain.FilterCriteria, chartType domain.ChartType, format, source string) error
}
