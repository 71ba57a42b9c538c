package dataprocessing

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"demandboard/pkg/contracts/domain"
)

// Summarizer produces the summary statistics and headline cards for a view.
type Summarizer struct {
	logger      *slog.Logger
	printer     *message.Printer
	roundPlaces int
	absentLabel string
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	RoundPlaces int          // Decimal places for rounded grouped stats
	Language    language.Tag // Locale used for digit grouping on cards
	AbsentLabel string       // Card text when a mean is absent
}

// DefaultSummarizerConfig returns the display settings of the dashboard
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		RoundPlaces: 2,
		Language:    language.English,
		AbsentLabel: "n/a",
	}
}

// NewSummarizer creates a summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RoundPlaces < 0 {
		config.RoundPlaces = 0
	}
	if config.Language == language.Und {
		config.Language = language.English
	}
	if config.AbsentLabel == "" {
		config.AbsentLabel = "n/a"
	}

	return &Summarizer{
		logger:      logger,
		printer:     message.NewPrinter(config.Language),
		roundPlaces: config.RoundPlaces,
		absentLabel: config.AbsentLabel,
	}
}

// Summarize computes the ungrouped summary and the per-product groups.
// When round is set every statistic is rounded for display.
func (s *Summarizer) Summarize(ctx context.Context, view domain.View, round bool) (domain.Summary, []domain.ProductSummary) {
	summary := Aggregate(view)
	groups := AggregateByProduct(view)
	if round {
		summary = summary.Rounded(s.roundPlaces)
		for i := range groups {
			groups[i].Summary = groups[i].Summary.Rounded(s.roundPlaces)
		}
	}

	s.logger.DebugContext(ctx, "summarized view",
		slog.Int("row_count", summary.Count),
		slog.Int("group_count", len(groups)),
		slog.Bool("rounded", round))

	return summary, groups
}

// Cards formats the headline metrics shown under the chart
func (s *Summarizer) Cards(summary domain.Summary) []domain.MetricCard {
	demandSum := summary.DemandSum
	forecastSum := summary.ForecastSum
	return []domain.MetricCard{
		s.card("Total Demand", &demandSum),
		s.card("Total Forecast", &forecastSum),
		s.card("Average Demand", summary.DemandMean),
		s.card("Avg Forecast", summary.ForecastMean),
	}
}

func (s *Summarizer) card(label string, v *float64) domain.MetricCard {
	if v == nil {
		return domain.MetricCard{Label: label, Value: s.absentLabel}
	}
	return domain.MetricCard{
		Label: label,
		Value: s.printer.Sprintf("%.0f", *v),
		Raw:   v,
	}
}
