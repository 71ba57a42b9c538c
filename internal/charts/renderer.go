package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/domain"
)

var (
	// ErrUnsupportedChartType is returned for chart types the renderer cannot draw
	ErrUnsupportedChartType = errors.New("unsupported chart type")
	// ErrUnsupportedFormat is returned for image formats other than png and svg
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Formats lists the image formats Render accepts
var Formats = []string{"png", "svg"}

var (
	demandColor   = color.RGBA{R: 255, A: 255}
	forecastColor = color.RGBA{B: 255, A: 255}
	demandFill    = color.RGBA{R: 255, A: 64}
	forecastFill  = color.RGBA{B: 255, A: 64}
)

// ContentType returns the MIME type of an image format
func ContentType(format string) string {
	if format == "svg" {
		return "image/svg+xml"
	}
	return "image/png"
}

// Renderer draws charts at a fixed canvas size
type Renderer struct {
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewRenderer creates a renderer for a canvas of the given size in inches
func NewRenderer(widthInches, heightInches float64, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if widthInches <= 0 {
		widthInches = 10
	}
	if heightInches <= 0 {
		heightInches = 4
	}
	return &Renderer{
		width:  vg.Length(widthInches) * vg.Inch,
		height: vg.Length(heightInches) * vg.Inch,
		logger: infrastructure.WithComponent(logger, "chart_renderer"),
	}
}

// Title returns the chart title for a product selection
func Title(products []string) string {
	return "Products: " + strings.Join(products, ", ")
}

// Build assembles the plot for a view. The title and the series follow the
// selection order carried in the view criteria.
func (r *Renderer) Build(view domain.View, chartType domain.ChartType) (*plot.Plot, error) {
	if !chartType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChartType, chartType)
	}

	p := plot.New()
	p.Title.Text = Title(view.Criteria.Products)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Quantity"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	series := splitByProduct(view)
	var err error
	if chartType == domain.ChartTypeBar {
		err = addBars(p, series, view.Criteria.Products)
	} else {
		p.X.Tick.Marker = plot.TimeTicks{Format: domain.DateLayout}
		err = addXY(p, series, view.Criteria.Products, chartType)
	}
	if err != nil {
		return nil, err
	}

	p.Y.Min = 0
	if p.Y.Max <= 0 {
		p.Y.Max = 1
	}
	return p, nil
}

// Render draws the view and writes the encoded image to w
func (r *Renderer) Render(w io.Writer, view domain.View, chartType domain.ChartType, format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	p, err := r.Build(view, chartType)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(r.width, r.height, format)
	if err != nil {
		return fmt.Errorf("failed to create %s canvas: %w", format, err)
	}
	n, err := wt.WriteTo(w)
	if err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}

	r.logger.Debug("chart rendered",
		slog.String("chart_type", string(chartType)),
		slog.String("format", format),
		slog.Int("row_count", view.Len()),
		slog.Int64("bytes", n))
	return nil
}

type productSeries struct {
	dates    []time.Time
	demand   []float64
	forecast []float64
}

func splitByProduct(view domain.View) map[string]*productSeries {
	series := make(map[string]*productSeries)
	for _, o := range view.Rows {
		s, ok := series[o.ProductName]
		if !ok {
			s = &productSeries{}
			series[o.ProductName] = s
		}
		s.dates = append(s.dates, o.Date)
		s.demand = append(s.demand, o.Demand)
		s.forecast = append(s.forecast, o.Forecast)
	}
	return series
}

func xys(dates []time.Time, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(dates))
	for i, d := range dates {
		pts[i].X = float64(d.Unix())
		pts[i].Y = values[i]
	}
	return pts
}

func addXY(p *plot.Plot, series map[string]*productSeries, products []string, chartType domain.ChartType) error {
	for _, product := range products {
		s, ok := series[product]
		if !ok {
			continue
		}
		for _, line := range []struct {
			label  string
			values []float64
			stroke color.Color
			fill   color.Color
		}{
			{label: product + " - Demand", values: s.demand, stroke: demandColor, fill: demandFill},
			{label: product + " - Forecast", values: s.forecast, stroke: forecastColor, fill: forecastFill},
		} {
			pts := xys(s.dates, line.values)
			if chartType == domain.ChartTypeScatter {
				sc, err := plotter.NewScatter(pts)
				if err != nil {
					return fmt.Errorf("failed to build scatter for %s: %w", product, err)
				}
				sc.GlyphStyle.Color = line.stroke
				sc.GlyphStyle.Radius = vg.Points(4)
				sc.GlyphStyle.Shape = draw.CircleGlyph{}
				p.Add(sc)
				p.Legend.Add(line.label, sc)
				continue
			}

			l, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("failed to build line for %s: %w", product, err)
			}
			l.Color = line.stroke
			l.Width = vg.Points(2)
			if chartType == domain.ChartTypeArea {
				l.FillColor = line.fill
			}
			p.Add(l)
			p.Legend.Add(line.label, l)
		}
	}
	return nil
}

// addBars draws grouped bars on a nominal date axis
func addBars(p *plot.Plot, series map[string]*productSeries, products []string) error {
	var dates []time.Time
	for _, s := range series {
		dates = append(dates, s.dates...)
	}
	slices.SortFunc(dates, time.Time.Compare)
	dates = slices.Compact(dates)

	labels := make([]string, len(dates))
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(domain.DateLayout)
		index[d] = i
	}

	present := make([]string, 0, len(products))
	for _, product := range products {
		if _, ok := series[product]; ok {
			present = append(present, product)
		}
	}

	barWidth := vg.Points(4)
	n := 2 * len(present)
	for k, product := range present {
		s := series[product]
		for j, bar := range []struct {
			label  string
			values []float64
			fill   color.Color
		}{
			{label: product + " - Demand", values: s.demand, fill: demandColor},
			{label: product + " - Forecast", values: s.forecast, fill: forecastColor},
		} {
			values := make(plotter.Values, len(dates))
			for i, d := range s.dates {
				values[index[d]] = bar.values[i]
			}
			b, err := plotter.NewBarChart(values, barWidth)
			if err != nil {
				return fmt.Errorf("failed to build bars for %s: %w", product, err)
			}
			b.Color = bar.fill
			b.LineStyle.Width = vg.Length(0)
			b.Offset = vg.Length(2*k+j-n/2) * barWidth
			p.Add(b)
			p.Legend.Add(bar.label, b)
		}
	}
	if len(labels) > 0 {
		p.NominalX(labels...)
		p.X.Tick.Label.Rotation = 0.8
		p.X.Tick.Label.XAlign = draw.XRight
	}
	return nil
}
