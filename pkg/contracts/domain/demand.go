package domain

import (
	"encoding/json"
	"math"
	"time"
)

// DateLayout is the calendar date layout used on every external surface
const DateLayout = "2006-01-02"

// Observation is one weekly demand/forecast row for one product
type Observation struct {
	Date          time.Time `json:"date"`
	ProductName   string    `json:"product_name"`
	Demand        float64   `json:"demand"`
	Forecast      float64   `json:"forecast"`
	ForecastError float64   `json:"forecast_error"`
	RelativeError float64   `json:"relative_error"`
}

// NewObservation builds an observation and derives its error columns.
// A zero demand divides the absolute error by one.
func NewObservation(date time.Time, product string, demand, forecast float64) Observation {
	forecastError := math.Abs(demand - forecast)
	divisor := demand
	if divisor == 0 {
		divisor = 1
	}
	return Observation{
		Date:          date,
		ProductName:   product,
		Demand:        demand,
		Forecast:      forecast,
		ForecastError: forecastError,
		RelativeError: forecastError / divisor,
	}
}

// MarshalJSON renders the date without a time of day
func (o Observation) MarshalJSON() ([]byte, error) {
	type alias Observation
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(o),
		Date:  o.Date.Format(DateLayout),
	})
}

// FilterCriteria selects a subset of the dataset
type FilterCriteria struct {
	Products []string  `json:"products"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// DateRange is an inclusive pair of calendar dates
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarshalJSON renders both bounds as calendar dates
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"start": r.Start.Format(DateLayout),
		"end":   r.End.Format(DateLayout),
	})
}

// View is the filtered subsequence of the dataset for one criteria value.
// Rows keep dataset order and must not be mutated.
type View struct {
	Criteria FilterCriteria `json:"-"`
	Rows     []Observation  `json:"rows"`
}

// Len returns the number of rows in the view
func (v View) Len() int {
	return len(v.Rows)
}

// Empty reports whether the view holds no rows
func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// Summary holds totals and means over a set of observations.
// Means are nil when no rows contributed.
type Summary struct {
	Count             int      `json:"count"`
	DemandSum         float64  `json:"demand_sum"`
	ForecastSum       float64  `json:"forecast_sum"`
	DemandMean        *float64 `json:"demand_mean"`
	ForecastMean      *float64 `json:"forecast_mean"`
	ForecastErrorMean *float64 `json:"forecast_error_mean"`
	RelativeErrorMean *float64 `json:"relative_error_mean"`
}

// ProductSummary is a Summary for a single product
type ProductSummary struct {
	ProductName string `json:"product_name"`
	Summary
}

// Rounded returns a copy with every statistic rounded to the given places
func (s Summary) Rounded(places int) Summary {
	return Summary{
		Count:             s.Count,
		DemandSum:         round(s.DemandSum, places),
		ForecastSum:       round(s.ForecastSum, places),
		DemandMean:        roundPtr(s.DemandMean, places),
		ForecastMean:      roundPtr(s.ForecastMean, places),
		ForecastErrorMean: roundPtr(s.ForecastErrorMean, places),
		RelativeErrorMean: roundPtr(s.RelativeErrorMean, places),
	}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}

// ChartType selects how the series are drawn
type ChartType string

const (
	ChartTypeLine    ChartType = "line"
	ChartTypeBar     ChartType = "bar"
	ChartTypeArea    ChartType = "area"
	ChartTypeScatter ChartType = "scatter"
)

// ChartTypes lists every supported chart type
var ChartTypes = []ChartType{ChartTypeLine, ChartTypeBar, ChartTypeArea, ChartTypeScatter}

// IsValid reports whether the chart type is supported
func (c ChartType) IsValid() bool {
	for _, t := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

// MetricCard is a formatted headline statistic
type MetricCard struct {
	Label string   `json:"label"`
	Value string   `json:"value"`
	Raw   *float64 `json:"raw"`
}

// DashboardUpdate is the result of one evaluation cycle
type DashboardUpdate struct {
	Products []string         `json:"products"`
	Range    DateRange        `json:"range"`
	Rows     []Observation    `json:"rows"`
	Summary  Summary          `json:"summary"`
	Groups   []ProductSummary `json:"groups"`
	Cards    []MetricCard     `json:"cards"`
}
