package dataprocessing

import (
	"maps"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"demandboard/pkg/contracts/domain"
)

// Aggregate computes totals and means across the whole view.
// Means are absent for an empty view; sums are zero.
func Aggregate(view domain.View) domain.Summary {
	return summarize(view.Rows)
}

// AggregateByProduct computes one summary per product present in the view,
// ordered by product name.
func AggregateByProduct(view domain.View) []domain.ProductSummary {
	byProduct := make(map[string][]domain.Observation)
	for _, r := range view.Rows {
		byProduct[r.ProductName] = append(byProduct[r.ProductName], r)
	}

	groups := make([]domain.ProductSummary, 0, len(byProduct))
	for _, name := range slices.Sorted(maps.Keys(byProduct)) {
		groups = append(groups, domain.ProductSummary{
			ProductName: name,
			Summary:     summarize(byProduct[name]),
		})
	}
	return groups
}

func summarize(rows []domain.Observation) domain.Summary {
	s := domain.Summary{Count: len(rows)}
	if len(rows) == 0 {
		return s
	}

	demand := make([]float64, len(rows))
	forecast := make([]float64, len(rows))
	absErr := make([]float64, len(rows))
	relErr := make([]float64, len(rows))
	for i, r := range rows {
		demand[i] = r.Demand
		forecast[i] = r.Forecast
		absErr[i] = r.ForecastError
		relErr[i] = r.RelativeError
	}

	s.DemandSum = floats.Sum(demand)
	s.ForecastSum = floats.Sum(forecast)
	s.DemandMean = ptr(stat.Mean(demand, nil))
	s.ForecastMean = ptr(stat.Mean(forecast, nil))
	s.ForecastErrorMean = ptr(stat.Mean(absErr, nil))
	s.RelativeErrorMean = ptr(stat.Mean(relErr, nil))
	return s
}

func ptr(v float64) *float64 {
	return &v
}
