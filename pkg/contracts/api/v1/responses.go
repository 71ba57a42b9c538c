package api

import "demandboard/pkg/contracts/domain"

// ProductsResponse lists the catalog and the default widget selection
type ProductsResponse struct {
	Products []string `json:"products"`
	Default  []string `json:"default"`
}

// RangeResponse holds the dataset date bounds
type RangeResponse struct {
	Range domain.DateRange `json:"range"`
	Weeks int              `json:"weeks"`
}

// ObservationsResponse is a filtered view
type ObservationsResponse struct {
	Products []string             `json:"products"`
	Range    domain.DateRange     `json:"range"`
	Count    int                  `json:"count"`
	Rows     []domain.Observation `json:"rows"`
}

// SummaryResponse holds ungrouped and optionally grouped statistics
type SummaryResponse struct {
	Summary domain.Summary          `json:"summary"`
	Groups  []domain.ProductSummary `json:"groups,omitempty"`
}

// ProductResponse is the single-product dashboard payload
type ProductResponse struct {
	ProductName string               `json:"product_name"`
	Rows        []domain.Observation `json:"rows"`
	Summary     domain.Summary       `json:"summary"`
	Cards       []domain.MetricCard  `json:"cards"`
}
