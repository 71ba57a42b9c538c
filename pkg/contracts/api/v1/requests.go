// Package api contains the HTTP and WebSocket request contracts of the
// demand dashboard. Version v1 is the current stable API.
package api

import (
	"fmt"
	"strings"
	"time"

	"demandboard/pkg/contracts/domain"
)

// DateRangeRequest represents a date range in requests
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// DashboardQueryRequest carries one set of filter criteria
type DashboardQueryRequest struct {
	Products []string `json:"products" query:"products" validate:"omitempty,max=64,dive,required,max=64"`
	DateRangeRequest
	Round bool `json:"round" query:"round"`
}

// SummaryRequest asks for summary statistics, optionally grouped
type SummaryRequest struct {
	DashboardQueryRequest
	GroupBy string `json:"group_by" query:"group_by" validate:"omitempty,oneof=product_name"`
}

// ChartRequest asks for a rendered chart of the filtered view
type ChartRequest struct {
	DashboardQueryRequest
	Type   string `json:"type" query:"type" validate:"omitempty,oneof=line bar area scatter"`
	Format string `json:"format" query:"format" validate:"omitempty,oneof=png svg"`
}

// ExportRequest asks for a file export of the filtered view
type ExportRequest struct {
	DashboardQueryRequest
	Format string `json:"format" query:"format" validate:"required,oneof=csv xlsx"`
	BOM    bool   `json:"bom" query:"bom"`
}

// ParseDate parses a calendar date; an empty string yields the fallback
func ParseDate(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation(domain.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// Criteria converts the request into filter criteria. Missing bounds fall
// back to the given dataset range.
func (q DashboardQueryRequest) Criteria(bounds domain.DateRange) (domain.FilterCriteria, error) {
	start, err := ParseDate(q.From, bounds.Start)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	end, err := ParseDate(q.To, bounds.End)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	return domain.FilterCriteria{Products: q.Products, Start: start, End: end}, nil
}

// ChartType returns the requested chart type, line by default
func (c ChartRequest) ChartType() domain.ChartType {
	if c.Type == "" {
		return domain.ChartTypeLine
	}
	return domain.ChartType(c.Type)
}

// ChartFormat returns the requested image format, png by default
func (c ChartRequest) ChartFormat() string {
	if c.Format == "" {
		return "png"
	}
	return c.Format
}

// SplitProducts accepts repeated and comma separated product parameters
func SplitProducts(values []string) []string {
	var products []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				products = append(products, p)
			}
		}
	}
	return products
}
