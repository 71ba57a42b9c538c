// Package dataprocessing filters the generated dataset and derives the
// summary statistics shown on the dashboard.
//
// # Pipeline
//
// Every evaluation is a pure recomputation over the immutable dataset:
//
//	Dataset → Filter(criteria) → View → Aggregate / AggregateByProduct → Summary
//
// Filter keeps dataset order, treats both date bounds as inclusive and
// returns an empty view for an empty product selection or a reversed range.
// It does not reject unknown product names; that policy belongs to the
// service layer.
//
// # Usage
//
//	view := dataprocessing.Filter(ds, domain.FilterCriteria{
//	    Products: []string{"Product 1"},
//	    Start:    r.Start,
//	    End:      r.End,
//	})
//	summary := dataprocessing.Aggregate(view)
//
// The Summarizer wraps both aggregations, optionally rounds them for display
// and renders the headline metric cards with locale digit grouping.
//
// Means over an empty view are nil rather than NaN.
package dataprocessing
