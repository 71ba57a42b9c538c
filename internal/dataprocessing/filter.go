package dataprocessing

import (
	"iter"
	"slices"
	"strings"
	"time"

	"demandboard/pkg/contracts/domain"
)

// Source is any ordered, read-only collection of observations
type Source interface {
	All() iter.Seq[domain.Observation]
}

// Filter returns the rows of src whose product is in c.Products and whose
// date lies in [c.Start, c.End]. Bounds are compared as calendar dates.
// An empty product set or a reversed range yields an empty view, and names
// that match nothing simply contribute no rows. Rows keep dataset order;
// the view criteria keep the caller's selection order.
func Filter(src Source, c domain.FilterCriteria) domain.View {
	c = NormalizeCriteria(c)
	view := domain.View{Criteria: c, Rows: []domain.Observation{}}
	if len(c.Products) == 0 || c.Start.After(c.End) {
		return view
	}

	selected := make(map[string]struct{}, len(c.Products))
	for _, p := range c.Products {
		selected[p] = struct{}{}
	}
	for obs := range src.All() {
		if obs.Date.Before(c.Start) || obs.Date.After(c.End) {
			continue
		}
		if _, ok := selected[obs.ProductName]; !ok {
			continue
		}
		view.Rows = append(view.Rows, obs)
	}
	return view
}

// NormalizeCriteria drops repeated product names, keeping the first
// occurrence, and truncates both bounds to UTC midnight. Names are compared
// exactly.
func NormalizeCriteria(c domain.FilterCriteria) domain.FilterCriteria {
	products := make([]string, 0, len(c.Products))
	for _, p := range c.Products {
		if !slices.Contains(products, p) {
			products = append(products, p)
		}
	}
	return domain.FilterCriteria{
		Products: products,
		Start:    TruncateDate(c.Start),
		End:      TruncateDate(c.End),
	}
}

// TruncateDate drops the time of day, keeping the calendar date in UTC
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CacheKey renders criteria as a map key. Selections that differ only in
// order or repetition share a key.
func CacheKey(c domain.FilterCriteria) string {
	c = NormalizeCriteria(c)
	slices.Sort(c.Products)
	var b strings.Builder
	b.WriteString(c.Start.Format(domain.DateLayout))
	b.WriteByte('|')
	b.WriteString(c.End.Format(domain.DateLayout))
	for _, p := range c.Products {
		b.WriteByte('|')
		b.WriteString(p)
	}
	return b.String()
}
