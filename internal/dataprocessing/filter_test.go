package dataprocessing

import (
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandboard/internal/dataset"
	"demandboard/pkg/contracts/domain"
)

type sliceSource []domain.Observation

func (s sliceSource) All() iter.Seq[domain.Observation] {
	return slices.Values(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixture() sliceSource {
	return sliceSource{
		domain.NewObservation(day(2025, 7, 6), "Product 1", 100, 90),
		domain.NewObservation(day(2025, 7, 13), "Product 1", 110, 120),
		domain.NewObservation(day(2025, 7, 20), "Product 1", 0, 15),
		domain.NewObservation(day(2025, 7, 6), "Product 2", 200, 210),
		domain.NewObservation(day(2025, 7, 13), "Product 2", 220, 200),
	}
}

func generated(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Generate(dataset.DefaultConfig())
	require.NoError(t, err)
	return ds
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.FilterCriteria
		want     int
	}{
		{
			name:     "empty product set",
			criteria: domain.FilterCriteria{Start: day(2025, 7, 1), End: day(2025, 8, 1)},
			want:     0,
		},
		{
			name:     "single product full range",
			criteria: domain.FilterCriteria{Products: []string{"Product 1"}, Start: day(2025, 7, 6), End: day(2025, 7, 20)},
			want:     3,
		},
		{
			name:     "inclusive bounds on a single day",
			criteria: domain.FilterCriteria{Products: []string{"Product 1", "Product 2"}, Start: day(2025, 7, 13), End: day(2025, 7, 13)},
			want:     2,
		},
		{
			name:     "reversed range",
			criteria: domain.FilterCriteria{Products: []string{"Product 1"}, Start: day(2025, 7, 20), End: day(2025, 7, 6)},
			want:     0,
		},
		{
			name:     "unknown names contribute nothing",
			criteria: domain.FilterCriteria{Products: []string{"Product 1", "Widget"}, Start: day(2025, 7, 6), End: day(2025, 7, 6)},
			want:     1,
		},
		{
			name:     "non matching day",
			criteria: domain.FilterCriteria{Products: []string{"Product 1"}, Start: day(2025, 7, 7), End: day(2025, 7, 7)},
			want:     0,
		},
		{
			name:     "time of day is ignored",
			criteria: domain.FilterCriteria{Products: []string{"Product 2"}, Start: day(2025, 7, 6).Add(15 * time.Hour), End: day(2025, 7, 6).Add(time.Hour)},
			want:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Filter(fixture(), tt.criteria)
			assert.Equal(t, tt.want, view.Len())
			assert.NotNil(t, view.Rows)
		})
	}
}

func TestFilter_KeepsDatasetOrder(t *testing.T) {
	view := Filter(fixture(), domain.FilterCriteria{
		Products: []string{"Product 2", "Product 1"},
		Start:    day(2025, 7, 1),
		End:      day(2025, 7, 31),
	})
	assert.Equal(t, []domain.Observation(fixture()), view.Rows)
}

func TestFilter_GeneratedDataset(t *testing.T) {
	ds := generated(t)
	r := ds.Range()

	view := Filter(ds, domain.FilterCriteria{Products: []string{"Product 1"}, Start: r.Start, End: r.End})
	assert.Equal(t, 52, view.Len())

	all := Filter(ds, domain.FilterCriteria{Products: ds.Products(), Start: r.Start, End: r.End})
	assert.Equal(t, ds.Rows(), all.Rows)
}

func TestNormalizeCriteria(t *testing.T) {
	c := NormalizeCriteria(domain.FilterCriteria{
		Products: []string{"Product 2", "Product 1", "Product 2", " Product 2"},
		Start:    time.Date(2025, 7, 6, 23, 0, 0, 0, time.UTC),
		End:      day(2025, 7, 20),
	})
	assert.Equal(t, []string{"Product 2", "Product 1", " Product 2"}, c.Products)
	assert.Equal(t, day(2025, 7, 6), c.Start)
}

func TestFilter_KeepsSelectionOrder(t *testing.T) {
	view := Filter(fixture(), domain.FilterCriteria{Products: []string{"Product 2", "Product 1", "Product 2"}, Start: day(2025, 7, 6), End: day(2025, 7, 20)})
	assert.Equal(t, []string{"Product 2", "Product 1"}, view.Criteria.Products)
	require.Len(t, view.Rows, 5)
	assert.Equal(t, "Product 1", view.Rows[0].ProductName, "rows keep dataset order")
}

func TestFilter_PaddedNameMatchesNothing(t *testing.T) {
	view := Filter(fixture(), domain.FilterCriteria{Products: []string{" Product 1 "}, Start: day(2025, 7, 6), End: day(2025, 7, 20)})
	assert.True(t, view.Empty())
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(domain.FilterCriteria{Products: []string{"Product 2", "Product 1"}, Start: day(2025, 7, 6), End: day(2025, 7, 20)})
	b := CacheKey(domain.FilterCriteria{Products: []string{"Product 1", "Product 2", "Product 1"}, Start: day(2025, 7, 6), End: day(2025, 7, 20)})
	c := CacheKey(domain.FilterCriteria{Products: []string{"Product 1"}, Start: day(2025, 7, 6), End: day(2025, 7, 20)})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "2025-07-06|2025-07-20|Product 1|Product 2", a)
}
