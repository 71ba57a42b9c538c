package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandboard/pkg/contracts/domain"
)

func TestAggregate(t *testing.T) {
	view := domain.View{Rows: fixture()}
	s := Aggregate(view)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 630.0, s.DemandSum, 1e-9)
	assert.InDelta(t, 635.0, s.ForecastSum, 1e-9)
	require.NotNil(t, s.DemandMean)
	assert.InDelta(t, 126.0, *s.DemandMean, 1e-9)
	require.NotNil(t, s.ForecastMean)
	assert.InDelta(t, 127.0, *s.ForecastMean, 1e-9)
	require.NotNil(t, s.ForecastErrorMean)
	assert.InDelta(t, (10.0+10+15+10+20)/5, *s.ForecastErrorMean, 1e-9)
}

func TestAggregate_EmptyView(t *testing.T) {
	s := Aggregate(domain.View{})

	assert.Equal(t, 0, s.Count)
	assert.Zero(t, s.DemandSum)
	assert.Zero(t, s.ForecastSum)
	assert.Nil(t, s.DemandMean)
	assert.Nil(t, s.ForecastMean)
	assert.Nil(t, s.ForecastErrorMean)
	assert.Nil(t, s.RelativeErrorMean)
}

func TestAggregate_NonMatchingDayHasAbsentMean(t *testing.T) {
	view := Filter(fixture(), domain.FilterCriteria{
		Products: []string{"Product 1"},
		Start:    day(2025, 7, 8),
		End:      day(2025, 7, 8),
	})
	s := Aggregate(view)
	assert.True(t, view.Empty())
	assert.Nil(t, s.DemandMean)
}

func TestAggregateByProduct(t *testing.T) {
	groups := AggregateByProduct(domain.View{Rows: fixture()})
	require.Len(t, groups, 2)

	assert.Equal(t, "Product 1", groups[0].ProductName)
	assert.Equal(t, 3, groups[0].Count)
	assert.InDelta(t, 210.0, groups[0].DemandSum, 1e-9)
	assert.InDelta(t, 70.0, *groups[0].DemandMean, 1e-9)

	assert.Equal(t, "Product 2", groups[1].ProductName)
	assert.InDelta(t, 410.0, groups[1].ForecastSum, 1e-9)
}

func TestAggregateByProduct_Empty(t *testing.T) {
	groups := AggregateByProduct(domain.View{})
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestAggregateByProduct_AddsUpToTotal(t *testing.T) {
	ds := generated(t)
	r := ds.Range()
	view := Filter(ds, domain.FilterCriteria{
		Products: []string{"Product 1", "Product 10", "Product 4"},
		Start:    r.Start,
		End:      r.End,
	})

	total := Aggregate(view)
	groups := AggregateByProduct(view)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"Product 1", "Product 10", "Product 4"},
		[]string{groups[0].ProductName, groups[1].ProductName, groups[2].ProductName})

	var demand, forecast float64
	var count int
	for _, g := range groups {
		demand += g.DemandSum
		forecast += g.ForecastSum
		count += g.Count
	}
	assert.Equal(t, total.Count, count)
	assert.InDelta(t, total.DemandSum, demand, 1e-6)
	assert.InDelta(t, total.ForecastSum, forecast, 1e-6)
}
