package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCatalog(t *testing.T) {
	assert.Equal(t, []string{"Product 1", "Product 2", "Product 3"}, Catalog(3))
	assert.Equal(t,
		[]string{"Product 1", "Product 10", "Product 11", "Product 2", "Product 3",
			"Product 4", "Product 5", "Product 6", "Product 7", "Product 8", "Product 9"},
		SortedCatalog(11))
}

func TestWeekAnchor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "tuesday moves to sunday",
			in:   time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.July, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday is kept",
			in:   time.Date(2025, time.July, 6, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.July, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "time of day is dropped",
			in:   time.Date(2025, time.July, 5, 18, 30, 0, 0, time.UTC),
			want: time.Date(2025, time.July, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekAnchor(tt.in))
		})
	}
}

func TestWeeklyDates(t *testing.T) {
	dates := WeeklyDates(DefaultStart, 3)
	assert.Equal(t, []time.Time{
		time.Date(2025, time.July, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 20, 0, 0, 0, 0, time.UTC),
	}, dates)
}
