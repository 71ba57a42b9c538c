package dataset

import (
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultSeed is the seed used when none is configured
	DefaultSeed uint64 = 42
	// DefaultProducts is the size of the product catalog
	DefaultProducts = 10
	// DefaultWeeks is the number of weekly observations per product
	DefaultWeeks = 52
	// ProductPrefix is prepended to the product index to form its name
	ProductPrefix = "Product "
)

// DefaultStart is the configured series start before weekly anchoring
var DefaultStart = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

// ProductName returns the catalog name of the i-th product, 1-based
func ProductName(i int) string {
	return fmt.Sprintf("%s%d", ProductPrefix, i)
}

// Catalog returns the product names in generation order
func Catalog(n int) []string {
	names := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		names = append(names, ProductName(i))
	}
	return names
}

// SortedCatalog returns the catalog ordered as plain strings,
// so "Product 10" sorts between "Product 1" and "Product 2".
func SortedCatalog(n int) []string {
	names := Catalog(n)
	slices.Sort(names)
	return names
}

// WeekAnchor returns the first Sunday on or after t, at UTC midnight
func WeekAnchor(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}

// WeeklyDates returns n consecutive weekly dates starting at the anchor of start
func WeeklyDates(start time.Time, n int) []time.Time {
	anchor := WeekAnchor(start)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = anchor.AddDate(0, 0, 7*i)
	}
	return dates
}
