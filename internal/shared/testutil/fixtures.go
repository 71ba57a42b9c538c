package testutil

import (
	"testing"
	"time"

	"demandboard/internal/dataset"
)

// Date returns a UTC midnight calendar date
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dataset generates the default 10 product, 52 week dataset
func Dataset(t testing.TB) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Generate(dataset.DefaultConfig())
	if err != nil {
		t.Fatalf("generate dataset: %v", err)
	}
	return ds
}

// SmallDataset generates a dataset with the given shape and seed
func SmallDataset(t testing.TB, seed uint64, products, weeks int) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Generate(dataset.Config{Seed: seed, Products: products, Weeks: weeks, Start: dataset.DefaultStart})
	if err != nil {
		t.Fatalf("generate dataset: %v", err)
	}
	return ds
}
