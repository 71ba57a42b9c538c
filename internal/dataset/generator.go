package dataset

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"demandboard/pkg/contracts/domain"
)

// ErrInvalidConfig is returned when a Config cannot produce a dataset
var ErrInvalidConfig = errors.New("invalid dataset config")

const (
	baseDemandMin  = 100.0
	baseDemandMax  = 1000.0
	demandSpread   = 0.20
	forecastSpread = 0.15
)

// Config controls dataset generation
type Config struct {
	Seed     uint64
	Products int
	Weeks    int
	// Start is snapped forward to the next Sunday
	Start time.Time
}

// DefaultConfig returns the standard 10 product, 52 week configuration
func DefaultConfig() Config {
	return Config{
		Seed:     DefaultSeed,
		Products: DefaultProducts,
		Weeks:    DefaultWeeks,
		Start:    DefaultStart,
	}
}

// Validate checks the config for values Generate cannot handle
func (c Config) Validate() error {
	if c.Products <= 0 {
		return fmt.Errorf("%w: products must be positive, got %d", ErrInvalidConfig, c.Products)
	}
	if c.Weeks <= 0 {
		return fmt.Errorf("%w: weeks must be positive, got %d", ErrInvalidConfig, c.Weeks)
	}
	return nil
}

// Dataset is the immutable generated table, sorted by (product_name, date)
type Dataset struct {
	seed     uint64
	rows     []domain.Observation
	products []string
	catalog  map[string]struct{}
	dates    domain.DateRange
}

// Generate builds the dataset described by cfg. The same config always
// yields identical rows.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultStart
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	base := distuv.Uniform{Min: baseDemandMin, Max: baseDemandMax, Src: src}
	dates := WeeklyDates(cfg.Start, cfg.Weeks)
	names := Catalog(cfg.Products)

	rows := make([]domain.Observation, 0, cfg.Products*cfg.Weeks)
	demand := make([]float64, cfg.Weeks)
	forecast := make([]float64, cfg.Weeks)
	for _, name := range names {
		mean := base.Rand()
		drawSeries(demand, distuv.Normal{Mu: mean, Sigma: demandSpread * mean, Src: src})
		drawSeries(forecast, distuv.Normal{Mu: mean, Sigma: forecastSpread * mean, Src: src})
		for i, date := range dates {
			rows = append(rows, domain.NewObservation(date, name, demand[i], forecast[i]))
		}
	}

	slices.SortStableFunc(rows, func(a, b domain.Observation) int {
		if c := cmp.Compare(a.ProductName, b.ProductName); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})

	products := slices.Clone(names)
	slices.Sort(products)
	catalog := make(map[string]struct{}, len(products))
	for _, p := range products {
		catalog[p] = struct{}{}
	}

	return &Dataset{
		seed:     cfg.Seed,
		rows:     rows,
		products: products,
		catalog:  catalog,
		dates:    domain.DateRange{Start: dates[0], End: dates[len(dates)-1]},
	}, nil
}

// drawSeries fills dst from dist, truncating negative draws to zero
func drawSeries(dst []float64, dist distuv.Normal) {
	for i := range dst {
		dst[i] = max(dist.Rand(), 0)
	}
}

// All iterates the rows in dataset order
func (d *Dataset) All() iter.Seq[domain.Observation] {
	return func(yield func(domain.Observation) bool) {
		for _, row := range d.rows {
			if !yield(row) {
				return
			}
		}
	}
}

// Rows returns a copy of every row
func (d *Dataset) Rows() []domain.Observation {
	return slices.Clone(d.rows)
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Seed returns the seed the dataset was generated from
func (d *Dataset) Seed() uint64 {
	return d.seed
}

// Products returns the distinct product names in string order
func (d *Dataset) Products() []string {
	return slices.Clone(d.products)
}

// HasProduct reports whether name is in the catalog
func (d *Dataset) HasProduct(name string) bool {
	_, ok := d.catalog[name]
	return ok
}

// Range returns the first and last observation dates
func (d *Dataset) Range() domain.DateRange {
	return d.dates
}

// ProductRows returns a copy of the rows of one product, or nil
func (d *Dataset) ProductRows(name string) []domain.Observation {
	lo, found := slices.BinarySearchFunc(d.rows, name, func(o domain.Observation, n string) int {
		return cmp.Compare(o.ProductName, n)
	})
	if !found {
		return nil
	}
	hi := lo
	for hi < len(d.rows) && d.rows[hi].ProductName == name {
		hi++
	}
	return slices.Clone(d.rows[lo:hi])
}
