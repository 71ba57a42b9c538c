// Package dataset generates the synthetic weekly demand and forecast table
// that every dashboard view is derived from.
//
// The table is a pure function of its Config. Generate draws, per product in
// catalog order, a base demand from Uniform[100, 1000], then one demand series
// from Normal(base, 0.2*base) and one forecast series from
// Normal(base, 0.15*base). Negative draws are floored at zero.
//
// Basic usage:
//
//	ds, err := dataset.Generate(dataset.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for obs := range ds.All() {
//	    fmt.Println(obs.ProductName, obs.Demand)
//	}
//
// A Dataset is immutable after Generate returns and may be shared freely
// between goroutines.
package dataset
