// Package charts draws demand and forecast series of a filtered view with
// gonum.org/v1/plot. Demand is drawn in red and forecast in blue for every
// selected product, on a date axis with the quantity axis starting at zero.
package charts
