// Package exporter renders filtered views as downloadable files.
//
// CSVWriter writes the columns
//
//	date,product_name,forecast,demand,forecast_error,relative_error
//
// with ISO dates and floats in their shortest round-trip form, so ReadView
// reproduces the exported rows exactly. XLSXWriter produces a workbook with
// a Data sheet in the same column order and a Summary sheet of per-product
// statistics followed by a total row.
//
// Example usage:
//
//	err := exporter.NewCSVWriter("", logger).WriteView(w, view, false)
//
//	summary, groups := summarizer.Summarize(ctx, view, true)
//	err = exporter.NewXLSXWriter(logger).WriteView(w, view, summary, groups)
package exporter
