package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/domain"
)

const (
	// DataSheet holds the view rows
	DataSheet = "Data"
	// SummarySheet holds the per-product statistics
	SummarySheet = "Summary"
)

// SummaryColumns is the header of the Summary sheet
var SummaryColumns = []string{"product_name", "count", "demand_sum", "demand_mean", "forecast_sum", "forecast_mean"}

// XLSXWriter renders views as Excel workbooks
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: infrastructure.WithComponent(logger, "xlsx_exporter")}
}

// WriteView writes a workbook with the view rows on the Data sheet and the
// grouped statistics plus a total row on the Summary sheet.
func (xw *XLSXWriter) WriteView(w io.Writer, view domain.View, total domain.Summary, groups []domain.ProductSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := xw.writeData(f, view, headerStyle); err != nil {
		return err
	}
	if err := xw.writeSummary(f, total, groups, headerStyle); err != nil {
		return err
	}

	xw.logger.Debug("Writing XLSX workbook",
		slog.Int("record_count", view.Len()),
		slog.Int("group_count", len(groups)))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (xw *XLSXWriter) writeData(f *excelize.File, view domain.View, headerStyle int) error {
	sw, err := f.NewStreamWriter(DataSheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", headerRow(ViewColumns, headerStyle)); err != nil {
		return fmt.Errorf("failed to write data header: %w", err)
	}
	for i, o := range view.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			formatDate(o.Date),
			o.ProductName,
			o.Forecast,
			o.Demand,
			o.ForecastError,
			o.RelativeError,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write data row %d: %w", i+1, err)
		}
	}
	return sw.Flush()
}

func (xw *XLSXWriter) writeSummary(f *excelize.File, total domain.Summary, groups []domain.ProductSummary, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SummarySheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", headerRow(SummaryColumns, headerStyle)); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	rows := make([][]interface{}, 0, len(groups)+1)
	for _, g := range groups {
		rows = append(rows, summaryRow(g.ProductName, g.Summary))
	}
	rows = append(rows, summaryRow("Total", total))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	return sw.Flush()
}

func headerRow(columns []string, style int) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = excelize.Cell{StyleID: style, Value: c}
	}
	return row
}

// summaryRow leaves absent means as empty cells
func summaryRow(label string, s domain.Summary) []interface{} {
	row := []interface{}{label, s.Count, s.DemandSum, nil, s.ForecastSum, nil}
	if s.DemandMean != nil {
		row[3] = *s.DemandMean
	}
	if s.ForecastMean != nil {
		row[5] = *s.ForecastMean
	}
	return row
}
