package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/domain"
)

// ViewColumns is the column order of every tabular export
var ViewColumns = []string{"date", "product_name", "forecast", "demand", "forecast_error", "relative_error"}

// ErrBadHeader is returned when a CSV does not start with ViewColumns
var ErrBadHeader = errors.New("unexpected csv header")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a writer resolving relative file paths against baseDir
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{baseDir: baseDir, logger: infrastructure.WithComponent(logger, "csv_exporter")}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to w
func (cw *CSVWriter) WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteView writes the view rows under the standard header
func (cw *CSVWriter) WriteView(w io.Writer, view domain.View, bom bool) error {
	records := make([][]string, 0, view.Len())
	for _, o := range view.Rows {
		records = append(records, ViewRecord(o))
	}
	return cw.WriteCSV(w, WriteOptions{
		Headers:   ViewColumns,
		Records:   records,
		BOMPrefix: bom,
	})
}

// WriteViewFile writes the view to a file, creating parent directories.
// A failed write leaves any existing file at the path untouched.
func (cw *CSVWriter) WriteViewFile(filePath string, view domain.View, bom bool) (string, error) {
	fullPath := cw.resolvePath(filePath)

	cw.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", view.Len()))

	err := WriteFile(fullPath, func(w io.Writer) error {
		return cw.WriteView(w, view, bom)
	})
	if err != nil {
		return "", err
	}
	return fullPath, nil
}

// WriteFile runs write against a temporary file next to path and renames it
// into place once write and close both succeed.
func WriteFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// ViewRecord renders one observation in ViewColumns order
func ViewRecord(o domain.Observation) []string {
	return []string{
		formatDate(o.Date),
		o.ProductName,
		formatFloat(o.Forecast),
		formatFloat(o.Demand),
		formatFloat(o.ForecastError),
		formatFloat(o.RelativeError),
	}
}

// ReadView parses a CSV produced by WriteView. A leading BOM is skipped.
func ReadView(r io.Reader) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(ViewColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = string(trimBOM([]byte(header[0])))
	}
	if !slices.Equal(header, ViewColumns) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}

	rows := []domain.Observation{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		o, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, o)
	}
	return rows, nil
}

func parseRecord(record []string) (domain.Observation, error) {
	date, err := parseDate(record[0])
	if err != nil {
		return domain.Observation{}, err
	}
	values := make([]float64, 4)
	for i := range values {
		if values[i], err = parseFloat(record[i+2]); err != nil {
			return domain.Observation{}, fmt.Errorf("column %s: %w", ViewColumns[i+2], err)
		}
	}
	return domain.Observation{
		Date:          date,
		ProductName:   record[1],
		Forecast:      values[0],
		Demand:        values[1],
		ForecastError: values[2],
		RelativeError: values[3],
	}, nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= len(utf8BOM) && string(b[:len(utf8BOM)]) == string(utf8BOM) {
		return b[len(utf8BOM):]
	}
	return b
}

// resolvePath resolves a relative path against the export directory
func (cw *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || cw.baseDir == "" {
		return filePath
	}
	return filepath.Join(cw.baseDir, filePath)
}
