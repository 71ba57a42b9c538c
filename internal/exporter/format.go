package exporter

import (
	"fmt"
	"strconv"
	"time"

	"demandboard/pkg/contracts/domain"
)

// formatFloat renders the shortest decimal that parses back to f
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatDate renders a calendar date without time of day
func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
