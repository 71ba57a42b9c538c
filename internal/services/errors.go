package services

import (
	"errors"
	"fmt"
	"strings"
)

// Dashboard service errors
var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrInvalidChartType = errors.New("invalid chart type")
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrNoDataset        = errors.New("dataset not loaded")
)

// UnknownProductError lists the names that are not in the catalog.
// It matches ErrUnknownProduct with errors.Is.
type UnknownProductError struct {
	Names []string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownProduct, strings.Join(e.Names, ", "))
}

// Is reports whether target is ErrUnknownProduct
func (e *UnknownProductError) Is(target error) bool {
	return target == ErrUnknownProduct
}
