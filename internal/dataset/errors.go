package dataset

import (
	"errors"
	"fmt"
)

// Error codes for dataset failures.
const (
	ErrCodeSchema   = "E201"
	ErrCodeNotFound = "E202"
)

// ErrStoreSealed is returned when loading into a sealed Store.
var ErrStoreSealed = errors.New("dataset store is sealed")

// SchemaError reports a source whose columns cannot be typed consistently.
type SchemaError struct {
	Dataset string
	Column  string
	Row     int // 1-based data row, 0 when not row specific
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.Column != "" && e.Row > 0:
		return fmt.Sprintf("%s: dataset %q column %q row %d: %s", ErrCodeSchema, e.Dataset, e.Column, e.Row, e.Message)
	case e.Column != "":
		return fmt.Sprintf("%s: dataset %q column %q: %s", ErrCodeSchema, e.Dataset, e.Column, e.Message)
	case e.Row > 0:
		return fmt.Sprintf("%s: dataset %q row %d: %s", ErrCodeSchema, e.Dataset, e.Row, e.Message)
	}
	return fmt.Sprintf("%s: dataset %q: %s", ErrCodeSchema, e.Dataset, e.Message)
}

// NotFoundError reports a lookup of a dataset that was never loaded.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: dataset %q not found", ErrCodeNotFound, e.Name)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ErrDuplicateDataset is returned when a name is loaded twice.
var ErrDuplicateDataset = errors.New("dataset already loaded")
