package query

import (
	"errors"
	"fmt"

	"github.com/roach88/wavedash/internal/value"
)

// Error codes for query failures.
const (
	ErrCodeColumnNotFound = "E301"
	ErrCodeTypeMismatch   = "E302"
	ErrCodeInvalidRange   = "E303"
)

// ErrNoValues is returned by aggregates over a column with no present values.
var ErrNoValues = errors.New("no values to aggregate")

// ColumnNotFoundError reports an operation on a column absent from the schema.
type ColumnNotFoundError struct {
	Dataset string
	Column  string
	Op      string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s: dataset %q has no column %q", ErrCodeColumnNotFound, e.Op, e.Dataset, e.Column)
}

// TypeMismatchError reports an operation applied to an incompatible column
// type, or an operand whose kind does not match the column.
type TypeMismatchError struct {
	Dataset string
	Column  string
	Op      string
	Type    value.Kind
	Message string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: column %q (%s) of dataset %q: %s", ErrCodeTypeMismatch, e.Op, e.Column, e.Type, e.Dataset, e.Message)
}

// InvalidRangeError reports a range whose low bound exceeds its high bound.
type InvalidRangeError struct {
	Column string
	Low    value.Value
	High   value.Value
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s: range on %q: low %s is greater than high %s",
		ErrCodeInvalidRange, e.Column, value.Format(e.Low), value.Format(e.High))
}

// Code returns the error code of the first query error in err's chain, or "".
func Code(err error) string {
	var (
		cnf *ColumnNotFoundError
		tm  *TypeMismatchError
		ir  *InvalidRangeError
	)
	switch {
	case errors.As(err, &cnf):
		return ErrCodeColumnNotFound
	case errors.As(err, &tm):
		return ErrCodeTypeMismatch
	case errors.As(err, &ir):
		return ErrCodeInvalidRange
	}
	return ""
}
