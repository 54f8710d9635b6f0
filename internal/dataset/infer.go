package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/wavedash/internal/value"
)

// Frame is the raw, untyped-or-loosely-typed table a Source produces.
//
// When Text is true every cell is a string whose kind is inferred per column.
// Otherwise cells are Go values (float64, int, string, bool, time.Time, nil)
// whose kinds must agree within a column.
type Frame struct {
	Header []string
	Rows   [][]any
	Text   bool
}

// LoadOptions adjusts inference for one dataset.
type LoadOptions struct {
	// Types forces a column kind; cells that cannot be coerced fail the load.
	Types map[string]value.Kind

	// Drop removes columns before typing (e.g. an exported index column).
	Drop []string
}

// LoadOption configures LoadOptions.
type LoadOption func(*LoadOptions)

// WithColumnType forces the kind of a column.
func WithColumnType(column string, kind value.Kind) LoadOption {
	return func(o *LoadOptions) {
		if o.Types == nil {
			o.Types = make(map[string]value.Kind)
		}
		o.Types[column] = kind
	}
}

// WithDroppedColumns removes columns before typing.
func WithDroppedColumns(columns ...string) LoadOption {
	return func(o *LoadOptions) {
		o.Drop = append(o.Drop, columns...)
	}
}

// absentTokens are text cells treated as missing values.
var absentTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// dateLayouts are tried in order when inferring date columns.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// Infer types frame into a Dataset.
//
// Text columns become Bool if every present cell is true/false, else Number
// if every present cell parses as a float, else Date if every present cell
// matches one date layout, else String. Columns with no present cells are
// String. A forced type from opts that some cell cannot satisfy is a
// SchemaError, as is a typed column mixing kinds.
func Infer(name string, frame *Frame, opts LoadOptions) (*Dataset, error) {
	if frame == nil || len(frame.Header) == 0 {
		return nil, &SchemaError{Dataset: name, Message: "source has no header"}
	}

	drop := make(map[string]bool, len(opts.Drop))
	for _, c := range opts.Drop {
		drop[c] = true
	}

	var keep []int
	for i, h := range frame.Header {
		if !drop[h] {
			keep = append(keep, i)
		}
	}

	for r, row := range frame.Rows {
		if len(row) != len(frame.Header) {
			return nil, &SchemaError{
				Dataset: name,
				Row:     r + 1,
				Message: fmt.Sprintf("row has %d cells, header has %d columns", len(row), len(frame.Header)),
			}
		}
	}

	schema := make(Schema, len(keep))
	rows := make([][]value.Value, len(frame.Rows))
	for r := range rows {
		rows[r] = make([]value.Value, len(keep))
	}

	for out, src := range keep {
		col := frame.Header[src]
		cells := make([]any, len(frame.Rows))
		for r, row := range frame.Rows {
			cells[r] = row[src]
		}

		var (
			kind  value.Kind
			typed []value.Value
			err   error
		)
		if frame.Text {
			kind, typed, err = typeTextColumn(name, col, cells, opts.Types)
		} else {
			kind, typed, err = typeValueColumn(name, col, cells, opts.Types)
		}
		if err != nil {
			return nil, err
		}

		schema[out] = Column{Name: col, Type: kind}
		for r, v := range typed {
			rows[r][out] = v
		}
	}

	return New(name, schema, rows)
}

// typeTextColumn infers (or coerces to a forced) kind for string cells.
func typeTextColumn(dataset, column string, cells []any, forced map[string]value.Kind) (value.Kind, []value.Value, error) {
	texts := make([]string, len(cells))
	for i, c := range cells {
		s, ok := c.(string)
		if !ok && c != nil {
			return 0, nil, &SchemaError{Dataset: dataset, Column: column, Row: i + 1, Message: fmt.Sprintf("text frame holds %T", c)}
		}
		texts[i] = s
	}

	kind, isForced := forced[column]
	if !isForced {
		kind = detectTextKind(texts)
	}

	out := make([]value.Value, len(texts))
	for i, s := range texts {
		v, ok := parseText(s, kind)
		if !ok {
			return 0, nil, &SchemaError{
				Dataset: dataset,
				Column:  column,
				Row:     i + 1,
				Message: fmt.Sprintf("cannot coerce %q to %s", s, kind),
			}
		}
		out[i] = v
	}
	return kind, out, nil
}

// detectTextKind picks the narrowest kind every present cell satisfies.
func detectTextKind(texts []string) value.Kind {
	present := 0
	isBool, isNumber, isDate := true, true, true
	for _, s := range texts {
		if isAbsentText(s) {
			continue
		}
		present++
		if isBool {
			_, isBool = parseBoolText(s)
		}
		if isNumber {
			_, isNumber = parseNumberText(s)
		}
		if isDate {
			_, isDate = parseDateText(s)
		}
		if !isBool && !isNumber && !isDate {
			return value.KindString
		}
	}

	switch {
	case present == 0:
		return value.KindString
	case isBool:
		return value.KindBool
	case isNumber:
		return value.KindNumber
	case isDate:
		return value.KindDate
	}
	return value.KindString
}

// parseText converts one text cell to kind. Absent tokens are always valid.
func parseText(s string, kind value.Kind) (value.Value, bool) {
	if isAbsentText(s) {
		return value.Missing, true
	}
	switch kind {
	case value.KindString:
		return value.String(s), true
	case value.KindNumber:
		f, ok := parseNumberText(s)
		return value.Number(f), ok
	case value.KindBool:
		b, ok := parseBoolText(s)
		return value.Bool(b), ok
	case value.KindDate:
		t, ok := parseDateText(s)
		return value.NewDate(t), ok
	}
	return nil, false
}

func isAbsentText(s string) bool {
	return absentTokens[strings.ToLower(strings.TrimSpace(s))]
}

func parseBoolText(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseNumberText(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseDateText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// typeValueColumn requires typed cells to share one scalar kind.
func typeValueColumn(dataset, column string, cells []any, forced map[string]value.Kind) (value.Kind, []value.Value, error) {
	out := make([]value.Value, len(cells))
	kind := value.KindAbsent
	firstRow := 0
	for i, c := range cells {
		v, err := value.FromAny(c)
		if err != nil {
			return 0, nil, &SchemaError{Dataset: dataset, Column: column, Row: i + 1, Message: err.Error()}
		}
		if f, ok := v.(value.Number); ok && math.IsNaN(float64(f)) {
			v = value.Missing
		}
		if !value.IsAbsent(v) && !v.Kind().Scalar() {
			return 0, nil, &SchemaError{Dataset: dataset, Column: column, Row: i + 1, Message: fmt.Sprintf("%s cell is not a scalar", v.Kind())}
		}
		out[i] = v
	}

	if want, ok := forced[column]; ok {
		for i, v := range out {
			coerced, ok := coerce(v, want)
			if !ok {
				return 0, nil, &SchemaError{
					Dataset: dataset,
					Column:  column,
					Row:     i + 1,
					Message: fmt.Sprintf("cannot coerce %s %s to %s", v.Kind(), value.Format(v), want),
				}
			}
			out[i] = coerced
		}
		return want, out, nil
	}

	for i, v := range out {
		if value.IsAbsent(v) {
			continue
		}
		if kind == value.KindAbsent {
			kind, firstRow = v.Kind(), i+1
			continue
		}
		if v.Kind() != kind {
			return 0, nil, &SchemaError{
				Dataset: dataset,
				Column:  column,
				Row:     i + 1,
				Message: fmt.Sprintf("mixes %s (row %d) and %s values", kind, firstRow, v.Kind()),
			}
		}
	}
	if kind == value.KindAbsent {
		kind = value.KindString
	}
	return kind, out, nil
}

// coerce converts a typed cell to kind where the conversion is lossless.
func coerce(v value.Value, kind value.Kind) (value.Value, bool) {
	if value.IsAbsent(v) || v.Kind() == kind {
		return v, true
	}
	switch src := v.(type) {
	case value.String:
		return parseText(string(src), kind)
	case value.Number, value.Bool, value.Date:
		if kind == value.KindString {
			return value.String(value.Format(src)), true
		}
	}
	return nil, false
}
