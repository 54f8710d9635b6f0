package dataset

import (
	"fmt"

	"github.com/roach88/wavedash/internal/value"
)

// Column declares one schema column.
type Column struct {
	Name string     `json:"name"`
	Type value.Kind `json:"type"`
}

// Schema is the ordered column list of a dataset.
type Schema []Column

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Dataset is an immutable typed table.
type Dataset struct {
	name   string
	schema Schema
	index  map[string]int
	rows   [][]value.Value
}

// New validates rows against schema and returns a Dataset.
//
// Every row must have exactly one cell per schema column and each cell must be
// Absent or of the column's declared kind. Rows are copied; the caller may
// reuse its slices.
func New(name string, schema Schema, rows [][]value.Value) (*Dataset, error) {
	index := make(map[string]int, len(schema))
	for i, col := range schema {
		if col.Name == "" {
			return nil, &SchemaError{Dataset: name, Message: fmt.Sprintf("column %d has an empty name", i)}
		}
		if _, dup := index[col.Name]; dup {
			return nil, &SchemaError{Dataset: name, Column: col.Name, Message: "duplicate column"}
		}
		if !col.Type.Scalar() {
			return nil, &SchemaError{Dataset: name, Column: col.Name, Message: fmt.Sprintf("column type %s is not a scalar kind", col.Type)}
		}
		index[col.Name] = i
	}

	copied := make([][]value.Value, len(rows))
	for r, row := range rows {
		if len(row) != len(schema) {
			return nil, &SchemaError{
				Dataset: name,
				Row:     r + 1,
				Message: fmt.Sprintf("row has %d cells, schema has %d columns", len(row), len(schema)),
			}
		}
		cells := make([]value.Value, len(row))
		for c, cell := range row {
			if cell == nil {
				cell = value.Missing
			}
			if !value.IsAbsent(cell) && cell.Kind() != schema[c].Type {
				return nil, &SchemaError{
					Dataset: name,
					Column:  schema[c].Name,
					Row:     r + 1,
					Message: fmt.Sprintf("cell of kind %s in %s column", cell.Kind(), schema[c].Type),
				}
			}
			cells[c] = cell
		}
		copied[r] = cells
	}

	s := make(Schema, len(schema))
	copy(s, schema)
	return &Dataset{name: name, schema: s, index: index, rows: copied}, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Schema returns a copy of the schema.
func (d *Dataset) Schema() Schema {
	s := make(Schema, len(d.schema))
	copy(s, d.schema)
	return s
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Column looks up a schema column by name.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.schema[i], true
}

// Value returns the cell at (row, column). Unknown columns yield Absent.
func (d *Dataset) Value(row int, column string) value.Value {
	i, ok := d.index[column]
	if !ok {
		return value.Missing
	}
	return d.rows[row][i]
}

// Record returns row i as a column → value map.
func (d *Dataset) Record(i int) map[string]value.Value {
	rec := make(map[string]value.Value, len(d.schema))
	for c, col := range d.schema {
		rec[col.Name] = d.rows[i][c]
	}
	return rec
}

// Records returns all rows as column → value maps, in row order.
func (d *Dataset) Records() []map[string]value.Value {
	out := make([]map[string]value.Value, len(d.rows))
	for i := range d.rows {
		out[i] = d.Record(i)
	}
	return out
}

// Select returns a dataset holding the rows at indices, in the given order.
// Row storage is shared with d.
func (d *Dataset) Select(indices []int) *Dataset {
	rows := make([][]value.Value, len(indices))
	for i, idx := range indices {
		rows[i] = d.rows[idx]
	}
	return &Dataset{name: d.name, schema: d.schema, index: d.index, rows: rows}
}
