// Package render builds the structured payloads chart and table outputs
// carry. A payload names its kind, the rows to draw and which columns bind
// to which visual channel; turning it into pixels is someone else's job.
package render

import (
	"fmt"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/value"
)

// Kind is the payload kind.
type Kind string

const (
	KindSeries     Kind = "series"
	KindScatter    Kind = "scatter"
	KindPie        Kind = "pie"
	KindTable      Kind = "table"
	KindChoropleth Kind = "choropleth"
	KindText       Kind = "text"
)

// Request is one render payload.
type Request struct {
	Kind     Kind
	Title    string
	Rows     []map[string]value.Value
	Encoding map[string]string      // channel -> column, e.g. "x" -> "year"
	Options  map[string]value.Value // kind-specific settings
	Text     string                 // KindText only
}

// Line renders ds as line series of y over x, one series per color value.
// An empty color means a single series.
func Line(ds *dataset.Dataset, x, y, color, title string) Request {
	return Request{
		Kind:     KindSeries,
		Title:    title,
		Rows:     records(ds),
		Encoding: encoding("x", x, "y", y, "color", color),
		Options:  map[string]value.Value{"mark": value.String("line")},
	}
}

// Scatter renders ds as points of y over x colored by color.
func Scatter(ds *dataset.Dataset, x, y, color, title string) Request {
	return Request{
		Kind:     KindScatter,
		Title:    title,
		Rows:     records(ds),
		Encoding: encoding("x", x, "y", y, "color", color),
	}
}

// Slice is one pie wedge.
type Slice struct {
	Name  value.Value
	Value float64
}

// Pie renders wedges in the given order.
func Pie(slices []Slice, title string) Request {
	rows := make([]map[string]value.Value, len(slices))
	for i, s := range slices {
		rows[i] = map[string]value.Value{"name": s.Name, "value": value.Number(s.Value)}
	}
	return Request{
		Kind:     KindPie,
		Title:    title,
		Rows:     rows,
		Encoding: encoding("names", "name", "values", "value"),
	}
}

// Table renders every row and column of ds; columns keep schema order.
func Table(ds *dataset.Dataset) Request {
	names := ds.Schema().Names()
	cols := make(value.List, len(names))
	for i, n := range names {
		cols[i] = value.String(n)
	}
	return Request{
		Kind:    KindTable,
		Rows:    records(ds),
		Options: map[string]value.Value{"columns": cols},
	}
}

// EmptyTable is a table with no rows and no columns.
func EmptyTable() Request {
	return Request{
		Kind:    KindTable,
		Rows:    []map[string]value.Value{},
		Options: map[string]value.Value{"columns": value.List{}},
	}
}

// Choropleth renders one region per row, shaded by color. Options carry
// the location mode, scope and color scale.
func Choropleth(rows []map[string]value.Value, locations, color string, options map[string]value.Value) Request {
	if rows == nil {
		rows = []map[string]value.Value{}
	}
	return Request{
		Kind:     KindChoropleth,
		Rows:     rows,
		Encoding: encoding("locations", locations, "color", color),
		Options:  options,
	}
}

// Text is a plain text payload.
func Text(s string) Request {
	return Request{Kind: KindText, Text: s}
}

// GroupRows turns group-by results into rows keyed by keyColumn and
// valueColumn.
func GroupRows(groups []query.Group, keyColumn, valueColumn string) []map[string]value.Value {
	rows := make([]map[string]value.Value, len(groups))
	for i, g := range groups {
		rows[i] = map[string]value.Value{keyColumn: g.Key, valueColumn: value.Number(g.Mean)}
	}
	return rows
}

func records(ds *dataset.Dataset) []map[string]value.Value {
	rows := ds.Records()
	if rows == nil {
		rows = []map[string]value.Value{}
	}
	return rows
}

// encoding builds a channel map from channel, column pairs, dropping empty
// columns.
func encoding(pairs ...string) map[string]string {
	enc := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			enc[pairs[i]] = pairs[i+1]
		}
	}
	return enc
}

// Value encodes the request as a property value. Rows are always a list,
// empty when nothing matched.
func (r Request) Value() value.Value {
	obj := value.Object{"kind": value.String(string(r.Kind))}
	if r.Kind == KindText {
		obj["text"] = value.String(r.Text)
		return obj
	}

	rows := make(value.List, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(value.Object, len(row))
		for k, v := range row {
			if v == nil {
				v = value.Missing
			}
			rec[k] = v
		}
		rows[i] = rec
	}
	obj["rows"] = rows

	enc := make(value.Object, len(r.Encoding))
	for ch, col := range r.Encoding {
		enc[ch] = value.String(col)
	}
	obj["encoding"] = enc

	if r.Title != "" {
		obj["title"] = value.String(r.Title)
	}
	if len(r.Options) > 0 {
		opts := make(value.Object, len(r.Options))
		for k, v := range r.Options {
			opts[k] = v
		}
		obj["options"] = opts
	}
	return obj
}

// Decode is the inverse of Request.Value.
func Decode(v value.Value) (Request, error) {
	obj, ok := value.AsObject(v)
	if !ok {
		return Request{}, fmt.Errorf("render payload is %s, want object", value.KindOf(v))
	}
	kind, _ := value.AsString(obj["kind"])
	r := Request{Kind: Kind(kind)}
	switch r.Kind {
	case KindSeries, KindScatter, KindPie, KindTable, KindChoropleth:
	case KindText:
		r.Text, _ = value.AsString(obj["text"])
		return r, nil
	default:
		return Request{}, fmt.Errorf("unknown render kind %q", kind)
	}

	r.Title, _ = value.AsString(obj["title"])

	rows, ok := value.AsList(obj["rows"])
	if !ok {
		return Request{}, fmt.Errorf("render payload %s: rows missing", kind)
	}
	r.Rows = make([]map[string]value.Value, len(rows))
	for i, row := range rows {
		rec, ok := value.AsObject(row)
		if !ok {
			return Request{}, fmt.Errorf("render payload %s: row %d is %s", kind, i, value.KindOf(row))
		}
		r.Rows[i] = map[string]value.Value(rec)
	}

	if enc, ok := value.AsObject(obj["encoding"]); ok {
		r.Encoding = make(map[string]string, len(enc))
		for ch, col := range enc {
			r.Encoding[ch], _ = value.AsString(col)
		}
	}
	if opts, ok := value.AsObject(obj["options"]); ok {
		r.Options = map[string]value.Value(opts)
	}
	return r, nil
}
