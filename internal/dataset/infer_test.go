package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/value"
)

func loadCSV(t *testing.T, csv string, opts ...LoadOption) (*Dataset, error) {
	t.Helper()
	frame, err := NewCSVSource("d", []byte(csv)).Read(context.Background())
	require.NoError(t, err)

	var lo LoadOptions
	for _, opt := range opts {
		opt(&lo)
	}
	return Infer("d", frame, lo)
}

func TestInfer_TextColumnKinds(t *testing.T) {
	ds, err := loadCSV(t, "Date,AveragePrice,type,ok,notes,class\n"+
		"2015-12-27,1.33,conventional,true,,1\n"+
		"2015-12-20,,organic,FALSE,x,0\n")
	require.NoError(t, err)

	kinds := map[string]value.Kind{}
	for _, c := range ds.Schema() {
		kinds[c.Name] = c.Type
	}
	assert.Equal(t, map[string]value.Kind{
		"Date":         value.KindDate,
		"AveragePrice": value.KindNumber,
		"type":         value.KindString,
		"ok":           value.KindBool,
		"notes":        value.KindString,
		"class":        value.KindNumber,
	}, kinds)

	assert.True(t, value.Equal(value.NewDate(time.Date(2015, 12, 27, 0, 0, 0, 0, time.UTC)), ds.Value(0, "Date")))
	assert.Equal(t, value.Number(1.33), ds.Value(0, "AveragePrice"))
	assert.True(t, value.IsAbsent(ds.Value(1, "AveragePrice")))
	assert.Equal(t, value.Bool(false), ds.Value(1, "ok"))
	assert.True(t, value.IsAbsent(ds.Value(0, "notes")))
	assert.Equal(t, value.Number(0), ds.Value(1, "class"))
}

func TestInfer_AbsentTokens(t *testing.T) {
	ds, err := loadCSV(t, "x\n1\nNA\nN/A\nnull\nNaN\n2\n")
	require.NoError(t, err)

	col, _ := ds.Column("x")
	assert.Equal(t, value.KindNumber, col.Type)
	for i := 1; i <= 4; i++ {
		assert.True(t, value.IsAbsent(ds.Value(i, "x")), "row %d", i)
	}
}

func TestInfer_AllAbsentColumnIsString(t *testing.T) {
	ds, err := loadCSV(t, "a,b\n1,\n2,\n")
	require.NoError(t, err)

	col, _ := ds.Column("b")
	assert.Equal(t, value.KindString, col.Type)
}

func TestInfer_MixedTextFallsBackToString(t *testing.T) {
	ds, err := loadCSV(t, "site\n40\nCCAFS LC-40\n")
	require.NoError(t, err)

	col, _ := ds.Column("site")
	assert.Equal(t, value.KindString, col.Type)
	assert.Equal(t, value.String("40"), ds.Value(0, "site"))
}

func TestInfer_ForcedType(t *testing.T) {
	ds, err := loadCSV(t, "code,n\n01,1\n02,2\n", WithColumnType("code", value.KindString))
	require.NoError(t, err)

	assert.Equal(t, value.String("01"), ds.Value(0, "code"))
	assert.Equal(t, value.Number(2), ds.Value(1, "n"))
}

func TestInfer_ForcedTypeCoercionFails(t *testing.T) {
	_, err := loadCSV(t, "n\n1\nabc\n", WithColumnType("n", value.KindNumber))
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "n", se.Column)
	assert.Equal(t, 2, se.Row)
}

func TestInfer_DropColumns(t *testing.T) {
	ds, err := loadCSV(t, "Unnamed: 0,Launch Site,class\n0,CCAFS LC-40,0\n1,VAFB SLC-4E,1\n",
		WithDroppedColumns("Unnamed: 0"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Launch Site", "class"}, ds.Schema().Names())
}

func TestInfer_RaggedRow(t *testing.T) {
	_, err := loadCSV(t, "a,b\n1,2\n3\n")
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Row)
}

func TestInfer_DuplicateHeader(t *testing.T) {
	_, err := loadCSV(t, "a,a\n1,2\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestInfer_BOMStripped(t *testing.T) {
	ds, err := loadCSV(t, "\ufeffyear,price\n2001,8.5\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "price"}, ds.Schema().Names())
}

func TestInfer_TypedFrame(t *testing.T) {
	src := NewRecordsSource("happiness", []string{"country", "year", "happiness_score"}, []map[string]any{
		{"country": "Norway", "year": 2015, "happiness_score": 7.522},
		{"country": "Denmark", "year": 2015},
	})
	frame, err := src.Read(context.Background())
	require.NoError(t, err)

	ds, err := Infer(src.Name(), frame, LoadOptions{})
	require.NoError(t, err)

	col, _ := ds.Column("year")
	assert.Equal(t, value.KindNumber, col.Type)
	assert.Equal(t, value.Number(2015), ds.Value(0, "year"))
	assert.True(t, value.IsAbsent(ds.Value(1, "happiness_score")))
}

func TestInfer_TypedFrameMixedKinds(t *testing.T) {
	src := NewRecordsSource("d", []string{"x"}, []map[string]any{
		{"x": 1},
		{"x": "one"},
	})
	frame, err := src.Read(context.Background())
	require.NoError(t, err)

	_, err = Infer("d", frame, LoadOptions{})
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "x", se.Column)
	assert.Equal(t, 2, se.Row)
	assert.Contains(t, se.Message, "mixes number (row 1) and string")
}

func TestInfer_TypedFrameForcedToString(t *testing.T) {
	src := NewRecordsSource("d", []string{"x"}, []map[string]any{{"x": 2015}, {"x": "n/a"}})
	frame, err := src.Read(context.Background())
	require.NoError(t, err)

	ds, err := Infer("d", frame, LoadOptions{Types: map[string]value.Kind{"x": value.KindString}})
	require.NoError(t, err)
	assert.Equal(t, value.String("2015"), ds.Value(0, "x"))
	assert.Equal(t, value.String("n/a"), ds.Value(1, "x"))
}

func TestInfer_NonScalarCell(t *testing.T) {
	src := NewRecordsSource("d", []string{"x"}, []map[string]any{{"x": []any{1, 2}}})
	frame, err := src.Read(context.Background())
	require.NoError(t, err)

	_, err = Infer("d", frame, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a scalar")
}

func TestInfer_NoHeader(t *testing.T) {
	_, err := Infer("d", &Frame{}, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header")
}
