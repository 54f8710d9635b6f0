package render

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/value"
)

func prices(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("prices", dataset.Schema{
		{Name: "state", Type: value.KindString},
		{Name: "year", Type: value.KindNumber},
		{Name: "price", Type: value.KindNumber},
	}, [][]value.Value{
		{value.String("A"), value.Number(2020), value.Number(10)},
		{value.String("A"), value.Number(2021), value.Number(12)},
		{value.String("B"), value.Number(2020), value.Number(8)},
	})
	require.NoError(t, err)
	return ds
}

func TestEmptyFilterRendersEmptyRows(t *testing.T) {
	filtered, err := query.FilterEquals(prices(t), "state", value.String("C"))
	require.NoError(t, err)

	for _, req := range []Request{
		Line(filtered, "year", "price", "", "Prices in C"),
		Table(filtered),
	} {
		v := req.Value()
		rows, ok := value.Path(v, "rows")
		require.True(t, ok)
		assert.Equal(t, value.List{}, rows)

		data, err := value.MarshalCanonical(v)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"rows":[]`)
	}
}

func TestLine(t *testing.T) {
	req := Line(prices(t), "year", "price", "state", "Prices")
	assert.Equal(t, KindSeries, req.Kind)
	assert.Equal(t, map[string]string{"x": "year", "y": "price", "color": "state"}, req.Encoding)
	assert.Len(t, req.Rows, 3)

	got, ok := value.Path(req.Value(), "options", "mark")
	require.True(t, ok)
	assert.Equal(t, value.String("line"), got)
}

func TestScatterDropsEmptyChannel(t *testing.T) {
	req := Scatter(prices(t), "year", "price", "", "")
	assert.Equal(t, map[string]string{"x": "year", "y": "price"}, req.Encoding)
	_, ok := value.Path(req.Value(), "title")
	assert.False(t, ok)
}

func TestPie(t *testing.T) {
	req := Pie([]Slice{
		{Name: value.String("Success"), Value: 3},
		{Name: value.String("Failure"), Value: 1},
	}, "Launches")

	got, ok := value.Path(req.Value(), "rows", 1, "name")
	require.True(t, ok)
	assert.Equal(t, value.String("Failure"), got)
	assert.Equal(t, "name", req.Encoding["names"])
}

func TestTableColumns(t *testing.T) {
	cols, ok := value.Path(Table(prices(t)).Value(), "options", "columns")
	require.True(t, ok)
	assert.Equal(t, value.List{value.String("state"), value.String("year"), value.String("price")}, cols)
}

func TestText(t *testing.T) {
	v := Text("The average is 7").Value()
	assert.Equal(t, value.Object{"kind": value.String("text"), "text": value.String("The average is 7")}, v)

	back, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "The average is 7", back.Text)
}

func TestDecodeRoundTrip(t *testing.T) {
	req := Line(prices(t), "year", "price", "state", "Prices")
	back, err := Decode(req.Value())
	require.NoError(t, err)
	assert.Equal(t, req.Kind, back.Kind)
	assert.Equal(t, req.Title, back.Title)
	assert.Equal(t, req.Encoding, back.Encoding)
	assert.Equal(t, req.Rows, back.Rows)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(value.String("x"))
	assert.Error(t, err)

	_, err = Decode(value.Object{"kind": value.String("hologram")})
	assert.ErrorContains(t, err, "unknown render kind")

	_, err = Decode(value.Object{"kind": value.String("table")})
	assert.ErrorContains(t, err, "rows missing")
}

func TestChoroplethGolden(t *testing.T) {
	groups := []query.Group{
		{Key: value.String("OH"), Mean: 8.7, Count: 2},
		{Key: value.String("TX"), Mean: 9.1, Count: 1},
	}
	req := Choropleth(GroupRows(groups, "US_State", "Residential Price"), "US_State", "Residential Price",
		map[string]value.Value{
			"locationmode": value.String("USA-states"),
			"scope":        value.String("usa"),
			"color_scale":  value.String("reds"),
		})

	data, err := value.MarshalCanonical(req.Value())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "choropleth", data)
}
