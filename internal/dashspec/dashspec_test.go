package dashspec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

const electricity = `
dashboard: electricity: {
	title: "Electricity Prices by US State"
	datasets: prices: {
		source: "electricity.csv"
		drop: ["Unnamed: 0"]
		types: Year: "number"
	}
	components: {
		"year-slider": {
			value: {type: "list", from: {dataset: "prices", column: "Year", op: "extent"}}
			min: {type: "number", from: {dataset: "prices", column: "Year", op: "min"}}
		}
		"state-dropdown": {
			options: {type: "list", from: {dataset: "prices", column: "US_State", op: "distinct", sorted: true, prepend: ["ALL"]}}
			value: {type: "string", default: "ALL"}
		}
		"map-graph": {
			figure: type: "object"
			clickData: type: "any"
		}
		"since": value: {type: "date", default: "2001-01-01"}
	}
	callbacks: {
		update_map: {
			handler: "electricity.map"
			outputs: ["map-graph.figure"]
			inputs: ["year-slider.value"]
		}
		update_table: {
			handler: "electricity.table"
			outputs: ["state-dropdown.value"]
			inputs: ["map-graph.clickData"]
			state: ["year-slider.value"]
		}
	}
}
`

func pricesStore(t *testing.T) *dataset.Store {
	t.Helper()
	store := dataset.NewStore()
	_, err := store.Load(context.Background(), dataset.NewRecordsSource("prices",
		[]string{"Year", "US_State", "Residential Price"},
		[]map[string]any{
			{"Year": 2003, "US_State": "TX", "Residential Price": 8.1},
			{"Year": 2001, "US_State": "OH", "Residential Price": 7.2},
			{"Year": 2002, "US_State": "TX", "Residential Price": 8.4},
			{"Year": 2001, "US_State": "AK", "Residential Price": 11.0},
		}))
	require.NoError(t, err)
	store.Seal()
	return store
}

func TestLoadBytes_ParsesDashboard(t *testing.T) {
	dashboards, err := LoadBytes("electricity.cue", []byte(electricity))
	require.NoError(t, err)
	require.Len(t, dashboards, 1)

	d := dashboards[0]
	assert.Equal(t, "electricity", d.Name)
	assert.Equal(t, "Electricity Prices by US State", d.Title)

	require.Len(t, d.Datasets, 1)
	assert.Equal(t, "prices", d.Datasets[0].Name)
	assert.Equal(t, "electricity.csv", d.Datasets[0].Location)
	assert.Equal(t, []string{"Unnamed: 0"}, d.Datasets[0].Drop)
	assert.Equal(t, map[string]value.Kind{"Year": value.KindNumber}, d.Datasets[0].Types)

	var ids []string
	for _, c := range d.Components {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"year-slider", "state-dropdown", "map-graph", "since"}, ids)

	dropdown, ok := d.Component("state-dropdown")
	require.True(t, ok)
	require.Len(t, dropdown.Properties, 2)
	assert.Equal(t, "options", dropdown.Properties[0].Name)
	require.NotNil(t, dropdown.Properties[0].From)
	assert.Equal(t, "distinct", dropdown.Properties[0].From.Op)
	assert.True(t, dropdown.Properties[0].From.Sorted)
	assert.Equal(t, []value.Value{value.String("ALL")}, dropdown.Properties[0].From.Prepend)
	assert.Equal(t, value.String("ALL"), dropdown.Properties[1].Default)

	mapGraph, _ := d.Component("map-graph")
	assert.Equal(t, value.KindObject, mapGraph.Properties[0].Type)
	assert.Nil(t, mapGraph.Properties[0].Default)
	assert.Equal(t, value.KindAny, mapGraph.Properties[1].Type)

	since, _ := d.Component("since")
	assert.Equal(t, value.KindDate, since.Properties[0].Default.Kind())

	require.Len(t, d.Callbacks, 2)
	assert.Equal(t, "update_map", d.Callbacks[0].ID)
	assert.Equal(t, "electricity.map", d.Callbacks[0].Handler)
	assert.Equal(t, []registry.Ref{registry.R("map-graph", "figure")}, d.Callbacks[0].Outputs)
	assert.Empty(t, d.Callbacks[0].State)
	assert.Equal(t, []registry.Ref{registry.R("year-slider", "value")}, d.Callbacks[1].State)
}

func TestLoadBytes_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "unknown type",
			src:  `dashboard: d: components: c: p: type: "matrix"`,
		},
		{
			name: "missing handler",
			src: `dashboard: d: {
				components: c: p: type: "number"
				callbacks: cb: {outputs: ["c.p"], inputs: ["c.p"]}
			}`,
		},
		{
			name: "no outputs",
			src: `dashboard: d: {
				components: c: p: type: "number"
				callbacks: cb: {handler: "h", outputs: [], inputs: ["c.p"]}
			}`,
		},
		{
			name: "malformed ref",
			src: `dashboard: d: {
				components: c: p: type: "number"
				callbacks: cb: {handler: "h", outputs: ["cp"], inputs: ["c.p"]}
			}`,
		},
		{
			name: "unknown derived op",
			src:  `dashboard: d: components: c: p: {type: "number", from: {dataset: "x", column: "y", op: "median"}}`,
		},
		{
			name: "syntax",
			src:  `dashboard: d: {`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("bad.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Equal(t, ErrCodeCompile, Code(err))
		})
	}
}

func TestLoadBytes_DefaultTypeMismatch(t *testing.T) {
	_, err := LoadBytes("bad.cue", []byte(`dashboard: d: components: c: p: {type: "number", default: "ten"}`))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "c.p", ce.Field)
	assert.Contains(t, ce.Message, "does not match declared type number")
}

func TestLoadBytes_NoDashboard(t *testing.T) {
	_, err := LoadBytes("empty.cue", []byte(`title: "nothing"`))
	require.Error(t, err)
	assert.Equal(t, ErrCodeCompile, Code(err))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "electricity.cue")
	require.NoError(t, writeFile(path, electricity))

	dashboards, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, dashboards, 1)
	assert.Equal(t, "electricity", dashboards[0].Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
}

func TestRegistry_ResolvesDerivedDefaults(t *testing.T) {
	dashboards, err := LoadBytes("electricity.cue", []byte(electricity))
	require.NoError(t, err)

	comps, err := dashboards[0].Registry(pricesStore(t))
	require.NoError(t, err)
	require.Len(t, comps, 4)

	slider := comps[0]
	assert.Equal(t, "year-slider", slider.ID)
	assert.Equal(t, value.List{value.Number(2001), value.Number(2003)}, slider.Properties["value"].Default)
	assert.Equal(t, value.Number(2001), slider.Properties["min"].Default)

	dropdown := comps[1]
	assert.Equal(t,
		value.List{value.String("ALL"), value.String("AK"), value.String("OH"), value.String("TX")},
		dropdown.Properties["options"].Default)

	// The registry accepts every resolved default.
	reg := registry.New()
	for _, c := range comps {
		require.NoError(t, reg.Register(c))
	}
}

func TestDerived_Resolve(t *testing.T) {
	store := pricesStore(t)

	first, err := (&Derived{Dataset: "prices", Column: "US_State", Op: "first"}).Resolve(store)
	require.NoError(t, err)
	assert.Equal(t, value.String("TX"), first)

	sorted, err := (&Derived{Dataset: "prices", Column: "US_State", Op: "first", Sorted: true}).Resolve(store)
	require.NoError(t, err)
	assert.Equal(t, value.String("AK"), sorted)

	_, err = (&Derived{Dataset: "missing", Column: "Year", Op: "min"}).Resolve(store)
	assert.True(t, dataset.IsNotFound(err))

	_, err = (&Derived{Dataset: "prices", Column: "Nope", Op: "max"}).Resolve(store)
	require.Error(t, err)
}

func TestBind(t *testing.T) {
	dashboards, err := LoadBytes("electricity.cue", []byte(electricity))
	require.NoError(t, err)
	d := dashboards[0]

	noop := graph.HandlerFunc(func(ctx context.Context, call graph.Call) graph.Result {
		return graph.NoOp()
	})

	_, err = d.Bind(Catalog{"electricity.map": noop})
	var uh *UnknownHandlerError
	require.ErrorAs(t, err, &uh)
	assert.Equal(t, "update_table", uh.Callback)
	assert.Equal(t, "electricity.table", uh.Handler)
	assert.Equal(t, ErrCodeUnknownHandler, Code(err))

	callbacks, err := d.Bind(Merge(Catalog{"electricity.map": noop}, Catalog{"electricity.table": noop}))
	require.NoError(t, err)
	require.Len(t, callbacks, 2)
	assert.Equal(t, []registry.Ref{registry.R("map-graph", "clickData")}, callbacks[1].Triggers)
	assert.NotNil(t, callbacks[1].Handler)
}

func TestCatalogNames(t *testing.T) {
	c := Catalog{"b": nil, "a": nil}
	assert.Equal(t, []string{"a", "b"}, c.Names())
}

func TestSourceOptionsAndLocation(t *testing.T) {
	s := Source{Name: "x", Drop: []string{"idx"}, Types: map[string]value.Kind{"b": value.KindString, "a": value.KindNumber}}
	assert.Len(t, s.Options(), 3)

	assert.Equal(t, filepath.Join("data", "x.csv"), resolveLocation("data", "x.csv"))
	assert.Equal(t, "/abs/x.csv", resolveLocation("data", "/abs/x.csv"))
	assert.Equal(t, "https://host/x.csv", resolveLocation("data", "https://host/x.csv"))
	assert.Equal(t, "x.csv", resolveLocation("", "x.csv"))
}

func TestEntries_LocalCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "electricity.csv"), "Unnamed: 0,Year,US_State\n0,2001,OH\n1,2002,TX\n"))

	dashboards, err := LoadBytes("electricity.cue", []byte(electricity))
	require.NoError(t, err)

	entries, err := dashboards[0].Entries(context.Background(), dir)
	require.NoError(t, err)

	store := dataset.NewStore()
	require.NoError(t, store.LoadAll(context.Background(), entries...))
	ds, err := store.Get("prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "US_State"}, ds.Schema().Names())
	assert.Equal(t, 2, ds.Len())
}
