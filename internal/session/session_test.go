package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/render"
	"github.com/roach88/wavedash/internal/store"
	"github.com/roach88/wavedash/internal/testutil"
	"github.com/roach88/wavedash/internal/value"
)

func load(t *testing.T, name string) *dashspec.Dashboard {
	t.Helper()
	d, err := dashboards.Load(name)
	require.NoError(t, err)
	return d
}

func payload(t *testing.T, s *Session, ref registry.Ref) render.Request {
	t.Helper()
	v, err := s.Value(ref)
	require.NoError(t, err)
	req, err := render.Decode(v)
	require.NoError(t, err)
	return req
}

func span(low, high float64) value.Value {
	return value.List{value.Number(low), value.Number(high)}
}

func TestBuild_ElectricityWaves(t *testing.T) {
	ctx := context.Background()
	s, err := Build(ctx, "s1", load(t, "electricity"), dashboards.Catalog(), testutil.DashboardStore(t))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, "electricity", s.Dashboard().Name)
	assert.True(t, s.Graph().Sealed())

	slider, err := s.Value(registry.R("year-slider", "value"))
	require.NoError(t, err)
	assert.Equal(t, span(2001, 2003), slider)

	w, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, w.Initial)
	assert.Equal(t, []string{"update_map", "update_datatable"}, w.Executed)
	assert.Len(t, payload(t, s, registry.R("map-graph", "figure")).Rows, 3)
	assert.Empty(t, payload(t, s, registry.R("price-info", "data")).Rows)

	w, err = s.Dispatch(ctx, dispatch.Change{Ref: registry.R("year-slider", "value"), Value: span(2001, 2002)})
	require.NoError(t, err)
	assert.Equal(t, []string{"update_map", "update_datatable"}, w.Order)
	assert.Len(t, payload(t, s, registry.R("map-graph", "figure")).Rows, 2)

	click := value.MustFromAny(map[string]any{"points": []any{map[string]any{"location": "OH"}}})
	w, err = s.Dispatch(ctx, dispatch.Change{Ref: registry.R("map-graph", "clickData"), Value: click})
	require.NoError(t, err)
	assert.Equal(t, []string{"update_datatable"}, w.Order)
	assert.Len(t, payload(t, s, registry.R("price-info", "data")).Rows, 2)
}

func TestBuild_HappinessStateDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	s, err := Build(ctx, "s1", load(t, "happiness"), dashboards.Catalog(), testutil.DashboardStore(t))
	require.NoError(t, err)

	_, err = s.Initialize(ctx)
	require.NoError(t, err)

	country, err := s.Value(registry.R("country-dropdown", "value"))
	require.NoError(t, err)
	assert.Equal(t, value.String("Canada"), country)
	assert.Equal(t, "The average happiness_score for Canada is 7.5",
		payload(t, s, registry.R("average-div", "children")).Text)

	// Changing the region updates the dropdown but not the graph: the
	// country is only state for the graph callback.
	w, err := s.Dispatch(ctx, dispatch.Change{Ref: registry.R("region-radio", "value"), Value: value.String("Western Europe")})
	require.NoError(t, err)
	assert.Equal(t, []string{"update_dropdown"}, w.Order)
	assert.Equal(t, "The average happiness_score for Canada is 7.5",
		payload(t, s, registry.R("average-div", "children")).Text)

	w, err = s.Dispatch(ctx, dispatch.Change{Ref: registry.R("submit-button", "n_clicks"), Value: value.Number(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"update_graph"}, w.Executed)
	assert.Equal(t, "The average happiness_score for Norway is 7.5625",
		payload(t, s, registry.R("average-div", "children")).Text)
}

func TestBuild_LifeExpNoOpUntilSelection(t *testing.T) {
	ctx := context.Background()
	s, err := Build(ctx, "s1", load(t, "lifeexp"), dashboards.Catalog(), testutil.DashboardStore(t))
	require.NoError(t, err)

	w, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"update_output"}, w.NoOps)

	fig, err := s.Value(registry.R("life-expectancy-graph", "figure"))
	require.NoError(t, err)
	assert.True(t, value.IsAbsent(fig))

	_, err = s.Dispatch(ctx,
		dispatch.Change{Ref: registry.R("country-dropdown", "value"), Value: value.List{value.String("Japan")}},
		dispatch.Change{Ref: registry.R("submit-button", "n_clicks"), Value: value.Number(1)},
	)
	require.NoError(t, err)
	assert.Len(t, payload(t, s, registry.R("life-expectancy-graph", "figure")).Rows, 2)
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsealed store", func(t *testing.T) {
		_, err := Build(ctx, "s1", load(t, "avocado"), dashboards.Catalog(), dataset.NewStore())
		assert.ErrorIs(t, err, ErrStoreNotSealed)
	})

	t.Run("unknown handler", func(t *testing.T) {
		_, err := Build(ctx, "s1", load(t, "avocado"), dashspec.Catalog{}, testutil.DashboardStore(t))
		require.Error(t, err)
		assert.Equal(t, dashspec.ErrCodeUnknownHandler, dashspec.Code(err))
	})

	t.Run("missing dataset", func(t *testing.T) {
		empty := dataset.NewStore()
		empty.Seal()
		_, err := Build(ctx, "s1", load(t, "avocado"), dashboards.Catalog(), empty)
		assert.True(t, dataset.IsNotFound(err))
	})

	t.Run("cycle", func(t *testing.T) {
		ds, err := dashspec.LoadBytes("cycle.cue", []byte(`
dashboard: loop: {
	components: {
		a: v: type: "number"
		b: v: type: "number"
	}
	callbacks: {
		ab: {handler: "h", outputs: ["b.v"], inputs: ["a.v"]}
		ba: {handler: "h", outputs: ["a.v"], inputs: ["b.v"]}
	}
}`))
		require.NoError(t, err)
		h := graph.HandlerFunc(func(ctx context.Context, call graph.Call) graph.Result { return graph.NoOp() })

		_, err = Build(ctx, "s1", ds[0], dashspec.Catalog{"h": h}, testutil.DashboardStore(t))
		require.Error(t, err)
		assert.Equal(t, graph.ErrCodeCyclicDependency, graph.Code(err))
	})
}

func TestBuild_Journal(t *testing.T) {
	ctx := context.Background()
	j, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	s, err := Build(ctx, "s1", load(t, "spacex"), dashboards.Catalog(), testutil.DashboardStore(t),
		WithJournal(j),
		WithDispatchOptions(dispatch.WithWaveIDs(testutil.NewSequentialWaveIDs("spacex"))),
	)
	require.NoError(t, err)

	_, err = s.Initialize(ctx)
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, dispatch.Change{Ref: registry.R("site-dropdown", "value"), Value: value.String("KSC LC-39A")})
	require.NoError(t, err)

	h, err := j.ReadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "spacex", h.Session.Dashboard)
	require.Len(t, h.Session.Datasets, 1)
	assert.Equal(t, 8, h.Session.Datasets[0].Rows)
	assert.NotEmpty(t, h.Session.Fingerprint("spacex"))

	require.Len(t, h.Waves, 2)
	assert.Equal(t, "spacex-0001", h.Waves[0].ID)
	assert.True(t, h.Waves[0].Initial)
	assert.Equal(t, []string{"get_pie_chart", "get_scatter_chart"}, h.Waves[1].Seeds)
	assert.Len(t, h.Waves[1].Writes, 2)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testutil.DashboardStore(t), dashboards.Catalog(),
		WithSessionIDs(testutil.NewSequentialWaveIDs("session")))

	names := []string{"avocado", "spacex", "electricity", "happiness"}
	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i, name := range names {
		i := i
		d := load(t, name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = m.Open(ctx, d)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 4, m.Len())
	assert.Equal(t, []string{"session-0001", "session-0002", "session-0003", "session-0004"}, m.IDs())

	s, err := m.Get("session-0001")
	require.NoError(t, err)
	assert.Equal(t, "session-0001", s.ID())

	require.NoError(t, m.Close("session-0001"))
	_, err = m.Get("session-0001")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close("session-0001"), ErrSessionNotFound)
	assert.Equal(t, 3, m.Len())
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testutil.DashboardStore(t), dashboards.Catalog())

	a, _, err := m.Open(ctx, load(t, "avocado"))
	require.NoError(t, err)
	b, _, err := m.Open(ctx, load(t, "avocado"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	_, err = a.Dispatch(ctx, dispatch.Change{Ref: registry.R("geography-dropdown", "value"), Value: value.String("Albany")})
	require.NoError(t, err)

	va, err := a.Value(registry.R("geography-dropdown", "value"))
	require.NoError(t, err)
	vb, err := b.Value(registry.R("geography-dropdown", "value"))
	require.NoError(t, err)
	assert.Equal(t, value.String("Albany"), va)
	assert.Equal(t, value.String("New York"), vb)
}
