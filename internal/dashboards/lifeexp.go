package dashboards

import (
	"context"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/render"
	"github.com/roach88/wavedash/internal/value"
)

func lifeexpHandlers() dashspec.Catalog {
	return dashspec.Catalog{
		"lifeexp.graph": graph.HandlerFunc(lifeexpGraph),
	}
}

// lifeexpGraph plots life expectancy of the selected countries within the
// selected years. Without a selection it leaves the graph unchanged.
func lifeexpGraph(ctx context.Context, call graph.Call) graph.Result {
	countries := selection(call.StateValue(0))
	if len(countries) == 0 {
		return graph.NoOp()
	}
	low, high, err := bounds(call.StateValue(1))
	if err != nil {
		return graph.Fail(err)
	}
	ds, err := table(call, "life")
	if err != nil {
		return graph.Fail(err)
	}

	filtered, err := query.Filter(ds,
		query.In("country", countries),
		query.Range("year", low, high),
	)
	if err != nil {
		return graph.Fail(err)
	}
	return graph.Update(render.Line(filtered, "year", "life expectancy", "country", "Life Expectancy by Country").Value())
}

// selection normalizes a multi-select value: absent or empty means nothing
// selected, a single value is a one-element selection.
func selection(v value.Value) []value.Value {
	if value.IsAbsent(v) {
		return nil
	}
	if list, ok := value.AsList(v); ok {
		return list
	}
	if s, ok := value.AsString(v); ok && s == "" {
		return nil
	}
	return []value.Value{v}
}
