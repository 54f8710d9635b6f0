package dashboards

import (
	"context"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/render"
	"github.com/roach88/wavedash/internal/value"
)

var electricityMapOptions = map[string]value.Value{
	"locationmode": value.String("USA-states"),
	"scope":        value.String("usa"),
	"color_scale":  value.String("reds"),
}

func electricityHandlers() dashspec.Catalog {
	return dashspec.Catalog{
		"electricity.map":   graph.HandlerFunc(electricityMap),
		"electricity.table": graph.HandlerFunc(electricityTable),
	}
}

// electricityMap shades each state by its mean residential price over the
// selected years.
func electricityMap(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "electricity")
	if err != nil {
		return graph.Fail(err)
	}
	low, high, err := bounds(call.Trigger(0))
	if err != nil {
		return graph.Fail(err)
	}

	filtered, err := query.FilterRange(ds, "Year", low, high)
	if err != nil {
		return graph.Fail(err)
	}
	groups, err := query.GroupByMean(filtered, "US_State", "Residential Price")
	if err != nil {
		return graph.Fail(err)
	}
	rows := render.GroupRows(groups, "US_State", "Residential Price")
	return graph.Update(render.Choropleth(rows, "US_State", "Residential Price", electricityMapOptions).Value())
}

// electricityTable lists the rows of the clicked state within the selected
// years. Nothing clicked yet renders an empty table.
func electricityTable(ctx context.Context, call graph.Call) graph.Result {
	click := call.Trigger(0)
	if value.IsAbsent(click) {
		return graph.Update(render.EmptyTable().Value())
	}

	state, ok := value.Path(click, "points", 0, "location")
	if !ok {
		return graph.Failf("click data has no points[0].location: %s", value.Format(click))
	}
	low, high, err := bounds(call.Trigger(1))
	if err != nil {
		return graph.Fail(err)
	}
	ds, err := table(call, "electricity")
	if err != nil {
		return graph.Fail(err)
	}

	filtered, err := query.Filter(ds,
		query.Range("Year", low, high),
		query.Equals("US_State", state),
	)
	if err != nil {
		return graph.Fail(err)
	}
	return graph.Update(render.Table(filtered).Value())
}
