package dashboards

import (
	"context"
	"fmt"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/render"
	"github.com/roach88/wavedash/internal/value"
)

// allSites is the site dropdown value selecting every launch site.
const allSites = "ALL"

// launchOutcome labels the binary class column.
var launchOutcome = map[float64]string{1: "Success", 0: "Failure"}

func spacexHandlers() dashspec.Catalog {
	return dashspec.Catalog{
		"spacex.success_pie":     graph.HandlerFunc(spacexSuccessPie),
		"spacex.payload_scatter": graph.HandlerFunc(spacexPayloadScatter),
	}
}

// spacexSuccessPie shows the success rate per site for ALL, otherwise the
// success/failure split of one site.
func spacexSuccessPie(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "spacex")
	if err != nil {
		return graph.Fail(err)
	}
	site := call.Trigger(0)

	if isAllSites(site) {
		groups, err := query.GroupByMean(ds, "Launch Site", "class")
		if err != nil {
			return graph.Fail(err)
		}
		slices := make([]render.Slice, len(groups))
		for i, g := range groups {
			slices[i] = render.Slice{Name: g.Key, Value: g.Mean}
		}
		return graph.Update(render.Pie(slices, "Success Rate for All Launch Sites").Value())
	}

	filtered, err := query.FilterEquals(ds, "Launch Site", site)
	if err != nil {
		return graph.Fail(err)
	}
	counts, err := query.ValueCounts(filtered, "class")
	if err != nil {
		return graph.Fail(err)
	}
	slices := make([]render.Slice, len(counts))
	for i, c := range counts {
		name := c.Value
		if f, ok := value.AsNumber(c.Value); ok {
			if label, ok := launchOutcome[f]; ok {
				name = value.String(label)
			}
		}
		slices[i] = render.Slice{Name: name, Value: float64(c.Count)}
	}
	title := fmt.Sprintf("Success Rate for Launch Site %s", displayName(site))
	return graph.Update(render.Pie(slices, title).Value())
}

// spacexPayloadScatter plots launch outcome against payload mass within
// the slider range, optionally for one site.
func spacexPayloadScatter(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "spacex")
	if err != nil {
		return graph.Fail(err)
	}
	site := call.Trigger(0)
	low, high, err := bounds(call.Trigger(1))
	if err != nil {
		return graph.Fail(err)
	}

	preds := []query.Predicate{query.Range("Payload Mass (kg)", low, high)}
	title := "Payload vs. Success Rate for All Launch Sites"
	if !isAllSites(site) {
		preds = append(preds, query.Equals("Launch Site", site))
		title = fmt.Sprintf("Payload vs. Success Rate for Launch Site %s", displayName(site))
	}

	filtered, err := query.Filter(ds, preds...)
	if err != nil {
		return graph.Fail(err)
	}
	return graph.Update(render.Scatter(filtered, "Payload Mass (kg)", "class", "Booster Version Category", title).Value())
}

func isAllSites(v value.Value) bool {
	s, ok := value.AsString(v)
	return ok && s == allSites
}
