package dashboards

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/render"
	"github.com/roach88/wavedash/internal/value"
)

func happinessHandlers() dashspec.Catalog {
	return dashspec.Catalog{
		"happiness.country_dropdown": graph.HandlerFunc(happinessCountryDropdown),
		"happiness.graph":            graph.HandlerFunc(happinessGraph),
	}
}

// happinessCountryDropdown lists the countries of the selected region and
// selects the first.
func happinessCountryDropdown(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "happiness")
	if err != nil {
		return graph.Fail(err)
	}
	region := call.Trigger(0)

	filtered, err := query.FilterEquals(ds, "region", region)
	if err != nil {
		return graph.Fail(err)
	}
	countries, err := query.Distinct(filtered, "country")
	if err != nil {
		return graph.Fail(err)
	}
	if len(countries) == 0 {
		return graph.Failf("region %s has no countries", displayName(region))
	}
	return graph.Update(value.List(countries), countries[0])
}

// happinessGraph plots the selected metric over the years for the selected
// country and reports its average. It runs on button clicks only; country
// and metric are read as state.
func happinessGraph(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "happiness")
	if err != nil {
		return graph.Fail(err)
	}
	country := call.StateValue(0)
	metric, ok := value.AsString(call.StateValue(1))
	if !ok {
		return graph.Failf("metric must be a column name, got %s", value.Format(call.StateValue(1)))
	}

	filtered, err := query.FilterEquals(ds, "country", country)
	if err != nil {
		return graph.Fail(err)
	}

	avg := "nan"
	mean, err := query.Mean(filtered, metric)
	switch {
	case err == nil:
		avg = value.Format(value.Number(mean))
	case !errors.Is(err, query.ErrNoValues):
		return graph.Fail(err)
	}

	name := displayName(country)
	line := render.Line(filtered, "year", metric, "", fmt.Sprintf("%s in %s", metric, name))
	text := render.Text(fmt.Sprintf("The average %s for %s is %s", metric, name, avg))
	return graph.Update(line.Value(), text.Value())
}
