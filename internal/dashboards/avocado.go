package dashboards

import (
	"context"
	"fmt"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/render"
)

func avocadoHandlers() dashspec.Catalog {
	return dashspec.Catalog{
		"avocado.price_graph": graph.HandlerFunc(avocadoPriceGraph),
	}
}

// avocadoPriceGraph plots average price over time for one geography, one
// series per avocado type.
func avocadoPriceGraph(ctx context.Context, call graph.Call) graph.Result {
	ds, err := table(call, "avocado")
	if err != nil {
		return graph.Fail(err)
	}
	geography := call.Trigger(0)

	filtered, err := query.FilterEquals(ds, "geography", geography)
	if err != nil {
		return graph.Fail(err)
	}
	title := fmt.Sprintf("Avocado Prices in %s", displayName(geography))
	return graph.Update(render.Line(filtered, "date", "average_price", "type", title).Value())
}
