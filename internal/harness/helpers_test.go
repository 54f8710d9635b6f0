package harness

import (
	"context"

	"github.com/roach88/wavedash/internal/graph"
)

// echoHandler copies its first trigger to its only output.
type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, call graph.Call) graph.Result {
	return graph.Update(call.Trigger(0))
}
