package testutil

import (
	"context"
	"sync"

	"github.com/roach88/wavedash/internal/graph"
)

// Recorder wraps handlers and records the order in which callbacks ran.
type Recorder struct {
	mu    sync.Mutex
	calls []graph.Call
}

// Wrap returns a handler that records each call before delegating to h.
func (r *Recorder) Wrap(h graph.Handler) graph.Handler {
	return graph.HandlerFunc(func(ctx context.Context, call graph.Call) graph.Result {
		r.mu.Lock()
		r.calls = append(r.calls, call)
		r.mu.Unlock()
		return h.Handle(ctx, call)
	})
}

// Func is Wrap for a plain function.
func (r *Recorder) Func(fn func(ctx context.Context, call graph.Call) graph.Result) graph.Handler {
	return r.Wrap(graph.HandlerFunc(fn))
}

// Order returns the callback ids in execution order.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.calls))
	for i, c := range r.calls {
		ids[i] = c.Callback
	}
	return ids
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []graph.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]graph.Call(nil), r.calls...)
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
