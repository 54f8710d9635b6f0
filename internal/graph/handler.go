package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// Call is everything a handler may read: its declared trigger and state
// values from the wave snapshot, which triggers changed, and the shared
// dataset store.
type Call struct {
	Callback string
	Triggers []value.Value // aligned with Callback.Triggers
	State    []value.Value // aligned with Callback.State

	// Triggered lists the trigger refs that changed in this wave. It is empty
	// for the initial wave.
	Triggered []registry.Ref

	Data *dataset.Store
}

// Trigger returns trigger i, or Absent when out of range.
func (c Call) Trigger(i int) value.Value {
	if i < 0 || i >= len(c.Triggers) {
		return value.Missing
	}
	return c.Triggers[i]
}

// StateValue returns state value i, or Absent when out of range.
func (c Call) StateValue(i int) value.Value {
	if i < 0 || i >= len(c.State) {
		return value.Missing
	}
	return c.State[i]
}

// WasTriggered reports whether ref changed in this wave.
func (c Call) WasTriggered(ref registry.Ref) bool {
	for _, r := range c.Triggered {
		if r == ref {
			return true
		}
	}
	return false
}

// Handler computes a callback's outputs. Handlers read only what Call
// carries and must not retain it.
type Handler interface {
	Handle(ctx context.Context, call Call) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call Call) Result

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, call Call) Result {
	return f(ctx, call)
}

// Outcome is the kind of a handler result.
type Outcome int

const (
	// OutcomeUpdate writes new values to every output.
	OutcomeUpdate Outcome = iota
	// OutcomeNoOp leaves outputs unchanged and stops propagation through them.
	OutcomeNoOp
	// OutcomeError is a failed execution; outputs keep their pre-wave values.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdate:
		return "update"
	case OutcomeNoOp:
		return "noop"
	case OutcomeError:
		return "error"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the three-way handler outcome.
type Result struct {
	Outcome Outcome
	Values  []value.Value // one per output, in declaration order
	Err     error
}

// Update returns new output values.
func Update(values ...value.Value) Result {
	return Result{Outcome: OutcomeUpdate, Values: values}
}

// NoOp suppresses this callback's writes and downstream propagation.
func NoOp() Result {
	return Result{Outcome: OutcomeNoOp}
}

// Fail reports a handler error.
func Fail(err error) Result {
	if err == nil {
		err = errors.New("handler failed without an error")
	}
	return Result{Outcome: OutcomeError, Err: err}
}

// Failf is Fail with a formatted error.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Errorf(format, args...))
}
