package dispatch

import (
	"errors"
	"slices"
)

// Wave records one execution round.
type Wave struct {
	ID      string
	Seq     int64
	Initial bool

	// Changes is the coalesced external batch that started the wave.
	Changes []Change

	Seeds []string
	Order []string // affected callbacks in execution order

	Executed []string
	NoOps    []string
	Skipped  []string
	Failures []*HandlerExecutionError

	// Writes are the handler-produced property writes in application order.
	Writes []Change
}

// Err joins every handler failure, or returns nil.
func (w *Wave) Err() error {
	if len(w.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(w.Failures))
	for i, f := range w.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Outcome names what happened to a callback in this wave: "executed",
// "noop", "skipped", "failed", or "" when it was not affected.
func (w *Wave) Outcome(callbackID string) string {
	switch {
	case slices.Contains(w.Executed, callbackID):
		return "executed"
	case slices.Contains(w.NoOps, callbackID):
		return "noop"
	case slices.Contains(w.Skipped, callbackID):
		return "skipped"
	}
	for _, f := range w.Failures {
		if f.CallbackID == callbackID {
			return "failed"
		}
	}
	return ""
}
