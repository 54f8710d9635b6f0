package harness

import (
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/value"
)

// TraceEvent is one affected callback within one wave.
type TraceEvent struct {
	Wave     int    `json:"wave"` // 0 is the initial wave
	WaveID   string `json:"wave_id"`
	Seq      int64  `json:"seq"`
	Callback string `json:"callback"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Waves holds the initial wave followed by one wave per step.
	Waves []*dispatch.Wave `json:"-"`

	// Trace flattens Waves into per-callback events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists every failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Final holds every property value after the last wave, keyed by ref.
	Final map[string]value.Value `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string]value.Value),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddWave appends w and its per-callback events.
func (r *Result) AddWave(w *dispatch.Wave) {
	index := len(r.Waves)
	r.Waves = append(r.Waves, w)
	for _, id := range w.Order {
		ev := TraceEvent{
			Wave:     index,
			WaveID:   w.ID,
			Seq:      w.Seq,
			Callback: id,
			Outcome:  w.Outcome(id),
		}
		for _, f := range w.Failures {
			if f.CallbackID == id {
				ev.Error = f.Err.Error()
			}
		}
		r.Trace = append(r.Trace, ev)
	}
}
