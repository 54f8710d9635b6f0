package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// State is the dispatcher's wave state.
type State int32

const (
	Idle State = iota
	Computing
)

func (s State) String() string {
	if s == Computing {
		return "computing"
	}
	return "idle"
}

// Journal persists completed waves. *store.Store implements it.
type Journal interface {
	RecordWave(ctx context.Context, sessionID string, w *Wave) error
}

// Dispatcher runs waves for one session.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Dispatch(), Flush(), Initialize(): safe from any goroutine; waves
//     are serialized so at most one computes at a time
//   - Run(): call from one goroutine; it flushes as changes arrive
type Dispatcher struct {
	graph    *graph.Graph
	registry *registry.Registry
	data     *dataset.Store

	queue   *changeQueue
	clock   Sequencer
	ids     WaveIDGenerator
	journal Journal
	logger  *slog.Logger
	observe func(*Wave)

	sessionID  string
	queueLimit int

	waveMu sync.Mutex
	state  atomic.Int32
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for wave lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithJournal records every completed wave.
func WithJournal(j Journal) Option {
	return func(d *Dispatcher) {
		d.journal = j
	}
}

// WithSessionID tags log lines and journal rows.
func WithSessionID(id string) Option {
	return func(d *Dispatcher) {
		d.sessionID = id
	}
}

// WithWaveIDs replaces the default UUIDv7 wave id generator.
func WithWaveIDs(gen WaveIDGenerator) Option {
	return func(d *Dispatcher) {
		d.ids = gen
	}
}

// WithClock replaces the wave sequence clock.
func WithClock(c Sequencer) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithQueueLimit bounds the number of distinct pending properties.
// Zero means unbounded.
func WithQueueLimit(n int) Option {
	return func(d *Dispatcher) {
		d.queueLimit = n
	}
}

// WithWaveObserver is called with every wave Run completes.
func WithWaveObserver(fn func(*Wave)) Option {
	return func(d *Dispatcher) {
		d.observe = fn
	}
}

// New creates a dispatcher over a sealed graph, the session registry and the
// shared dataset store.
func New(g *graph.Graph, reg *registry.Registry, data *dataset.Store, opts ...Option) (*Dispatcher, error) {
	if !g.Sealed() {
		return nil, ErrGraphNotSealed
	}
	d := &Dispatcher{
		graph:    g,
		registry: reg,
		data:     data,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = newChangeQueue(d.queueLimit)
	return d, nil
}

// State reports whether a wave is computing.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Pending returns the number of distinct properties waiting for the next wave.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Submit validates changes and queues them for the next wave. An invalid
// change rejects the whole batch.
func (d *Dispatcher) Submit(changes ...Change) error {
	batch := make([]Change, len(changes))
	for i, c := range changes {
		if c.Value == nil {
			c.Value = value.Missing
		}
		if err := d.registry.Check(c.Ref, c.Value); err != nil {
			return fmt.Errorf("change %s: %w", c.Ref, err)
		}
		batch[i] = c
	}
	return d.queue.Enqueue(batch)
}

// Dispatch submits changes and runs the wave that consumes them, along with
// anything already queued.
func (d *Dispatcher) Dispatch(ctx context.Context, changes ...Change) (*Wave, error) {
	if err := d.Submit(changes...); err != nil {
		return nil, err
	}
	return d.Flush(ctx)
}

// Flush runs one wave over every queued change. It returns nil, nil when the
// queue is empty.
func (d *Dispatcher) Flush(ctx context.Context) (*Wave, error) {
	d.waveMu.Lock()
	defer d.waveMu.Unlock()

	changes := d.queue.Drain()
	if len(changes) == 0 {
		return nil, nil
	}
	return d.runWave(ctx, changes, false)
}

// Initialize runs every callback once, in topological order, the way a
// freshly loaded page computes all of its outputs.
func (d *Dispatcher) Initialize(ctx context.Context) (*Wave, error) {
	d.waveMu.Lock()
	defer d.waveMu.Unlock()
	return d.runWave(ctx, nil, true)
}

// Run flushes waves as changes arrive. It blocks until ctx is cancelled or
// Stop is called. A wave in progress always completes.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher starting", "session", d.sessionID)

	for {
		w, err := d.Flush(ctx)
		if err != nil {
			d.logger.Error("wave aborted", "session", d.sessionID, "error", err)
		}
		if w != nil {
			if d.observe != nil {
				d.observe(w)
			}
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping: context cancelled", "session", d.sessionID)
			d.queue.Close()
			return ctx.Err()

		case _, open := <-d.queue.Wait():
			if !open && d.queue.Len() == 0 {
				d.logger.Info("dispatcher stopping: queue closed", "session", d.sessionID)
				return nil
			}
		}
	}
}

// Stop refuses further changes and lets Run return once the queue drains.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// runWave executes one wave. Callers hold waveMu.
func (d *Dispatcher) runWave(ctx context.Context, changes []Change, initial bool) (*Wave, error) {
	d.state.Store(int32(Computing))
	defer d.state.Store(int32(Idle))

	w := &Wave{
		ID:      d.ids.Generate(),
		Seq:     d.clock.Next(),
		Initial: initial,
		Changes: changes,
	}
	log := d.logger.With("session", d.sessionID, "wave", w.ID, "seq", w.Seq)
	log.Info("wave starting", "changes", len(changes), "initial", initial)

	if len(changes) > 0 {
		writes := make(map[registry.Ref]value.Value, len(changes))
		for _, c := range changes {
			writes[c.Ref] = c.Value
		}
		if err := d.registry.SetAll(writes); err != nil {
			return nil, fmt.Errorf("apply changes: %w", err)
		}
	}

	snapshot := d.registry.Snapshot()
	fresh := make(map[registry.Ref]bool, len(changes))
	changed := make([]registry.Ref, len(changes))
	for i, c := range changes {
		fresh[c.Ref] = true
		changed[i] = c.Ref
	}

	if initial {
		w.Seeds = d.graph.Order()
	} else {
		w.Seeds = d.graph.Seeds(changed)
	}
	w.Order = d.graph.Affected(w.Seeds)

	suppressed := make(map[registry.Ref]bool)
	suppress := func(cb graph.Callback) {
		for _, out := range cb.Outputs {
			suppressed[out] = true
		}
	}

	for _, id := range w.Order {
		cb, _ := d.graph.Callback(id)

		if blocked, ok := firstSuppressed(cb.Triggers, suppressed); ok {
			suppress(cb)
			w.Skipped = append(w.Skipped, id)
			log.Debug("callback skipped", "callback", id, "suppressed_trigger", blocked.String())
			continue
		}

		call := graph.Call{
			Callback: id,
			Triggers: read(snapshot, cb.Triggers),
			State:    read(snapshot, cb.State),
			Data:     d.data,
		}
		if !initial {
			for _, ref := range cb.Triggers {
				if fresh[ref] {
					call.Triggered = append(call.Triggered, ref)
				}
			}
		}

		res, panicked := invoke(ctx, cb.Handler, call)
		if res.Outcome == graph.OutcomeUpdate {
			if err := d.checkOutputs(cb, res.Values); err != nil {
				res = graph.Fail(err)
			}
		}

		switch res.Outcome {
		case graph.OutcomeUpdate:
			writes := make(map[registry.Ref]value.Value, len(cb.Outputs))
			for i, out := range cb.Outputs {
				v := res.Values[i]
				if v == nil {
					v = value.Missing
				}
				writes[out] = v
			}
			if err := d.registry.SetAll(writes); err != nil {
				d.fail(log, w, cb, err, false)
				suppress(cb)
				continue
			}
			for _, out := range cb.Outputs {
				snapshot[out] = writes[out]
				fresh[out] = true
				w.Writes = append(w.Writes, Change{Ref: out, Value: writes[out]})
			}
			w.Executed = append(w.Executed, id)
			log.Debug("callback executed", "callback", id, "outputs", len(cb.Outputs))

		case graph.OutcomeNoOp:
			suppress(cb)
			w.NoOps = append(w.NoOps, id)
			log.Debug("callback no-op", "callback", id)

		default:
			d.fail(log, w, cb, res.Err, panicked)
			suppress(cb)
		}
	}

	log.Info("wave complete",
		"executed", len(w.Executed),
		"noop", len(w.NoOps),
		"skipped", len(w.Skipped),
		"failed", len(w.Failures))

	if d.journal != nil {
		// Log and continue: a journal failure must not lose the wave's
		// already-applied writes.
		if err := d.journal.RecordWave(ctx, d.sessionID, w); err != nil {
			log.Warn("journal write failed", "error", err)
		}
	}
	return w, nil
}

func (d *Dispatcher) fail(log *slog.Logger, w *Wave, cb graph.Callback, err error, panicked bool) {
	he := &HandlerExecutionError{CallbackID: cb.ID, Err: err, Panic: panicked}
	w.Failures = append(w.Failures, he)
	log.Warn("callback failed", "callback", cb.ID, "error", err, "panic", panicked)
}

// checkOutputs validates an update against the callback's declared outputs.
func (d *Dispatcher) checkOutputs(cb graph.Callback, values []value.Value) error {
	if len(values) != len(cb.Outputs) {
		return fmt.Errorf("returned %d values for %d outputs", len(values), len(cb.Outputs))
	}
	for i, out := range cb.Outputs {
		if err := d.registry.Check(out, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// invoke calls the handler, converting a panic into a failed result.
func invoke(ctx context.Context, h graph.Handler, call graph.Call) (res graph.Result, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			res = graph.Fail(fmt.Errorf("%v", r))
			panicked = true
		}
	}()
	return h.Handle(ctx, call), false
}

func read(snapshot map[registry.Ref]value.Value, refs []registry.Ref) []value.Value {
	out := make([]value.Value, len(refs))
	for i, ref := range refs {
		v, ok := snapshot[ref]
		if !ok || v == nil {
			v = value.Missing
		}
		out[i] = v
	}
	return out
}

func firstSuppressed(refs []registry.Ref, suppressed map[registry.Ref]bool) (registry.Ref, bool) {
	for _, ref := range refs {
		if suppressed[ref] {
			return ref, true
		}
	}
	return registry.Ref{}, false
}
