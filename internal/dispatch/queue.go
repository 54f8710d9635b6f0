package dispatch

import (
	"sync"

	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// Change is one property write, external or produced by a handler.
type Change struct {
	Ref   registry.Ref `json:"ref"`
	Value value.Value  `json:"value"`
}

// changeQueue buffers changes between waves and coalesces them.
//
// Only the latest value per ref is kept. Refs keep the position of their
// first arrival so a drained batch replays in a stable order.
//
// The queue uses a buffered signal channel for context-aware waiting in the
// Run loop, the same way a single-writer event loop waits on its inbox.
type changeQueue struct {
	mu      sync.Mutex
	pending map[registry.Ref]value.Value
	order   []registry.Ref
	limit   int // max distinct pending refs; 0 is unbounded
	closed  bool
	signal  chan struct{}
}

func newChangeQueue(limit int) *changeQueue {
	return &changeQueue{
		pending: make(map[registry.Ref]value.Value),
		limit:   limit,
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds changes atomically: either all are accepted or none.
// Thread-safe: may be called from any goroutine.
func (q *changeQueue) Enqueue(changes []Change) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrStopped
	}

	if q.limit > 0 {
		fresh := make(map[registry.Ref]bool)
		for _, c := range changes {
			if _, queued := q.pending[c.Ref]; !queued {
				fresh[c.Ref] = true
			}
		}
		if len(q.order)+len(fresh) > q.limit {
			return ErrQueueFull
		}
	}

	for _, c := range changes {
		if _, queued := q.pending[c.Ref]; !queued {
			q.order = append(q.order, c.Ref)
		}
		q.pending[c.Ref] = c.Value
	}

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Drain removes and returns every pending change in first-arrival order.
func (q *changeQueue) Drain() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}
	out := make([]Change, len(q.order))
	for i, ref := range q.order {
		out[i] = Change{Ref: ref, Value: q.pending[ref]}
	}
	q.pending = make(map[registry.Ref]value.Value)
	q.order = q.order[:0]
	return out
}

// Wait returns a channel that signals when changes may be available. It is
// closed by Close.
func (q *changeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of distinct pending refs.
func (q *changeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Close stops accepting changes and wakes any waiter.
func (q *changeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
