package store

import (
	"context"
	"fmt"
)

// History summarizes a journaled session for tracing and replay.
type History struct {
	Session  SessionRecord
	Waves    []WaveRecord
	LastSeq  int64
	Failures int // failed callback executions across all waves
	NoOps    int
}

// ReadHistory returns a session and all its waves.
func (s *Store) ReadHistory(ctx context.Context, sessionID string) (History, error) {
	rec, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return History{}, fmt.Errorf("read history: %w", err)
	}
	waves, err := s.ReadWaves(ctx, sessionID)
	if err != nil {
		return History{}, fmt.Errorf("read history: %w", err)
	}

	h := History{Session: rec, Waves: waves}
	for _, w := range waves {
		if w.Seq > h.LastSeq {
			h.LastSeq = w.Seq
		}
		for _, cb := range w.Callbacks {
			switch cb.Outcome {
			case "failed":
				h.Failures++
			case "noop":
				h.NoOps++
			}
		}
	}
	return h, nil
}

// Fingerprint returns the recorded fingerprint of a dataset, or "".
func (r SessionRecord) Fingerprint(dataset string) string {
	for _, ds := range r.Datasets {
		if ds.Name == dataset {
			return ds.Fingerprint
		}
	}
	return ""
}
