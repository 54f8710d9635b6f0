package store

import (
	"context"
	"fmt"

	"github.com/roach88/wavedash/internal/dispatch"
)

// SessionRecord describes one session and the datasets it reads.
type SessionRecord struct {
	ID        string `db:"id"`
	Dashboard string `db:"dashboard"`
	Datasets  []DatasetRecord
}

// DatasetRecord pins the content of one dataset a session read.
type DatasetRecord struct {
	Name        string `db:"dataset" json:"name"`
	Fingerprint string `db:"fingerprint" json:"fingerprint"`
	Rows        int    `db:"row_count" json:"rows"`
}

// RecordSession inserts a session and its dataset fingerprints.
// Uses ON CONFLICT DO NOTHING for idempotency - recording the same session
// twice is silently ignored.
func (s *Store) RecordSession(ctx context.Context, rec SessionRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, dashboard)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.Dashboard)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	for _, ds := range rec.Datasets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_datasets (session_id, dataset, fingerprint, row_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, dataset) DO NOTHING
		`, rec.ID, ds.Name, ds.Fingerprint, ds.Rows)
		if err != nil {
			return fmt.Errorf("record session dataset %s: %w", ds.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record session: commit: %w", err)
	}
	return nil
}

// RecordWave appends one completed wave. Implements dispatch.Journal.
//
// The session must already be recorded (foreign key constraint). A wave id
// that was already journaled is silently ignored.
func (s *Store) RecordWave(ctx context.Context, sessionID string, w *dispatch.Wave) error {
	changesJSON, err := marshalChanges(w.Changes)
	if err != nil {
		return fmt.Errorf("record wave: %w", err)
	}
	seedsJSON, err := marshalStrings(w.Seeds)
	if err != nil {
		return fmt.Errorf("record wave: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record wave: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO waves (id, session_id, seq, initial, changes, seeds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, w.ID, sessionID, w.Seq, w.Initial, changesJSON, seedsJSON)
	if err != nil {
		return fmt.Errorf("record wave: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	failures := make(map[string]string, len(w.Failures))
	for _, f := range w.Failures {
		failures[f.CallbackID] = f.Error()
	}
	for i, id := range w.Order {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wave_callbacks (wave_id, position, callback_id, outcome, error)
			VALUES (?, ?, ?, ?, ?)
		`, w.ID, i, id, w.Outcome(id), failures[id])
		if err != nil {
			return fmt.Errorf("record wave callback %s: %w", id, err)
		}
	}

	for i, c := range w.Writes {
		valueJSON, err := marshalValue(c.Value)
		if err != nil {
			return fmt.Errorf("record wave write %s: %w", c.Ref, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wave_writes (wave_id, position, ref, value)
			VALUES (?, ?, ?, ?)
		`, w.ID, i, c.Ref.String(), valueJSON)
		if err != nil {
			return fmt.Errorf("record wave write %s: %w", c.Ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record wave: commit: %w", err)
	}
	return nil
}
