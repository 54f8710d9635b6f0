package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/registry"
)

// ErrSessionNotFound is returned when a session id was never recorded.
var ErrSessionNotFound = errors.New("session not found")

// WaveRecord is one journaled wave.
type WaveRecord struct {
	ID        string
	SessionID string
	Seq       int64
	Initial   bool
	Changes   []dispatch.Change
	Seeds     []string
	Callbacks []CallbackRecord
	Writes    []dispatch.Change
}

// CallbackRecord is the outcome of one affected callback.
type CallbackRecord struct {
	ID      string `db:"callback_id"`
	Outcome string `db:"outcome"`
	Error   string `db:"error"`
}

type waveRow struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Seq       int64  `db:"seq"`
	Initial   bool   `db:"initial"`
	Changes   string `db:"changes"`
	Seeds     string `db:"seeds"`
}

type writeRow struct {
	Ref   string `db:"ref"`
	Value string `db:"value"`
}

// ReadSession returns one session with its dataset fingerprints.
func (s *Store) ReadSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT id, dashboard FROM sessions WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("read session: %w", err)
	}

	rec.Datasets, err = s.readSessionDatasets(ctx, id)
	if err != nil {
		return SessionRecord{}, err
	}
	return rec, nil
}

// ReadSessions returns every recorded session ordered by id. UUIDv7 ids
// sort by creation time.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadSessions(ctx context.Context) ([]SessionRecord, error) {
	recs := []SessionRecord{}
	err := s.db.SelectContext(ctx, &recs, `
		SELECT id, dashboard FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	for i := range recs {
		recs[i].Datasets, err = s.readSessionDatasets(ctx, recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (s *Store) readSessionDatasets(ctx context.Context, sessionID string) ([]DatasetRecord, error) {
	datasets := []DatasetRecord{}
	err := s.db.SelectContext(ctx, &datasets, `
		SELECT dataset, fingerprint, row_count FROM session_datasets
		WHERE session_id = ?
		ORDER BY dataset COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read session datasets: %w", err)
	}
	return datasets, nil
}

// ReadWaves returns the waves of one session, or of every session when
// sessionID is empty. Results are ordered deterministically:
// ORDER BY session_id, seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no waves exist.
func (s *Store) ReadWaves(ctx context.Context, sessionID string) ([]WaveRecord, error) {
	var rows []waveRow
	query := `
		SELECT id, session_id, seq, initial, changes, seeds FROM waves
	`
	var args []any
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY session_id COLLATE BINARY ASC, seq ASC, id COLLATE BINARY ASC`

	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("read waves: %w", err)
	}

	waves := make([]WaveRecord, 0, len(rows))
	for _, row := range rows {
		w, err := s.loadWave(ctx, row)
		if err != nil {
			return nil, err
		}
		waves = append(waves, w)
	}
	return waves, nil
}

// ReadCallbackHistory returns the outcome of one callback in every wave
// that affected it, ordered by wave sequence.
func (s *Store) ReadCallbackHistory(ctx context.Context, sessionID, callbackID string) ([]CallbackRecord, error) {
	history := []CallbackRecord{}
	err := s.db.SelectContext(ctx, &history, `
		SELECT c.callback_id, c.outcome, c.error
		FROM wave_callbacks c
		JOIN waves w ON c.wave_id = w.id
		WHERE w.session_id = ? AND c.callback_id = ?
		ORDER BY w.seq ASC, c.position ASC
	`, sessionID, callbackID)
	if err != nil {
		return nil, fmt.Errorf("read callback history: %w", err)
	}
	return history, nil
}

func (s *Store) loadWave(ctx context.Context, row waveRow) (WaveRecord, error) {
	w := WaveRecord{
		ID:        row.ID,
		SessionID: row.SessionID,
		Seq:       row.Seq,
		Initial:   row.Initial,
	}

	var err error
	if w.Changes, err = unmarshalChanges(row.Changes); err != nil {
		return WaveRecord{}, fmt.Errorf("wave %s: %w", row.ID, err)
	}
	if w.Seeds, err = unmarshalStrings(row.Seeds); err != nil {
		return WaveRecord{}, fmt.Errorf("wave %s: %w", row.ID, err)
	}

	w.Callbacks = []CallbackRecord{}
	err = s.db.SelectContext(ctx, &w.Callbacks, `
		SELECT callback_id, outcome, error FROM wave_callbacks
		WHERE wave_id = ?
		ORDER BY position ASC
	`, row.ID)
	if err != nil {
		return WaveRecord{}, fmt.Errorf("read wave callbacks: %w", err)
	}

	var writes []writeRow
	err = s.db.SelectContext(ctx, &writes, `
		SELECT ref, value FROM wave_writes
		WHERE wave_id = ?
		ORDER BY position ASC
	`, row.ID)
	if err != nil {
		return WaveRecord{}, fmt.Errorf("read wave writes: %w", err)
	}
	w.Writes = make([]dispatch.Change, 0, len(writes))
	for _, wr := range writes {
		ref, err := registry.ParseRef(wr.Ref)
		if err != nil {
			return WaveRecord{}, fmt.Errorf("wave %s: %w", row.ID, err)
		}
		v, err := unmarshalValue(wr.Value)
		if err != nil {
			return WaveRecord{}, fmt.Errorf("wave %s: %w", row.ID, err)
		}
		w.Writes = append(w.Writes, dispatch.Change{Ref: ref, Value: v})
	}
	return w, nil
}
