package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// createTestStore creates a new temp-file store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestWave creates a wave touching the year slider and the map.
func createTestWave(id string, seq int64) *dispatch.Wave {
	return &dispatch.Wave{
		ID:  id,
		Seq: seq,
		Changes: []dispatch.Change{
			{Ref: registry.R("year-slider", "value"), Value: value.List{value.Number(2001), value.Number(2002)}},
		},
		Seeds:    []string{"update_map", "update_table"},
		Order:    []string{"update_map", "update_table"},
		Executed: []string{"update_map"},
		NoOps:    []string{"update_table"},
		Writes: []dispatch.Change{
			{Ref: registry.R("map-graph", "figure"), Value: value.Object{"kind": value.String("choropleth")}},
		},
	}
}
