package testutil

import (
	"fmt"
	"sync"
)

// SequentialWaveIDs generates "<prefix>-0001", "<prefix>-0002", ... and
// never runs out. It satisfies dispatch.WaveIDGenerator.
//
// Golden snapshots compare byte-for-byte, so ids must not depend on time.
type SequentialWaveIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialWaveIDs returns a generator using prefix, or "wave" when
// prefix is empty.
func NewSequentialWaveIDs(prefix string) *SequentialWaveIDs {
	if prefix == "" {
		prefix = "wave"
	}
	return &SequentialWaveIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialWaveIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
