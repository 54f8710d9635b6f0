// Package store provides the SQLite wave journal.
//
// The journal is append-only:
//   - Sessions: one row per session with the dashboard it runs
//   - Session datasets: the fingerprint of every dataset a session read
//   - Waves: one row per wave with its external change batch and seeds
//   - Wave callbacks: the outcome of every affected callback
//   - Wave writes: the handler writes a wave applied, in order
//
// Ordering uses the dispatcher's logical wave sequence, never wall time, so
// a trace reads the same however fast the waves ran:
//
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// Values are stored as canonical JSON. Dates read back as strings.
//
// Connections are opened in WAL mode so trace and replay can read a journal
// that a running session is still appending to. Schema upgrades are keyed
// on PRAGMA user_version.
package store
