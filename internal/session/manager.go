package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/dispatch"
)

// IDGenerator produces session ids. dispatch.UUIDv7Generator is the
// production implementation.
type IDGenerator interface {
	Generate() string
}

// Manager owns the live sessions of one process.
//
// Thread-safety: all methods are safe for concurrent use. Sessions run
// independently; a wave in one never blocks another.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	data    *dataset.Store
	catalog dashspec.Catalog
	ids     IDGenerator
	opts    []Option
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionIDs replaces the UUIDv7 session id generator.
func WithSessionIDs(gen IDGenerator) ManagerOption {
	return func(m *Manager) {
		m.ids = gen
	}
}

// WithSessionOptions applies opts to every session the manager builds.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// WithManagerLogger sets the logger for session lifecycle messages.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager over a sealed dataset store.
func NewManager(data *dataset.Store, catalog dashspec.Catalog, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		data:     data,
		catalog:  catalog,
		ids:      dispatch.UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open builds a session for d, runs its initial wave and registers it.
func (m *Manager) Open(ctx context.Context, d *dashspec.Dashboard) (*Session, *dispatch.Wave, error) {
	id := m.ids.Generate()
	s, err := Build(ctx, id, d, m.catalog, m.data, m.opts...)
	if err != nil {
		return nil, nil, err
	}

	w, err := s.Initialize(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: initial wave: %w", id, err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session opened", "session", id, "dashboard", d.Name)
	return s, w, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close stops a session's dispatcher and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.dispatcher.Stop()
	m.logger.Info("session closed", "session", id)
	return nil
}

// IDs returns the open session ids in ascending order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
