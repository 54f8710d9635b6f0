package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/store"
	"github.com/roach88/wavedash/internal/value"
)

var (
	// ErrStoreNotSealed is returned by Build when datasets may still change.
	ErrStoreNotSealed = errors.New("dataset store is not sealed")

	// ErrSessionNotFound is returned by Manager lookups for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the explicit per-user context: registry, graph and dispatcher.
type Session struct {
	id         string
	dashboard  *dashspec.Dashboard
	registry   *registry.Registry
	graph      *graph.Graph
	dispatcher *dispatch.Dispatcher
}

type config struct {
	logger       *slog.Logger
	journal      *store.Store
	dispatchOpts []dispatch.Option
}

// Option configures Build.
type Option func(*config)

// WithLogger sets the logger passed to the dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithJournal records the session and every wave it runs.
func WithJournal(j *store.Store) Option {
	return func(c *config) {
		c.journal = j
	}
}

// WithDispatchOptions appends dispatcher options, applied after the
// session's own.
func WithDispatchOptions(opts ...dispatch.Option) Option {
	return func(c *config) {
		c.dispatchOpts = append(c.dispatchOpts, opts...)
	}
}

// Build constructs a session: it registers components with their resolved
// defaults, binds and registers callbacks, seals the graph and creates the
// dispatcher. Any construction error aborts the session.
func Build(ctx context.Context, id string, d *dashspec.Dashboard, catalog dashspec.Catalog, data *dataset.Store, opts ...Option) (*Session, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !data.Sealed() {
		return nil, ErrStoreNotSealed
	}

	components, err := d.Registry(data)
	if err != nil {
		return nil, fmt.Errorf("dashboard %s: %w", d.Name, err)
	}
	reg := registry.New()
	for _, c := range components {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", d.Name, err)
		}
	}

	callbacks, err := d.Bind(catalog)
	if err != nil {
		return nil, fmt.Errorf("dashboard %s: %w", d.Name, err)
	}
	g := graph.New(reg)
	for _, cb := range callbacks {
		if err := g.Register(cb); err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", d.Name, err)
		}
	}
	if err := g.Build(); err != nil {
		return nil, fmt.Errorf("dashboard %s: %w", d.Name, err)
	}

	dopts := []dispatch.Option{
		dispatch.WithSessionID(id),
		dispatch.WithLogger(cfg.logger),
	}
	if cfg.journal != nil {
		if err := recordSession(ctx, cfg.journal, id, d, data); err != nil {
			return nil, err
		}
		dopts = append(dopts, dispatch.WithJournal(cfg.journal))
	}
	dopts = append(dopts, cfg.dispatchOpts...)

	disp, err := dispatch.New(g, reg, data, dopts...)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:         id,
		dashboard:  d,
		registry:   reg,
		graph:      g,
		dispatcher: disp,
	}, nil
}

func recordSession(ctx context.Context, j *store.Store, id string, d *dashspec.Dashboard, data *dataset.Store) error {
	rec := store.SessionRecord{ID: id, Dashboard: d.Name}
	for _, src := range d.Datasets {
		ds, err := data.Get(src.Name)
		if err != nil {
			return fmt.Errorf("dashboard %s: %w", d.Name, err)
		}
		fp, err := ds.Fingerprint()
		if err != nil {
			return fmt.Errorf("dashboard %s: %w", d.Name, err)
		}
		rec.Datasets = append(rec.Datasets, store.DatasetRecord{Name: ds.Name(), Fingerprint: fp, Rows: ds.Len()})
	}
	return j.RecordSession(ctx, rec)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Dashboard returns the declaration the session runs.
func (s *Session) Dashboard() *dashspec.Dashboard { return s.dashboard }

// Registry returns the session's component registry.
func (s *Session) Registry() *registry.Registry { return s.registry }

// Graph returns the sealed callback graph.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Dispatcher returns the session's dispatcher.
func (s *Session) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Initialize runs the initial wave.
func (s *Session) Initialize(ctx context.Context) (*dispatch.Wave, error) {
	return s.dispatcher.Initialize(ctx)
}

// Dispatch applies external changes and runs the resulting wave.
func (s *Session) Dispatch(ctx context.Context, changes ...dispatch.Change) (*dispatch.Wave, error) {
	return s.dispatcher.Dispatch(ctx, changes...)
}

// Value reads one property.
func (s *Session) Value(ref registry.Ref) (value.Value, error) {
	return s.registry.Get(ref)
}
