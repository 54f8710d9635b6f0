package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/session"
	"github.com/roach88/wavedash/internal/testutil"
	"github.com/roach88/wavedash/internal/value"
)

// Harness holds the collaborators a scenario runs against.
type Harness struct {
	data    *dataset.Store
	dataDir string
	catalog dashspec.Catalog
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithDataStore runs against a prebuilt sealed store instead of loading the
// dashboard's declared datasets.
func WithDataStore(data *dataset.Store) Option {
	return func(h *Harness) {
		h.data = data
	}
}

// WithDataDir resolves relative dataset locations against dir.
func WithDataDir(dir string) Option {
	return func(h *Harness) {
		h.dataDir = dir
	}
}

// WithCatalog replaces the bundled handler catalog.
func WithCatalog(c dashspec.Catalog) Option {
	return func(h *Harness) {
		h.catalog = c
	}
}

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns its result.
//
// Each run builds a fresh session with deterministic wave ids ("wave-0001",
// ...) and sequence numbers starting at 1. The initial wave is wave 0; step
// i produces wave i+1. An error is returned only when the scenario cannot
// run at all; failed expectations are recorded on the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		catalog: dashboards.Catalog(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	d, err := loadDashboard(scenario)
	if err != nil {
		return nil, err
	}

	data := h.data
	if data == nil {
		data, err = h.loadData(ctx, d, scenario.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to load datasets: %w", err)
		}
	}

	s, err := session.Build(ctx, scenario.Name, d, h.catalog, data,
		session.WithLogger(h.logger),
		session.WithDispatchOptions(
			dispatch.WithWaveIDs(testutil.NewSequentialWaveIDs("wave")),
			dispatch.WithClock(testutil.NewStepClock(0)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build session: %w", err)
	}

	result := NewResult()
	initial, err := s.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial wave: %w", err)
	}
	result.AddWave(initial)

	for i, step := range scenario.Steps {
		changes, err := stepChanges(step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		w, err := s.Dispatch(ctx, changes...)
		if err != nil {
			// A rejected batch (unknown ref, wrong type) is a scenario
			// failure, not a harness failure.
			result.AddError(fmt.Sprintf("%s: dispatch rejected: %v", stepLabel(i, step), err))
			continue
		}
		result.AddWave(w)
		if step.Expect != nil {
			for _, msg := range checkExpect(s.Registry(), w, step.Expect) {
				result.AddError(fmt.Sprintf("%s: %s", stepLabel(i, step), msg))
			}
		}
		h.logger.Info("scenario step completed", "scenario", scenario.Name, "step", i, "wave", w.ID)
	}

	for ref, v := range s.Registry().Snapshot() {
		result.Final[ref.String()] = v
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadDashboard(s *Scenario) (*dashspec.Dashboard, error) {
	if s.Dashboard != "" {
		return dashboards.Load(s.Dashboard)
	}
	parsed, err := dashspec.LoadFile(s.Spec)
	if err != nil {
		return nil, err
	}
	if s.Select == "" {
		if len(parsed) != 1 {
			return nil, fmt.Errorf("%s declares %d dashboards; set select", s.Spec, len(parsed))
		}
		return parsed[0], nil
	}
	for _, d := range parsed {
		if d.Name == s.Select {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s does not declare dashboard %q", s.Spec, s.Select)
}

func (h *Harness) loadData(ctx context.Context, d *dashspec.Dashboard, overrides map[string]string) (*dataset.Store, error) {
	local := *d
	local.Datasets = slices.Clone(d.Datasets)
	for i, src := range local.Datasets {
		if loc, ok := overrides[src.Name]; ok {
			local.Datasets[i].Location = loc
		}
	}
	entries, err := local.Entries(ctx, h.dataDir)
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(dataset.WithStoreLogger(h.logger))
	if err := store.LoadAll(ctx, entries...); err != nil {
		return nil, err
	}
	store.Seal()
	return store, nil
}

// stepChanges converts a step's set map into changes ordered by ref.
func stepChanges(step Step) ([]dispatch.Change, error) {
	changes := make([]dispatch.Change, 0, len(step.Set))
	for _, key := range sortedKeys(step.Set) {
		ref, err := registry.ParseRef(key)
		if err != nil {
			return nil, err
		}
		v, err := value.FromAny(step.Set[key])
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
		changes = append(changes, dispatch.Change{Ref: ref, Value: v})
	}
	return changes, nil
}

func checkExpect(reg *registry.Registry, w *dispatch.Wave, e *Expect) []string {
	var errs []string
	if e.Order != nil && !slices.Equal(e.Order, w.Order) {
		errs = append(errs, fmt.Sprintf("order: expected [%s], got [%s]",
			strings.Join(e.Order, " "), strings.Join(w.Order, " ")))
	}
	for _, id := range sortedKeys(e.Outcomes) {
		if got := w.Outcome(id); got != e.Outcomes[id] {
			if got == "" {
				got = "not affected"
			}
			errs = append(errs, fmt.Sprintf("outcome of %s: expected %s, got %s", id, e.Outcomes[id], got))
		}
	}
	for _, key := range sortedKeys(e.Values) {
		ref, _ := registry.ParseRef(key)
		actual, err := reg.Get(ref)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := matchValue(e.Values[key], actual); err != nil {
			errs = append(errs, fmt.Sprintf("value of %s: %v", key, err))
		}
	}
	return errs
}

func stepLabel(i int, step Step) string {
	if step.Name != "" {
		return fmt.Sprintf("step %d (%s)", i, step.Name)
	}
	return fmt.Sprintf("step %d", i)
}

func isURL(loc string) bool {
	return strings.Contains(loc, "://")
}
