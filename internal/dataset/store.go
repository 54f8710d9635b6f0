package dataset

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/minio/highwayhash"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/wavedash/internal/value"
)

// fingerprintKey is the fixed HighwayHash key for dataset fingerprints.
// Fingerprints are identity checks across runs, not a security boundary.
var fingerprintKey = []byte("wavedash-dataset-fingerprint-k32")

// Store holds named datasets shared read-only by every session.
//
// Datasets are loaded once at startup, then the store is sealed. After Seal
// the set of datasets never changes.
type Store struct {
	mu       sync.RWMutex
	sealed   bool
	datasets map[string]*Dataset
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for load diagnostics.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns an empty, unsealed store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		datasets: make(map[string]*Dataset),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers an already-built dataset.
func (s *Store) Add(ds *Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrStoreSealed
	}
	if _, exists := s.datasets[ds.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateDataset, ds.Name())
	}
	s.datasets[ds.Name()] = ds
	s.logger.Debug("dataset loaded",
		"dataset", ds.Name(),
		"rows", ds.Len(),
		"columns", len(ds.schema))
	return nil
}

// Load reads src, infers its schema and registers the result.
func (s *Store) Load(ctx context.Context, src Source, opts ...LoadOption) (*Dataset, error) {
	ds, err := build(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Add(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Entry pairs a Source with its load options for LoadAll.
type Entry struct {
	Source  Source
	Options []LoadOption
}

// LoadAll reads and types entries concurrently, then registers them in entry
// order. Either every dataset is added or none is.
func (s *Store) LoadAll(ctx context.Context, entries ...Entry) error {
	built := make([]*Dataset, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			ds, err := build(gctx, e.Source, e.Options)
			if err != nil {
				return err
			}
			built[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrStoreSealed
	}
	seen := make(map[string]bool, len(built))
	for _, ds := range built {
		if _, exists := s.datasets[ds.Name()]; exists || seen[ds.Name()] {
			return fmt.Errorf("%w: %q", ErrDuplicateDataset, ds.Name())
		}
		seen[ds.Name()] = true
	}
	for _, ds := range built {
		s.datasets[ds.Name()] = ds
		s.logger.Debug("dataset loaded",
			"dataset", ds.Name(),
			"rows", ds.Len(),
			"columns", len(ds.schema))
	}
	return nil
}

func build(ctx context.Context, src Source, opts []LoadOption) (*Dataset, error) {
	var lo LoadOptions
	for _, opt := range opts {
		opt(&lo)
	}
	frame, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", src.Name(), err)
	}
	return Infer(src.Name(), frame, lo)
}

// Seal freezes the store. Further loads fail with ErrStoreSealed.
func (s *Store) Seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Get returns the named dataset or a NotFoundError.
func (s *Store) Get(name string) (*Dataset, error) {
	s.mu.RLock()
	ds, ok := s.datasets[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return ds, nil
}

// Names returns dataset names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint returns a hex HighwayHash-64 of the dataset's schema and rows
// in canonical form. Equal contents give equal fingerprints.
func (d *Dataset) Fingerprint() (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}

	header := make(value.List, len(d.schema))
	for i, col := range d.schema {
		header[i] = value.List{value.String(col.Name), value.String(col.Type.String())}
	}
	b, err := value.MarshalCanonical(header)
	if err != nil {
		return "", err
	}
	h.Write(b)

	for _, row := range d.rows {
		b, err := value.MarshalCanonical(value.List(row))
		if err != nil {
			return "", fmt.Errorf("dataset %s: fingerprint: %w", d.name, err)
		}
		h.Write([]byte{'\n'})
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
