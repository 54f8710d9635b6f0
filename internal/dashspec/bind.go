package dashspec

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/registry"
	"github.com/roach88/wavedash/internal/value"
)

// Catalog maps handler names used in declarations to implementations.
type Catalog map[string]graph.Handler

// Names returns the handler names in ascending order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns a catalog holding the handlers of every argument. Later
// catalogs win on name clashes.
func Merge(catalogs ...Catalog) Catalog {
	out := make(Catalog)
	for _, c := range catalogs {
		for name, h := range c {
			out[name] = h
		}
	}
	return out
}

// Bind resolves every callback's handler against catalog. It fails with
// UnknownHandlerError for the first callback whose handler is missing.
func (d *Dashboard) Bind(catalog Catalog) ([]graph.Callback, error) {
	out := make([]graph.Callback, 0, len(d.Callbacks))
	for _, cb := range d.Callbacks {
		h, ok := catalog[cb.Handler]
		if !ok {
			return nil, &UnknownHandlerError{Callback: cb.ID, Handler: cb.Handler}
		}
		out = append(out, graph.Callback{
			ID:       cb.ID,
			Outputs:  cb.Outputs,
			Triggers: cb.Inputs,
			State:    cb.State,
			Handler:  h,
		})
	}
	return out, nil
}

// Registry builds registry declarations for every component, resolving
// data-derived defaults against store.
func (d *Dashboard) Registry(store *dataset.Store) ([]registry.Component, error) {
	out := make([]registry.Component, 0, len(d.Components))
	for _, c := range d.Components {
		rc := registry.Component{ID: c.ID, Properties: make(map[string]registry.PropertySpec, len(c.Properties))}
		for _, p := range c.Properties {
			def := p.Default
			if p.From != nil {
				v, err := p.From.Resolve(store)
				if err != nil {
					return nil, fmt.Errorf("component %s property %s: %w", c.ID, p.Name, err)
				}
				def = v
			}
			rc.Properties[p.Name] = registry.PropertySpec{Type: p.Type, Default: def}
		}
		out = append(out, rc)
	}
	return out, nil
}

// Resolve computes the derived value from store.
func (f *Derived) Resolve(store *dataset.Store) (value.Value, error) {
	ds, err := store.Get(f.Dataset)
	if err != nil {
		return nil, err
	}

	switch f.Op {
	case "min", "max", "extent":
		low, high, err := query.Extent(ds, f.Column)
		if err != nil {
			return nil, err
		}
		switch f.Op {
		case "min":
			return low, nil
		case "max":
			return high, nil
		}
		return value.List{low, high}, nil

	case "distinct", "first":
		values, err := query.Distinct(ds, f.Column)
		if err != nil {
			return nil, err
		}
		if f.Sorted {
			sort.SliceStable(values, func(i, j int) bool {
				c, _ := value.Compare(values[i], values[j])
				return c < 0
			})
		}
		all := make(value.List, 0, len(f.Prepend)+len(values))
		all = append(all, f.Prepend...)
		all = append(all, values...)
		if f.Op == "distinct" {
			return all, nil
		}
		if len(all) == 0 {
			return value.Missing, nil
		}
		return all[0], nil
	}
	return nil, fmt.Errorf("unknown derived op %q", f.Op)
}

// Entries opens every declared dataset source. Relative local locations are
// resolved against baseDir; URLs are passed through.
func (d *Dashboard) Entries(ctx context.Context, baseDir string) ([]dataset.Entry, error) {
	out := make([]dataset.Entry, 0, len(d.Datasets))
	for _, s := range d.Datasets {
		src, err := dataset.Open(ctx, s.Name, resolveLocation(baseDir, s.Location))
		if err != nil {
			return nil, err
		}
		out = append(out, dataset.Entry{Source: src, Options: s.Options()})
	}
	return out, nil
}

// Options converts the declared drops and forced types into load options.
func (s Source) Options() []dataset.LoadOption {
	var opts []dataset.LoadOption
	if len(s.Drop) > 0 {
		opts = append(opts, dataset.WithDroppedColumns(s.Drop...))
	}
	cols := make([]string, 0, len(s.Types))
	for col := range s.Types {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		opts = append(opts, dataset.WithColumnType(col, s.Types[col]))
	}
	return opts
}

func resolveLocation(baseDir, location string) string {
	if strings.Contains(location, "://") || filepath.IsAbs(location) || baseDir == "" {
		return location
	}
	return filepath.Join(baseDir, location)
}
