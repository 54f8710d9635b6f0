package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/roach88/wavedash/internal/dashboards"
	"github.com/roach88/wavedash/internal/dashspec"
	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/graph"
	"github.com/roach88/wavedash/internal/query"
	"github.com/roach88/wavedash/internal/registry"
)

// LoadError is a dashboard that could not be loaded at all.
type LoadError struct {
	Target  string
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Target, e.Message)
}

// loadDashboards resolves targets to dashboards. A target ending in .cue is
// a file and contributes every dashboard it declares; anything else names a
// bundled dashboard. No targets means every bundled dashboard.
func loadDashboards(targets []string) ([]*dashspec.Dashboard, []error) {
	if len(targets) == 0 {
		targets = dashboards.Names()
	}

	var (
		out  []*dashspec.Dashboard
		errs []error
	)
	for _, target := range targets {
		if !strings.HasSuffix(target, ".cue") {
			if !slices.Contains(dashboards.Names(), target) {
				errs = append(errs, &LoadError{Target: target, Code: ErrCodeNotFound, Message: "no bundled dashboard with this name"})
				continue
			}
			d, err := dashboards.Load(target)
			if err != nil {
				errs = append(errs, &LoadError{Target: target, Code: errorCode(err), Message: err.Error()})
				continue
			}
			out = append(out, d)
			continue
		}

		if _, err := os.Stat(target); err != nil {
			errs = append(errs, &LoadError{Target: target, Code: ErrCodeNotFound, Message: "file not found"})
			continue
		}
		parsed, err := dashspec.LoadFile(target)
		if err != nil {
			errs = append(errs, &LoadError{Target: target, Code: errorCode(err), Message: err.Error()})
			continue
		}
		if len(parsed) == 0 {
			errs = append(errs, &LoadError{Target: target, Code: ErrCodeNotFound, Message: "no dashboards declared"})
			continue
		}
		out = append(out, parsed...)
	}
	return out, errs
}

// loadOne resolves a single target to exactly one dashboard.
func loadOne(target string) (*dashspec.Dashboard, error) {
	ds, errs := loadDashboards([]string{target})
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if len(ds) != 1 {
		return nil, &LoadError{
			Target:  target,
			Code:    ErrCodeBadInput,
			Message: fmt.Sprintf("declares %d dashboards; split it or name a bundled dashboard", len(ds)),
		}
	}
	return ds[0], nil
}

// loadData loads and seals every dataset d declares.
func loadData(ctx context.Context, d *dashspec.Dashboard, dataDir string, logger *slog.Logger) (*dataset.Store, error) {
	entries, err := d.Entries(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	store := dataset.NewStore(dataset.WithStoreLogger(logger))
	if err := store.LoadAll(ctx, entries...); err != nil {
		return nil, err
	}
	store.Seal()
	return store, nil
}

// errorCode maps a domain error to its package error code.
func errorCode(err error) string {
	for _, code := range []string{
		dashspec.Code(err),
		registry.Code(err),
		graph.Code(err),
		query.Code(err),
	} {
		if code != "" {
			return code
		}
	}
	var schema *dataset.SchemaError
	switch {
	case errors.As(err, &schema):
		return dataset.ErrCodeSchema
	case dataset.IsNotFound(err):
		return dataset.ErrCodeNotFound
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
