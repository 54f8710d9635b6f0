package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wavedash/internal/dispatch"
	"github.com/roach88/wavedash/internal/value"
)

// Snapshot renders a run as canonical JSON. Each wave lists its changes,
// affected callbacks with outcomes, and the refs it wrote. Written values
// are left out so figure tweaks do not churn every snapshot; use
// expect.values or final_value assertions to pin them.
func Snapshot(scenarioName, dashboard string, result *Result) ([]byte, error) {
	waves := make(value.List, len(result.Waves))
	for i, w := range result.Waves {
		waves[i] = waveSnapshot(w)
	}
	return value.MarshalCanonical(value.Object{
		"scenario":  value.String(scenarioName),
		"dashboard": value.String(dashboard),
		"waves":     waves,
	})
}

func waveSnapshot(w *dispatch.Wave) value.Object {
	changes := make(value.List, len(w.Changes))
	for i, c := range w.Changes {
		changes[i] = value.Object{"ref": value.String(c.Ref.String()), "value": c.Value}
	}
	order := make(value.List, len(w.Order))
	outcomes := make(value.Object, len(w.Order))
	for i, id := range w.Order {
		order[i] = value.String(id)
		outcomes[id] = value.String(w.Outcome(id))
	}
	writes := make(value.List, len(w.Writes))
	for i, c := range w.Writes {
		writes[i] = value.String(c.Ref.String())
	}

	obj := value.Object{
		"id":       value.String(w.ID),
		"seq":      value.Number(w.Seq),
		"initial":  value.Bool(w.Initial),
		"changes":  changes,
		"order":    order,
		"outcomes": outcomes,
		"writes":   writes,
	}
	if len(w.Failures) > 0 {
		errs := make(value.Object, len(w.Failures))
		for _, f := range w.Failures {
			errs[f.CallbackID] = value.String(f.Err.Error())
		}
		obj["errors"] = errs
	}
	return obj
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	dashboard := scenario.Dashboard
	if dashboard == "" {
		dashboard = scenario.Select
	}
	data, err := Snapshot(scenario.Name, dashboard, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
