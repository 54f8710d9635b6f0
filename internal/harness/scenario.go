package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/wavedash/internal/registry"
)

// Scenario is one dashboard conversation: a series of change batches and
// the waves they must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dashboard is a bundled dashboard name. Exactly one of Dashboard and
	// Spec is set.
	Dashboard string `yaml:"dashboard,omitempty"`

	// Spec is a path to a CUE dashboard file, relative to the scenario.
	Spec string `yaml:"spec,omitempty"`

	// Select picks one dashboard when Spec declares several.
	Select string `yaml:"select,omitempty"`

	// Data overrides dataset locations by dataset name. Relative paths are
	// resolved against the scenario file.
	Data map[string]string `yaml:"data,omitempty"`

	// Steps are dispatched in order, one wave each.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the whole run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one coalesced change batch.
type Step struct {
	Name string `yaml:"name,omitempty"`

	// Set maps "component.property" to the new value.
	Set map[string]any `yaml:"set"`

	// Expect checks the wave this step produced. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes one wave.
type Expect struct {
	// Order is the exact affected-callback order. Nil skips the check; an
	// empty list asserts that nothing ran.
	Order []string `yaml:"order"`

	// Outcomes maps callback id to executed, noop, skipped or failed.
	Outcomes map[string]string `yaml:"outcomes,omitempty"`

	// Values are subset-matched against property values after the wave.
	Values map[string]any `yaml:"values,omitempty"`
}

// Assertion checks the whole run.
type Assertion struct {
	// Type is one of callback_count, callback_order or final_value.
	Type string `yaml:"type"`

	// Callback is the callback id (callback_count).
	Callback string `yaml:"callback,omitempty"`

	// Outcome filters callback_count; it defaults to executed.
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching events (callback_count).
	Count int `yaml:"count,omitempty"`

	// Callbacks must appear in this relative order (callback_order).
	Callbacks []string `yaml:"callbacks,omitempty"`

	// Wave limits callback_order to one wave; nil means the whole trace.
	Wave *int `yaml:"wave,omitempty"`

	// Ref and Value are the expected final property value (final_value).
	Ref   string `yaml:"ref,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Assertion types.
const (
	AssertCallbackCount = "callback_count"
	AssertCallbackOrder = "callback_order"
	AssertFinalValue    = "final_value"
)

var validOutcomes = map[string]bool{
	"executed": true,
	"noop":     true,
	"skipped":  true,
	"failed":   true,
}

// LoadScenario reads a scenario file. Spec and Data paths are resolved
// against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.resolve(filepath.Dir(path))
	return s, nil
}

// ParseScenario decodes and validates a scenario document. Unknown fields
// are rejected so typos fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) resolve(baseDir string) {
	if s.Spec != "" && !filepath.IsAbs(s.Spec) {
		s.Spec = filepath.Join(baseDir, s.Spec)
	}
	for name, loc := range s.Data {
		if !filepath.IsAbs(loc) && !isURL(loc) {
			s.Data[name] = filepath.Join(baseDir, loc)
		}
	}
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Dashboard == "") == (s.Spec == "") {
		return fmt.Errorf("exactly one of dashboard and spec is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if len(step.Set) == 0 {
			return fmt.Errorf("steps[%d]: set is required and must be non-empty", i)
		}
		for _, key := range sortedKeys(step.Set) {
			if _, err := registry.ParseRef(key); err != nil {
				return fmt.Errorf("steps[%d].set: %w", i, err)
			}
		}
		if step.Expect == nil {
			continue
		}
		for id, outcome := range step.Expect.Outcomes {
			if !validOutcomes[outcome] {
				return fmt.Errorf("steps[%d].expect.outcomes[%s]: unknown outcome %q", i, id, outcome)
			}
		}
		for _, key := range sortedKeys(step.Expect.Values) {
			if _, err := registry.ParseRef(key); err != nil {
				return fmt.Errorf("steps[%d].expect.values: %w", i, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCallbackCount:
		if a.Callback == "" {
			return fmt.Errorf("assertions[%d]: callback is required for callback_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		if a.Outcome != "" && !validOutcomes[a.Outcome] {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	case AssertCallbackOrder:
		if len(a.Callbacks) < 2 {
			return fmt.Errorf("assertions[%d]: callback_order needs at least two callbacks", index)
		}
	case AssertFinalValue:
		if _, err := registry.ParseRef(a.Ref); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
