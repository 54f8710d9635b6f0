package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/wavedash/internal/value"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] wave %d %s %s\n", i+1, ev.Wave, ev.Callback, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCallbackCount:
			err = assertCallbackCount(result.Trace, a)
		case AssertCallbackOrder:
			err = assertCallbackOrder(result.Trace, a)
		case AssertFinalValue:
			err = assertFinalValue(result.Final, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertCallbackCount(trace []TraceEvent, a Assertion) error {
	outcome := a.Outcome
	if outcome == "" {
		outcome = "executed"
	}
	count := 0
	for _, ev := range trace {
		if ev.Callback == a.Callback && ev.Outcome == outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertCallbackCount,
			Expected: fmt.Sprintf("%d %s events of %s", a.Count, outcome, a.Callback),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallbackOrder checks relative order of first appearances.
// Intervening callbacks are allowed.
func assertCallbackOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if a.Wave != nil && ev.Wave != *a.Wave {
			continue
		}
		if _, seen := positions[ev.Callback]; !seen {
			positions[ev.Callback] = i + 1
		}
	}

	for _, id := range a.Callbacks {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertCallbackOrder,
				Expected: fmt.Sprintf("all callbacks present: %v", a.Callbacks),
				Actual:   fmt.Sprintf("missing callback: %s", id),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Callbacks); i++ {
		prev, curr := a.Callbacks[i-1], a.Callbacks[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCallbackOrder,
				Expected: fmt.Sprintf("callbacks in order: %v", a.Callbacks),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertFinalValue(final map[string]value.Value, a Assertion) error {
	actual, ok := final[a.Ref]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("property %s", a.Ref),
			Actual:   "not registered",
		}
	}
	if err := matchValue(a.Value, actual); err != nil {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %v", a.Ref, a.Value),
			Actual:   err.Error(),
		}
	}
	return nil
}

// matchValue compares a YAML-decoded expectation against an actual value.
// Objects match as subsets; lists must have equal length and match
// element-wise. A string expectation matches a date by its RFC 3339 or
// 2006-01-02 rendering.
func matchValue(expected any, actual value.Value) error {
	want, err := value.FromAny(expected)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	return matchDecoded(want, actual, "")
}

func matchDecoded(want, got value.Value, path string) error {
	at := func() string {
		if path == "" {
			return ""
		}
		return " at " + path
	}

	switch w := want.(type) {
	case value.Object:
		obj, ok := value.AsObject(got)
		if !ok {
			return fmt.Errorf("expected object%s, got %s", at(), value.Format(got))
		}
		for _, k := range w.SortedKeys() {
			sub, present := obj[k]
			if !present {
				return fmt.Errorf("missing key %q%s", k, at())
			}
			if err := matchDecoded(w[k], sub, path+"."+k); err != nil {
				return err
			}
		}
		return nil

	case value.List:
		list, ok := value.AsList(got)
		if !ok {
			return fmt.Errorf("expected list%s, got %s", at(), value.Format(got))
		}
		if len(list) != len(w) {
			return fmt.Errorf("expected %d elements%s, got %d", len(w), at(), len(list))
		}
		for i := range w {
			if err := matchDecoded(w[i], list[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case value.String:
		if d, ok := got.(value.Date); ok {
			t := d.Time()
			if string(w) == t.Format("2006-01-02") || string(w) == value.Format(d) {
				return nil
			}
		}
	}

	if !value.Equal(want, got) {
		return fmt.Errorf("expected %s%s, got %s", value.Format(want), at(), value.Format(got))
	}
	return nil
}
