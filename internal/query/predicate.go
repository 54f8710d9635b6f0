package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/value"
)

// Predicate is a row condition. Predicates are values: building one never
// fails; validation happens when the predicate is bound to a dataset.
type Predicate interface {
	bind(ds *dataset.Dataset) (rowMatcher, error)
	String() string
}

type rowMatcher func(row int) bool

// Range keeps rows where low <= row[column] <= high. Absent cells never match.
func Range(column string, low, high value.Value) Predicate {
	return rangePredicate{column: column, low: low, high: high}
}

// Equals keeps rows whose column equals v. An Absent v matches absent cells.
func Equals(column string, v value.Value) Predicate {
	return equalsPredicate{column: column, value: v}
}

// In keeps rows whose column equals any member of values. An empty set
// matches nothing.
func In(column string, values []value.Value) Predicate {
	return inPredicate{column: column, values: append([]value.Value(nil), values...)}
}

// And is the conjunction of preds. Nested conjunctions are flattened; an
// empty conjunction matches every row.
func And(preds ...Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		if a, ok := p.(andPredicate); ok {
			flat = append(flat, a.members...)
			continue
		}
		if p != nil {
			flat = append(flat, p)
		}
	}
	return andPredicate{members: flat}
}

type rangePredicate struct {
	column    string
	low, high value.Value
}

func (p rangePredicate) String() string {
	return fmt.Sprintf("%s in [%s, %s]", p.column, value.Format(p.low), value.Format(p.high))
}

func (p rangePredicate) bind(ds *dataset.Dataset) (rowMatcher, error) {
	col, err := lookup(ds, p.column, "range")
	if err != nil {
		return nil, err
	}
	if !col.Type.Orderable() {
		return nil, &TypeMismatchError{Dataset: ds.Name(), Column: p.column, Op: "range", Type: col.Type, Message: "column type is not orderable"}
	}
	for _, bound := range []value.Value{p.low, p.high} {
		if value.KindOf(bound) != col.Type {
			return nil, &TypeMismatchError{
				Dataset: ds.Name(),
				Column:  p.column,
				Op:      "range",
				Type:    col.Type,
				Message: fmt.Sprintf("bound %s is %s", value.Format(bound), value.KindOf(bound)),
			}
		}
	}
	if c, _ := value.Compare(p.low, p.high); c > 0 {
		return nil, &InvalidRangeError{Column: p.column, Low: p.low, High: p.high}
	}

	return func(row int) bool {
		v := ds.Value(row, p.column)
		if value.IsAbsent(v) {
			return false
		}
		lo, _ := value.Compare(p.low, v)
		hi, _ := value.Compare(v, p.high)
		return lo <= 0 && hi <= 0
	}, nil
}

type equalsPredicate struct {
	column string
	value  value.Value
}

func (p equalsPredicate) String() string {
	return fmt.Sprintf("%s = %s", p.column, value.Format(p.value))
}

func (p equalsPredicate) bind(ds *dataset.Dataset) (rowMatcher, error) {
	col, err := lookup(ds, p.column, "equals")
	if err != nil {
		return nil, err
	}
	if err := checkOperand(ds, col, "equals", p.value); err != nil {
		return nil, err
	}
	key := value.Key(p.value)
	return func(row int) bool {
		return value.Key(ds.Value(row, p.column)) == key
	}, nil
}

type inPredicate struct {
	column string
	values []value.Value
}

func (p inPredicate) String() string {
	parts := make([]string, len(p.values))
	for i, v := range p.values {
		parts[i] = value.Format(v)
	}
	return fmt.Sprintf("%s in {%s}", p.column, strings.Join(parts, ", "))
}

func (p inPredicate) bind(ds *dataset.Dataset) (rowMatcher, error) {
	col, err := lookup(ds, p.column, "in")
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(p.values))
	for _, v := range p.values {
		if err := checkOperand(ds, col, "in", v); err != nil {
			return nil, err
		}
		set[value.Key(v)] = true
	}
	return func(row int) bool {
		return set[value.Key(ds.Value(row, p.column))]
	}, nil
}

type andPredicate struct {
	members []Predicate
}

func (p andPredicate) String() string {
	if len(p.members) == 0 {
		return "true"
	}
	parts := make([]string, len(p.members))
	for i, m := range p.members {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, " and ") + ")"
}

// bind validates every member. When several members are invalid the errors
// are reported in a fixed order so member order never changes the outcome.
func (p andPredicate) bind(ds *dataset.Dataset) (rowMatcher, error) {
	matchers := make([]rowMatcher, 0, len(p.members))
	var errs []error
	for _, m := range p.members {
		match, err := m.bind(ds)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		matchers = append(matchers, match)
	}
	switch len(errs) {
	case 0:
	case 1:
		return nil, errs[0]
	default:
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errors.Join(errs...)
	}

	return func(row int) bool {
		for _, match := range matchers {
			if !match(row) {
				return false
			}
		}
		return true
	}, nil
}

func lookup(ds *dataset.Dataset, column, op string) (dataset.Column, error) {
	col, ok := ds.Column(column)
	if !ok {
		return dataset.Column{}, &ColumnNotFoundError{Dataset: ds.Name(), Column: column, Op: op}
	}
	return col, nil
}

func checkOperand(ds *dataset.Dataset, col dataset.Column, op string, v value.Value) error {
	if v == nil || value.IsAbsent(v) || v.Kind() == col.Type {
		return nil
	}
	return &TypeMismatchError{
		Dataset: ds.Name(),
		Column:  col.Name,
		Op:      op,
		Type:    col.Type,
		Message: fmt.Sprintf("operand %s is %s", value.Format(v), v.Kind()),
	}
}
