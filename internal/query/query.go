package query

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/value"
)

// Filter returns the rows of ds matching every predicate, in original order.
func Filter(ds *dataset.Dataset, preds ...Predicate) (*dataset.Dataset, error) {
	match, err := And(preds...).bind(ds)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, ds.Len())
	for row := 0; row < ds.Len(); row++ {
		if match(row) {
			keep = append(keep, row)
		}
	}
	return ds.Select(keep), nil
}

// FilterRange keeps rows where low <= row[column] <= high.
func FilterRange(ds *dataset.Dataset, column string, low, high value.Value) (*dataset.Dataset, error) {
	return Filter(ds, Range(column, low, high))
}

// FilterEquals keeps rows where row[column] equals v.
func FilterEquals(ds *dataset.Dataset, column string, v value.Value) (*dataset.Dataset, error) {
	return Filter(ds, Equals(column, v))
}

// FilterIn keeps rows where row[column] is one of values.
func FilterIn(ds *dataset.Dataset, column string, values []value.Value) (*dataset.Dataset, error) {
	return Filter(ds, In(column, values))
}

// Group is one group-by result row.
type Group struct {
	Key   value.Value
	Mean  float64
	Count int // present values averaged
}

// GroupByMean groups rows by the distinct present values of keyColumn and
// averages valueColumn per group. Groups are ordered by ascending key. Rows
// with an absent key are dropped, as are groups whose values are all absent.
func GroupByMean(ds *dataset.Dataset, keyColumn, valueColumn string) ([]Group, error) {
	if _, err := lookup(ds, keyColumn, "group by"); err != nil {
		return nil, err
	}
	if err := requireNumber(ds, valueColumn, "group by mean"); err != nil {
		return nil, err
	}

	keys := make(map[string]value.Value)
	samples := make(map[string]stats.Float64Data)
	for row := 0; row < ds.Len(); row++ {
		k := ds.Value(row, keyColumn)
		if value.IsAbsent(k) {
			continue
		}
		f, ok := value.AsNumber(ds.Value(row, valueColumn))
		if !ok {
			continue
		}
		id := value.Key(k)
		keys[id] = k
		samples[id] = append(samples[id], f)
	}

	groups := make([]Group, 0, len(samples))
	for id, data := range samples {
		mean, err := stats.Mean(data)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", value.Format(keys[id]), err)
		}
		groups = append(groups, Group{Key: keys[id], Mean: mean, Count: len(data)})
	}
	sort.Slice(groups, func(i, j int) bool {
		c, _ := value.Compare(groups[i].Key, groups[j].Key)
		return c < 0
	})
	return groups, nil
}

// Count is one value-counts result row.
type Count struct {
	Value value.Value
	Count int
}

// ValueCounts counts each distinct present value of column, ordered by
// descending count with ties broken by ascending value.
func ValueCounts(ds *dataset.Dataset, column string) ([]Count, error) {
	if _, err := lookup(ds, column, "value counts"); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var counts []Count
	for row := 0; row < ds.Len(); row++ {
		v := ds.Value(row, column)
		if value.IsAbsent(v) {
			continue
		}
		id := value.Key(v)
		i, seen := index[id]
		if !seen {
			i = len(counts)
			index[id] = i
			counts = append(counts, Count{Value: v})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		c, _ := value.Compare(counts[i].Value, counts[j].Value)
		return c < 0
	})
	return counts, nil
}

// Distinct returns the present values of column in first-seen order.
func Distinct(ds *dataset.Dataset, column string) ([]value.Value, error) {
	if _, err := lookup(ds, column, "distinct"); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []value.Value
	for row := 0; row < ds.Len(); row++ {
		v := ds.Value(row, column)
		if value.IsAbsent(v) {
			continue
		}
		id := value.Key(v)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, v)
	}
	return out, nil
}

// Extent returns the smallest and largest present values of an orderable
// column. It fails with ErrNoValues when every cell is absent.
func Extent(ds *dataset.Dataset, column string) (low, high value.Value, err error) {
	col, err := lookup(ds, column, "extent")
	if err != nil {
		return nil, nil, err
	}
	if !col.Type.Orderable() {
		return nil, nil, &TypeMismatchError{Dataset: ds.Name(), Column: column, Op: "extent", Type: col.Type, Message: "column type is not orderable"}
	}
	for row := 0; row < ds.Len(); row++ {
		v := ds.Value(row, column)
		if value.IsAbsent(v) {
			continue
		}
		if low == nil {
			low, high = v, v
			continue
		}
		if c, _ := value.Compare(v, low); c < 0 {
			low = v
		}
		if c, _ := value.Compare(v, high); c > 0 {
			high = v
		}
	}
	if low == nil {
		return nil, nil, fmt.Errorf("extent of %q: %w", column, ErrNoValues)
	}
	return low, high, nil
}

// Mean averages the present values of a number column. It fails with
// ErrNoValues when every cell is absent.
func Mean(ds *dataset.Dataset, column string) (float64, error) {
	if err := requireNumber(ds, column, "mean"); err != nil {
		return 0, err
	}
	var data stats.Float64Data
	for row := 0; row < ds.Len(); row++ {
		if f, ok := value.AsNumber(ds.Value(row, column)); ok {
			data = append(data, f)
		}
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("mean of %q: %w", column, ErrNoValues)
	}
	return stats.Mean(data)
}

func requireNumber(ds *dataset.Dataset, column, op string) error {
	col, err := lookup(ds, column, op)
	if err != nil {
		return err
	}
	if col.Type != value.KindNumber {
		return &TypeMismatchError{Dataset: ds.Name(), Column: column, Op: op, Type: col.Type, Message: "column is not numeric"}
	}
	return nil
}
