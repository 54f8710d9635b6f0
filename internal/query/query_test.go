package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavedash/internal/dataset"
	"github.com/roach88/wavedash/internal/value"
)

// prices is the three-row state/year/price dataset used across tests.
func prices(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("prices", dataset.Schema{
		{Name: "state", Type: value.KindString},
		{Name: "year", Type: value.KindNumber},
		{Name: "price", Type: value.KindNumber},
	}, [][]value.Value{
		{value.String("A"), value.Number(2020), value.Number(10)},
		{value.String("A"), value.Number(2021), value.Number(12)},
		{value.String("B"), value.Number(2020), value.Number(8)},
	})
	require.NoError(t, err)
	return ds
}

func column(ds *dataset.Dataset, name string) []value.Value {
	out := make([]value.Value, ds.Len())
	for i := range out {
		out[i] = ds.Value(i, name)
	}
	return out
}

func TestFilterRangeThenGroupByMean(t *testing.T) {
	ds := prices(t)

	filtered, err := FilterRange(ds, "year", value.Number(2020), value.Number(2020))
	require.NoError(t, err)

	groups, err := GroupByMean(filtered, "state", "price")
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Key: value.String("A"), Mean: 10.0, Count: 1},
		{Key: value.String("B"), Mean: 8.0, Count: 1},
	}, groups)
}

func TestValueCounts(t *testing.T) {
	counts, err := ValueCounts(prices(t), "state")
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Value: value.String("A"), Count: 2},
		{Value: value.String("B"), Count: 1},
	}, counts)
}

func TestValueCounts_TiesByAscendingValue(t *testing.T) {
	ds, err := dataset.New("d", dataset.Schema{{Name: "class", Type: value.KindNumber}}, [][]value.Value{
		{value.Number(1)}, {value.Number(0)}, {value.Missing}, {value.Number(0)}, {value.Number(1)}, {value.Number(2)},
	})
	require.NoError(t, err)

	counts, err := ValueCounts(ds, "class")
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Value: value.Number(0), Count: 2},
		{Value: value.Number(1), Count: 2},
		{Value: value.Number(2), Count: 1},
	}, counts)
}

func TestFilterEquals_AbsentCategoryIsEmpty(t *testing.T) {
	ds := prices(t)

	filtered, err := FilterEquals(ds, "state", value.String("C"))
	require.NoError(t, err)
	assert.Equal(t, 0, filtered.Len())
	assert.Equal(t, ds.Schema(), filtered.Schema())
}

func TestFilterIn_StableOrder(t *testing.T) {
	ds := prices(t)

	filtered, err := FilterIn(ds, "year", []value.Value{value.Number(2020)})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.String("A"), value.String("B")}, column(filtered, "state"))
}

func TestFilterIn_EmptySet(t *testing.T) {
	filtered, err := FilterIn(prices(t), "state", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, filtered.Len())
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	ds := prices(t)
	_, err := FilterEquals(ds, "state", value.String("B"))
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, value.String("A"), ds.Value(0, "state"))
}

func TestAnd_Commutative(t *testing.T) {
	ds := prices(t)
	p1 := Equals("state", value.String("A"))
	p2 := Range("year", value.Number(2020), value.Number(2020))

	ab, err := Filter(ds, And(p1, p2))
	require.NoError(t, err)
	ba, err := Filter(ds, And(p2, p1))
	require.NoError(t, err)

	step, err := Filter(ds, p1)
	require.NoError(t, err)
	step, err = Filter(step, p2)
	require.NoError(t, err)

	assert.Equal(t, ab.Records(), ba.Records())
	assert.Equal(t, ab.Records(), step.Records())
	assert.Equal(t, 1, ab.Len())
}

func TestAnd_Nested(t *testing.T) {
	ds := prices(t)
	p := And(And(Equals("state", value.String("A"))), And(Range("price", value.Number(11), value.Number(20))))

	filtered, err := Filter(ds, p)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Number(2021)}, column(filtered, "year"))
	assert.Equal(t, "(state = A and price in [11, 20])", p.String())
}

func TestAnd_ErrorIndependentOfOrder(t *testing.T) {
	ds := prices(t)
	p1 := Equals("nope", value.String("A"))
	p2 := Range("year", value.Number(2021), value.Number(2020))

	_, err1 := Filter(ds, And(p1, p2))
	_, err2 := Filter(ds, And(p2, p1))
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, err1.Error(), err2.Error())

	var cnf *ColumnNotFoundError
	var ir *InvalidRangeError
	assert.True(t, errors.As(err1, &cnf))
	assert.True(t, errors.As(err1, &ir))
}

func TestEmptyAndMatchesAll(t *testing.T) {
	filtered, err := Filter(prices(t))
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.Len())
}

func TestFilterErrors(t *testing.T) {
	ds := prices(t)

	tests := []struct {
		name string
		pred Predicate
		code string
	}{
		{"unknown column", Range("month", value.Number(1), value.Number(2)), ErrCodeColumnNotFound},
		{"inverted range", Range("year", value.Number(2021), value.Number(2020)), ErrCodeInvalidRange},
		{"bound kind", Range("year", value.String("2020"), value.Number(2021)), ErrCodeTypeMismatch},
		{"absent bound", Range("year", value.Missing, value.Number(2021)), ErrCodeTypeMismatch},
		{"equals kind", Equals("state", value.Number(1)), ErrCodeTypeMismatch},
		{"in member kind", In("year", []value.Value{value.Number(1), value.String("x")}), ErrCodeTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(ds, tt.pred)
			require.Error(t, err)
			assert.Equal(t, tt.code, Code(err))
		})
	}
}

func TestRange_NotOrderable(t *testing.T) {
	ds, err := dataset.New("d", dataset.Schema{{Name: "ok", Type: value.KindBool}}, [][]value.Value{{value.Bool(true)}})
	require.NoError(t, err)

	_, err = FilterRange(ds, "ok", value.Bool(false), value.Bool(true))
	var tm *TypeMismatchError
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, value.KindBool, tm.Type)
}

func TestRange_ErrorOnEmptyDataset(t *testing.T) {
	ds, err := dataset.New("d", dataset.Schema{{Name: "year", Type: value.KindNumber}}, nil)
	require.NoError(t, err)

	_, err = FilterRange(ds, "year", value.Number(3), value.Number(1))
	assert.Equal(t, ErrCodeInvalidRange, Code(err))
}

func TestRange_SkipsAbsent(t *testing.T) {
	ds, err := dataset.New("d", dataset.Schema{{Name: "year", Type: value.KindNumber}}, [][]value.Value{
		{value.Number(1)}, {value.Missing}, {value.Number(3)},
	})
	require.NoError(t, err)

	filtered, err := FilterRange(ds, "year", value.Number(0), value.Number(5))
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())
}

func TestGroupByMean_Errors(t *testing.T) {
	ds := prices(t)

	_, err := GroupByMean(ds, "region", "price")
	assert.Equal(t, ErrCodeColumnNotFound, Code(err))

	_, err = GroupByMean(ds, "year", "state")
	assert.Equal(t, ErrCodeTypeMismatch, Code(err))
}

func TestGroupByMean_SkipsAbsent(t *testing.T) {
	ds, err := dataset.New("d", dataset.Schema{
		{Name: "site", Type: value.KindString},
		{Name: "class", Type: value.KindNumber},
	}, [][]value.Value{
		{value.String("VAFB"), value.Number(1)},
		{value.String("CCAFS"), value.Number(0)},
		{value.String("CCAFS"), value.Number(1)},
		{value.Missing, value.Number(1)},
		{value.String("KSC"), value.Missing},
		{value.String("CCAFS"), value.Number(1)},
	})
	require.NoError(t, err)

	groups, err := GroupByMean(ds, "site", "class")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, value.String("CCAFS"), groups[0].Key)
	assert.InDelta(t, 2.0/3.0, groups[0].Mean, 1e-9)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, value.String("VAFB"), groups[1].Key)
	assert.Equal(t, 1.0, groups[1].Mean)
}

func TestDistinct(t *testing.T) {
	vals, err := Distinct(prices(t), "year")
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Number(2020), value.Number(2021)}, vals)
}

func TestExtent(t *testing.T) {
	lo, hi, err := Extent(prices(t), "year")
	require.NoError(t, err)
	assert.Equal(t, value.Number(2020), lo)
	assert.Equal(t, value.Number(2021), hi)

	empty, err := dataset.New("d", dataset.Schema{{Name: "year", Type: value.KindNumber}}, nil)
	require.NoError(t, err)
	_, _, err = Extent(empty, "year")
	assert.ErrorIs(t, err, ErrNoValues)
}

func TestMean(t *testing.T) {
	m, err := Mean(prices(t), "price")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, m, 1e-9)

	_, err = Mean(prices(t), "state")
	assert.Equal(t, ErrCodeTypeMismatch, Code(err))
}
