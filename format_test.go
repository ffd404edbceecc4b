package forecastprep

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNormalized_NoGrouping(t *testing.T) {
	f := frameOf(t, []string{"date", "sales", "other"},
		[]any{"2024-01-01", 1.0, "x"},
		[]any{"2024-01-01", 2.0, "y"},
		[]any{"2024-01-05", 3.0, "z"},
	)
	s := Settings{Frequency: "D", OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s)
	require.NoError(t, err)
	assert.Equal(t, []string{ColUniqueID, ColDS, ColY}, out.Columns())

	// no resampling without grouping columns
	require.Equal(t, 3, out.Len())
	ids, _ := out.Strings(ColUniqueID)
	assert.Equal(t, []string{"1", "1", "1"}, ids)
	ds, _ := out.Column(ColDS)
	assert.Equal(t, date(2024, 1, 5), ds[2])
	y, _ := out.Column(ColY)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, y)
}

func TestToNormalized_SingleGroupResamples(t *testing.T) {
	f := frameOf(t, []string{"store", "date", "sales"},
		[]any{"b", "2024-01-02", 2.0},
		[]any{"a", "2024-01-01 10:00:00", 1.0},
		[]any{"a", "2024-01-01 15:00:00", 3.0},
		[]any{"a", "2024-01-03", 5.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{"store"}, OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s)
	require.NoError(t, err)
	assert.Equal(t, []string{ColUniqueID, ColDS, ColY}, out.Columns())

	ids, _ := out.Strings(ColUniqueID)
	assert.Equal(t, []string{"a", "a", "a", "b"}, ids)
	ds, err := out.Times(ColDS)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 2)}, ds)
	y, _ := out.Floats(ColY)
	assert.Equal(t, 2.0, y[0])
	assert.True(t, math.IsNaN(y[1]))
	assert.Equal(t, 5.0, y[2])
	assert.Equal(t, 2.0, y[3])

	// ds strictly increasing per unique_id
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			assert.True(t, ds[i].After(ds[i-1]))
		}
	}
}

func TestToNormalized_MultipleGroupsJoinIDs(t *testing.T) {
	f := frameOf(t, []string{"region", "store", "date", "sales"},
		[]any{"west", 3.0, "2024-01-01", 4.0},
		[]any{"east", 1.0, "2024-01-01", 1.0},
		[]any{"east", 2.0, "2024-01-01", 2.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{"region", "store"}, OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s)
	require.NoError(t, err)
	ids, _ := out.Strings(ColUniqueID)
	assert.Equal(t, []string{"east/1", "east/2", "west/3"}, ids)
}

func TestToNormalized_NumericKeysSortNumerically(t *testing.T) {
	f := frameOf(t, []string{"store", "date", "sales"},
		[]any{10.0, "2024-01-01", 1.0},
		[]any{9.0, "2024-01-01", 2.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{"store"}, OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s)
	require.NoError(t, err)
	ids, _ := out.Strings(ColUniqueID)
	assert.Equal(t, []string{"9", "10"}, ids)
}

func TestToNormalized_ExogenousColumnsSurviveResampling(t *testing.T) {
	f := frameOf(t, []string{"store", "date", "sales", "temp"},
		[]any{"a", "2024-01-01 08:00:00", 1.0, 10.0},
		[]any{"a", "2024-01-01 20:00:00", 3.0, 20.0},
		[]any{"a", "2024-01-02", 5.0, 30.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{"store"}, OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s, "temp")
	require.NoError(t, err)
	assert.Equal(t, []string{ColUniqueID, ColDS, ColY, "temp"}, out.Columns())
	temp, _ := out.Floats("temp")
	assert.Equal(t, []float64{15, 30}, temp)
}

func TestToNormalized_NoGroupBySentinel(t *testing.T) {
	f := frameOf(t, []string{NoGroupBy, "date", "sales"},
		[]any{"g", "2024-01-01", 1.0},
		[]any{"g", "2024-01-01", 3.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{NoGroupBy}, OrderBy: "date", Target: "sales"}

	out, err := ToNormalized(f, s)
	require.NoError(t, err)
	// the sentinel disables resampling but still names the series
	assert.Equal(t, 2, out.Len())
	ids, _ := out.Strings(ColUniqueID)
	assert.Equal(t, []string{"g", "g"}, ids)
}

func TestToNormalized_Errors(t *testing.T) {
	f := frameOf(t, []string{"store", "date", "sales"}, []any{"a", "not a date", 1.0})

	_, err := ToNormalized(f, Settings{Frequency: "D", GroupBy: []string{"store"}, OrderBy: "date", Target: "sales"})
	assert.True(t, errors.Is(err, ErrCoercion))

	_, err = ToNormalized(f, Settings{Frequency: "fortnightly", GroupBy: []string{"store"}, OrderBy: "date", Target: "sales"})
	assert.True(t, errors.Is(err, ErrInvalidFrequency))

	g := frameOf(t, []string{"date", "sales"}, []any{"2024-01-01", 1.0})
	_, err = ToNormalized(g, Settings{Frequency: "D", OrderBy: "date", Target: "sales"}, "temp")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestNormalized_RoundTrip(t *testing.T) {
	f := frameOf(t, []string{"region", "store", "date", "sales"},
		[]any{"east", "s1", "2024-01-01", 1.0},
		[]any{"east", "s2", "2024-01-01", 2.0},
		[]any{"west", "s3", "2024-01-01", 3.0},
	)
	s := Settings{Frequency: "D", GroupBy: []string{"region", "store"}, OrderBy: "date", Target: "sales"}

	norm, err := ToNormalized(f, s)
	require.NoError(t, err)
	back, err := FromNormalized(norm, s)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"date", ColY, "region", "store"}, back.Columns())
	assert.False(t, back.HasColumn(ColUniqueID))
	regions, _ := back.Strings("region")
	stores, _ := back.Strings("store")
	assert.Equal(t, []string{"east", "east", "west"}, regions)
	assert.Equal(t, []string{"s1", "s2", "s3"}, stores)
	dates, err := back.Times("date")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), dates[0])
}

func TestFromNormalized_SingleGroupAndIndex(t *testing.T) {
	f := frameOf(t, []string{ColDS, "model"}, []any{date(2024, 1, 1), 1.5}, []any{date(2024, 1, 1), 2.5})
	require.NoError(t, f.SetIndexValues([]string{"a", "b"}))

	out, err := FromNormalized(f, Settings{GroupBy: []string{"store"}, OrderBy: "date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "model", "store"}, out.Columns())
	assert.Nil(t, out.Index())
	stores, _ := out.Strings("store")
	assert.Equal(t, []string{"a", "b"}, stores)
}

func TestFromNormalized_MismatchedDelimiterDoesNotFail(t *testing.T) {
	f := frameOf(t, []string{ColUniqueID, ColDS}, []any{"east-s1", date(2024, 1, 1)})

	out, err := FromNormalized(f, Settings{GroupBy: []string{"region", "store"}, OrderBy: "date"})
	require.NoError(t, err)
	regions, _ := out.Strings("region")
	stores, _ := out.Strings("store")
	assert.Equal(t, []string{"east-s1"}, regions)
	assert.Equal(t, []string{""}, stores)
}

func TestFromNormalized_MissingUniqueID(t *testing.T) {
	f := frameOf(t, []string{ColDS}, []any{date(2024, 1, 1)})
	_, err := FromNormalized(f, Settings{OrderBy: "date"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}
