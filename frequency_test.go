package forecastprep

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		code string
		want Frequency
		str  string
	}{
		{"D", Frequency{N: 1, Unit: Day}, "D"},
		{"15T", Frequency{N: 15, Unit: Minute}, "15T"},
		{"5min", Frequency{N: 5, Unit: Minute}, "5T"},
		{"2H", Frequency{N: 2, Unit: Hour}, "2H"},
		{"B", Frequency{N: 1, Unit: BusinessDay}, "B"},
		{"W", Frequency{N: 1, Unit: Week, Weekday: time.Sunday}, "W-SUN"},
		{"W-MON", Frequency{N: 1, Unit: Week, Weekday: time.Monday}, "W-MON"},
		{"MS", Frequency{N: 1, Unit: MonthStart}, "MS"},
		{"M", Frequency{N: 1, Unit: MonthEnd}, "M"},
		{"QS", Frequency{N: 1, Unit: QuarterStart, Month: time.January}, "QS-JAN"},
		{"Q-NOV", Frequency{N: 1, Unit: QuarterEnd, Month: time.November}, "Q-NOV"},
		{"AS", Frequency{N: 1, Unit: YearStart, Month: time.January}, "AS-JAN"},
		{"A", Frequency{N: 1, Unit: YearEnd, Month: time.December}, "A-DEC"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseFrequency(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseFrequency_Invalid(t *testing.T) {
	for _, code := range []string{"", "X", "0D", "W-FOO", "Q-XYZ", "D-MON"} {
		_, err := ParseFrequency(code)
		assert.True(t, errors.Is(err, ErrInvalidFrequency), "code %q", code)
	}
}

func TestResample_DailyFillsEmptyBins(t *testing.T) {
	freq, _ := ParseFrequency("D")
	times := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		date(2024, 1, 3),
	}
	labels, means := Resample(times, [][]float64{{1, 3, 5}}, freq)

	assert.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 1, 2), date(2024, 1, 3)}, labels)
	require.Len(t, means, 1)
	assert.Equal(t, 2.0, means[0][0])
	assert.True(t, math.IsNaN(means[0][1]))
	assert.Equal(t, 5.0, means[0][2])
}

func TestResample_SkipsNaN(t *testing.T) {
	freq, _ := ParseFrequency("D")
	times := []time.Time{date(2024, 1, 1), date(2024, 1, 1)}
	_, means := Resample(times, [][]float64{{math.NaN(), 4}}, freq)
	assert.Equal(t, []float64{4}, means[0])
}

func TestResample_MinutesFromMidnight(t *testing.T) {
	freq, _ := ParseFrequency("15T")
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }
	labels, means := Resample([]time.Time{at(0, 7), at(0, 20), at(0, 50)}, [][]float64{{1, 2, 3}}, freq)

	assert.Equal(t, []time.Time{at(0, 0), at(0, 15), at(0, 30), at(0, 45)}, labels)
	assert.Equal(t, 1.0, means[0][0])
	assert.Equal(t, 2.0, means[0][1])
	assert.True(t, math.IsNaN(means[0][2]))
	assert.Equal(t, 3.0, means[0][3])
}

func TestResample_MonthEnd(t *testing.T) {
	freq, _ := ParseFrequency("M")
	times := []time.Time{date(2024, 1, 15), date(2024, 1, 20), date(2024, 3, 2)}
	labels, means := Resample(times, [][]float64{{2, 4, 9}}, freq)

	assert.Equal(t, []time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31)}, labels)
	assert.Equal(t, 3.0, means[0][0])
	assert.True(t, math.IsNaN(means[0][1]))
	assert.Equal(t, 9.0, means[0][2])
}

func TestResample_WeeklyLabelsAnchorDay(t *testing.T) {
	freq, _ := ParseFrequency("W-SUN")
	// 2024-01-01 is a Monday, 2024-01-07 a Sunday
	times := []time.Time{date(2024, 1, 1), date(2024, 1, 7), date(2024, 1, 8)}
	labels, means := Resample(times, [][]float64{{1, 3, 10}}, freq)

	assert.Equal(t, []time.Time{date(2024, 1, 7), date(2024, 1, 14)}, labels)
	assert.Equal(t, []float64{2, 10}, means[0])
}

func TestResample_QuarterStart(t *testing.T) {
	freq, _ := ParseFrequency("QS")
	labels, _ := Resample([]time.Time{date(2024, 2, 10), date(2024, 5, 1)}, [][]float64{{1, 2}}, freq)
	assert.Equal(t, []time.Time{date(2024, 1, 1), date(2024, 4, 1)}, labels)
}

func TestResample_BusinessDayFoldsWeekend(t *testing.T) {
	freq, _ := ParseFrequency("B")
	// Friday, Saturday, Monday
	times := []time.Time{date(2024, 1, 5), date(2024, 1, 6), date(2024, 1, 8)}
	labels, means := Resample(times, [][]float64{{1, 3, 7}}, freq)

	assert.Equal(t, []time.Time{date(2024, 1, 5), date(2024, 1, 8)}, labels)
	assert.Equal(t, []float64{2, 7}, means[0])
}

func TestResample_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	freq, _ := ParseFrequency("H")
	labels, _ := Resample([]time.Time{time.Date(2024, 1, 1, 9, 45, 0, 0, loc)}, [][]float64{{1}}, freq)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, loc), labels[0])
}
