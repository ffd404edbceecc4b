package forecastprep

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Unit is the base period of a Frequency.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	BusinessDay
	Week
	MonthStart
	MonthEnd
	QuarterStart
	QuarterEnd
	YearStart
	YearEnd
)

var weekdayCodes = []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

var monthCodes = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// Frequency is a parsed period code such as "D", "15T", "W-SUN" or "QS-JAN".
type Frequency struct {
	// Multiple of the unit, >= 1
	N    int
	Unit Unit
	// Anchor weekday for Week
	Weekday time.Weekday
	// Anchor month for quarters and years: the starting month for the
	// start-labelled units, the ending month for the end-labelled ones
	Month time.Month
}

// ParseFrequency reads a period code.
func ParseFrequency(code string) (Frequency, error) {
	s := strings.TrimSpace(code)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	f := Frequency{N: 1}
	if i > 0 {
		n, err := strconv.Atoi(s[:i])
		if err != nil || n <= 0 {
			return Frequency{}, fmt.Errorf("%q: %w", code, ErrInvalidFrequency)
		}
		f.N = n
	}
	base, anchor, _ := strings.Cut(strings.ToUpper(s[i:]), "-")

	switch base {
	case "S":
		f.Unit = Second
	case "T", "MIN":
		f.Unit = Minute
	case "H":
		f.Unit = Hour
	case "D":
		f.Unit = Day
	case "B":
		f.Unit = BusinessDay
	case "W":
		f.Unit, f.Weekday = Week, time.Sunday
	case "MS":
		f.Unit = MonthStart
	case "M", "ME":
		f.Unit = MonthEnd
	case "QS":
		f.Unit, f.Month = QuarterStart, time.January
	case "Q", "QE":
		f.Unit, f.Month = QuarterEnd, time.December
	case "AS", "YS":
		f.Unit, f.Month = YearStart, time.January
	case "A", "Y", "YE":
		f.Unit, f.Month = YearEnd, time.December
	default:
		return Frequency{}, fmt.Errorf("%q: %w", code, ErrInvalidFrequency)
	}

	if anchor == "" {
		return f, nil
	}
	switch f.Unit {
	case Week:
		k := indexOf(weekdayCodes, anchor)
		if k < 0 {
			return Frequency{}, fmt.Errorf("%q: unknown weekday %q: %w", code, anchor, ErrInvalidFrequency)
		}
		f.Weekday = time.Weekday(k)
	case QuarterStart, QuarterEnd, YearStart, YearEnd:
		k := indexOf(monthCodes, anchor)
		if k < 0 {
			return Frequency{}, fmt.Errorf("%q: unknown month %q: %w", code, anchor, ErrInvalidFrequency)
		}
		f.Month = time.Month(k + 1)
	default:
		return Frequency{}, fmt.Errorf("%q: unit takes no anchor: %w", code, ErrInvalidFrequency)
	}
	return f, nil
}

// String renders the canonical period code.
func (f Frequency) String() string {
	var code string
	switch f.Unit {
	case Second:
		code = "S"
	case Minute:
		code = "T"
	case Hour:
		code = "H"
	case Day:
		code = "D"
	case BusinessDay:
		code = "B"
	case Week:
		code = "W-" + weekdayCodes[f.Weekday]
	case MonthStart:
		code = "MS"
	case MonthEnd:
		code = "M"
	case QuarterStart:
		code = "QS-" + monthCodes[f.Month-1]
	case QuarterEnd:
		code = "Q-" + monthCodes[f.Month-1]
	case YearStart:
		code = "AS-" + monthCodes[f.Month-1]
	case YearEnd:
		code = "A-" + monthCodes[f.Month-1]
	}
	if f.N > 1 {
		return strconv.Itoa(f.N) + code
	}
	return code
}

// wall moves t to UTC keeping its wall clock, so bin arithmetic ignores
// zone offsets.
func wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func unwall(w time.Time, loc *time.Location) time.Time {
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 { return -floorDiv(-a, b) }

func epochDay(w time.Time) int64 { return floorDiv(w.Unix(), 86400) }

func monthIndex(w time.Time) int64 { return int64(w.Year())*12 + int64(w.Month()) - 1 }

func lastOfMonth(mi int64) time.Time {
	return time.Date(int(floorDiv(mi, 12)), time.Month(mi-floorDiv(mi, 12)*12+1)+1, 0, 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(mi int64) time.Time {
	return time.Date(int(floorDiv(mi, 12)), time.Month(mi-floorDiv(mi, 12)*12+1), 1, 0, 0, 0, 0, time.UTC)
}

// ordinal numbers the unit period holding t. Consecutive periods have
// consecutive ordinals.
func (f Frequency) ordinal(t time.Time) int64 {
	w := wall(t)
	switch f.Unit {
	case Second:
		return floorDiv(w.Unix(), 1)
	case Minute:
		return floorDiv(w.Unix(), 60)
	case Hour:
		return floorDiv(w.Unix(), 3600)
	case Day:
		return epochDay(w)
	case BusinessDay:
		// 1970-01-01 was a Thursday; shift so Monday is 0
		s := epochDay(w) + 3
		week, wd := floorDiv(s, 7), s-floorDiv(s, 7)*7
		if wd > 4 {
			wd = 4
		}
		return week*5 + wd
	case Week:
		ref := int64(-3 + (int(f.Weekday)+6)%7)
		return ceilDiv(epochDay(w)-ref, 7)
	case MonthStart, MonthEnd:
		return monthIndex(w)
	case QuarterStart:
		return floorDiv(monthIndex(w)-int64(f.Month-1), 3)
	case QuarterEnd:
		return ceilDiv(monthIndex(w)-int64(f.Month-1), 3)
	case YearStart:
		return floorDiv(monthIndex(w)-int64(f.Month-1), 12)
	case YearEnd:
		return ceilDiv(monthIndex(w)-int64(f.Month-1), 12)
	}
	return 0
}

// label returns the timestamp naming period ord.
func (f Frequency) label(ord int64, loc *time.Location) time.Time {
	var w time.Time
	switch f.Unit {
	case Second:
		w = time.Unix(ord, 0).UTC()
	case Minute:
		w = time.Unix(ord*60, 0).UTC()
	case Hour:
		w = time.Unix(ord*3600, 0).UTC()
	case Day:
		w = time.Unix(ord*86400, 0).UTC()
	case BusinessDay:
		week, wd := floorDiv(ord, 5), ord-floorDiv(ord, 5)*5
		w = time.Unix((week*7+wd-3)*86400, 0).UTC()
	case Week:
		ref := int64(-3 + (int(f.Weekday)+6)%7)
		w = time.Unix((ref+ord*7)*86400, 0).UTC()
	case MonthStart:
		w = firstOfMonth(ord)
	case MonthEnd:
		w = lastOfMonth(ord)
	case QuarterStart:
		w = firstOfMonth(ord*3 + int64(f.Month-1))
	case QuarterEnd:
		w = lastOfMonth(ord*3 + int64(f.Month-1))
	case YearStart:
		w = firstOfMonth(ord*12 + int64(f.Month-1))
	case YearEnd:
		w = lastOfMonth(ord*12 + int64(f.Month-1))
	}
	return unwall(w, loc)
}

// origin is the ordinal multiples of N are counted from. Sub-daily bins
// start at midnight of the first timestamp.
func (f Frequency) origin(first time.Time) int64 {
	switch f.Unit {
	case Second, Minute, Hour:
		y, m, d := first.Date()
		return f.ordinal(time.Date(y, m, d, 0, 0, 0, 0, first.Location()))
	}
	return f.ordinal(first)
}

// Resample buckets every series in values by the timestamps in times and
// averages each bucket, skipping NaN. The result covers every bucket from
// the first to the last; empty buckets hold NaN.
func Resample(times []time.Time, values [][]float64, freq Frequency) ([]time.Time, [][]float64) {
	if len(times) == 0 {
		out := make([][]float64, len(values))
		return nil, out
	}
	n := int64(freq.N)
	if n < 1 {
		n = 1
	}
	first := times[0]
	for _, t := range times[1:] {
		if t.Before(first) {
			first = t
		}
	}
	loc := first.Location()
	org := freq.origin(first)

	buckets := make([]int64, len(times))
	lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
	for i, t := range times {
		b := floorDiv(freq.ordinal(t)-org, n)
		buckets[i] = b
		lo, hi = min(lo, b), max(hi, b)
	}

	size := int(hi - lo + 1)
	labels := make([]time.Time, size)
	for k := range labels {
		labels[k] = freq.label(org+(lo+int64(k))*n, loc)
	}

	out := make([][]float64, len(values))
	for s, series := range values {
		members := make([][]float64, size)
		for i, b := range buckets {
			if v := series[i]; !math.IsNaN(v) {
				members[b-lo] = append(members[b-lo], v)
			}
		}
		means := make([]float64, size)
		for k, m := range members {
			if len(m) == 0 {
				means[k] = math.NaN()
				continue
			}
			means[k] = stat.Mean(m, nil)
		}
		out[s] = means
	}
	return labels, out
}

// sortedUnique sorts timestamps and drops duplicates.
func sortedUnique(times []time.Time) []time.Time {
	ts := append([]time.Time(nil), times...)
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	out := ts[:0]
	for i, t := range ts {
		if i > 0 && t.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
