package forecastprep

import (
	"sort"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// InferFrequency derives the sampling period of a time column. Regular
// calendar patterns (months, quarters, years, weeks, business days) are
// recognised first; otherwise the most common gap between successive
// timestamps is used. Anything that cannot be read as time gives def.
func InferFrequency(f *Frame, timeColumn string, def string) string {
	times, err := f.Times(timeColumn)
	if err != nil {
		return def
	}
	ts := sortedUnique(times)
	if len(ts) < 2 {
		return def
	}
	if len(ts) >= 3 {
		if freq, ok := inferRegular(ts); ok {
			return freq.String()
		}
	}
	if code, ok := deltaCode(modeDelta(ts)); ok {
		return code
	}
	return def
}

// inferRegular recognises timestamps that follow one calendar rule exactly.
func inferRegular(ts []time.Time) (Frequency, bool) {
	if f, ok := inferMonthly(ts); ok {
		return f, true
	}

	delta := ts[1].Sub(ts[0])
	uniform := true
	for i := 2; i < len(ts); i++ {
		if ts[i].Sub(ts[i-1]) != delta {
			uniform = false
			break
		}
	}
	if uniform {
		if delta%day == 0 {
			days := int(delta / day)
			if days%7 == 0 {
				return Frequency{N: days / 7, Unit: Week, Weekday: ts[0].Weekday()}, true
			}
			return Frequency{N: days, Unit: Day}, true
		}
		return fixedFrequency(delta)
	}

	if isBusinessDaily(ts) {
		return Frequency{N: 1, Unit: BusinessDay}, true
	}
	return Frequency{}, false
}

// inferMonthly matches month/quarter/year starts or ends a fixed number of
// months apart.
func inferMonthly(ts []time.Time) (Frequency, bool) {
	starts, ends := true, true
	for _, t := range ts {
		if h, m, s := t.Clock(); h != 0 || m != 0 || s != 0 || t.Nanosecond() != 0 {
			return Frequency{}, false
		}
		if t.Day() != 1 {
			starts = false
		}
		if t.AddDate(0, 0, 1).Day() != 1 {
			ends = false
		}
	}
	if !starts && !ends {
		return Frequency{}, false
	}

	step := monthIndex(ts[1]) - monthIndex(ts[0])
	if step <= 0 {
		return Frequency{}, false
	}
	for i := 2; i < len(ts); i++ {
		if monthIndex(ts[i])-monthIndex(ts[i-1]) != step {
			return Frequency{}, false
		}
	}

	first := ts[0].Month()
	switch {
	case step%12 == 0:
		if starts {
			return Frequency{N: int(step / 12), Unit: YearStart, Month: first}, true
		}
		return Frequency{N: int(step / 12), Unit: YearEnd, Month: first}, true
	case step%3 == 0:
		// both quarter rules are anchored on the Oct-Dec month of the cycle
		cycle := (int(first) - 1) % 3
		if starts {
			return Frequency{N: int(step / 3), Unit: QuarterStart, Month: time.Month(cycle + 10)}, true
		}
		return Frequency{N: int(step / 3), Unit: QuarterEnd, Month: time.Month(cycle + 10)}, true
	}
	if starts {
		return Frequency{N: int(step), Unit: MonthStart}, true
	}
	return Frequency{N: int(step), Unit: MonthEnd}, true
}

// isBusinessDaily matches consecutive weekdays with weekends skipped.
func isBusinessDaily(ts []time.Time) bool {
	for i, t := range ts {
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
		if i == 0 {
			continue
		}
		d := t.Sub(ts[i-1])
		switch {
		case d == day:
		case d == 3*day && t.Weekday() == time.Monday:
		default:
			return false
		}
	}
	return true
}

func fixedFrequency(delta time.Duration) (Frequency, bool) {
	switch {
	case delta <= 0:
		return Frequency{}, false
	case delta%time.Hour == 0:
		return Frequency{N: int(delta / time.Hour), Unit: Hour}, true
	case delta%time.Minute == 0:
		return Frequency{N: int(delta / time.Minute), Unit: Minute}, true
	case delta%time.Second == 0:
		return Frequency{N: int(delta / time.Second), Unit: Second}, true
	}
	return Frequency{}, false
}

// modeDelta returns the most frequent gap between successive timestamps.
// Ties go to the smallest gap.
func modeDelta(ts []time.Time) time.Duration {
	counts := make(map[time.Duration]int)
	for i := 1; i < len(ts); i++ {
		counts[ts[i].Sub(ts[i-1])]++
	}
	deltas := make([]time.Duration, 0, len(counts))
	for d := range counts {
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	best := deltas[0]
	for _, d := range deltas[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// deltaCode renders a fixed gap as a period code: whole days as "D",
// otherwise the largest of H, T, S dividing it.
func deltaCode(delta time.Duration) (string, bool) {
	if delta > 0 && delta%day == 0 {
		n := int(delta / day)
		if n == 1 {
			return "D", true
		}
		return strconv.Itoa(n) + "D", true
	}
	f, ok := fixedFrequency(delta)
	if !ok {
		return "", false
	}
	return f.String(), true
}
