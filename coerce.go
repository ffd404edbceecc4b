package forecastprep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// CoercionError reports a cell that could not be read as the wanted type.
type CoercionError struct {
	Column string
	Row    int
	Value  any
	Kind   string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot read %v (%T) as %s", e.Column, e.Row, e.Value, e.Value, e.Kind)
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// Layouts tried after cast's own list, which lacks slash dates and
// minute precision
var extraTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
}

// toFloat reads nil and blank strings as NaN.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return math.NaN(), nil
		}
		v = x
	case time.Time, *time.Time:
		return 0, ErrCoercion
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCoercion, err)
	}
	return f, nil
}

// toTime only reads strings and times. Numbers are rejected rather than
// taken as unix seconds.
func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	case string:
		s := strings.TrimSpace(x)
		if t, err := cast.ToTimeInDefaultLocationE(s, time.UTC); err == nil {
			return t, nil
		}
		for _, layout := range extraTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, ErrCoercion
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return "nan"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return formatTime(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// compareCells orders grouping keys: numbers numerically, times
// chronologically, anything else by its string form.
func compareCells(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		fa, errA := toFloat(a)
		fb, errB := toFloat(b)
		if errA == nil && errB == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(toString(a), toString(b))
}
