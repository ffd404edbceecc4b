package forecastprep

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ToNormalized reshapes a wide table into the unique_id/ds/y format.
//
// When real grouping columns are set, every group is resampled at
// s.Frequency with mean aggregation (the target and exogVars alike).
// Grouping values are joined with "/" into unique_id; a single grouping
// column is used as is, and no grouping yields the constant id "1".
// The result holds exactly unique_id, ds, y, exogVars... in that order.
func ToNormalized(f *Frame, s Settings, exogVars ...string) (*Frame, error) {
	out := f.Copy()
	if s.grouped() {
		freq, err := ParseFrequency(s.Frequency)
		if err != nil {
			return nil, err
		}
		out, err = resampleGroups(out, s, freq, exogVars)
		if err != nil {
			return nil, err
		}
	}

	rename := map[string]string{s.Target: ColY, s.OrderBy: ColDS}
	switch {
	case len(s.GroupBy) > 1:
		parts := make([][]string, len(s.GroupBy))
		for k, col := range s.GroupBy {
			vals, err := out.Strings(col)
			if err != nil {
				return nil, err
			}
			parts[k] = vals
		}
		ids := make([]any, out.Len())
		for i := range ids {
			row := make([]string, len(parts))
			for k := range parts {
				row[k] = parts[k][i]
			}
			ids[i] = strings.Join(row, IDSeparator)
		}
		if err := out.AddColumn(ColUniqueID, ids); err != nil {
			return nil, err
		}
	case len(s.GroupBy) == 1:
		rename[s.GroupBy[0]] = ColUniqueID
	}
	out = out.Rename(rename)

	n := out.Len()
	if !out.HasColumn(ColUniqueID) {
		ids := make([]any, n)
		for i := range ids {
			ids[i] = "1"
		}
		if err := out.AddColumn(ColUniqueID, ids); err != nil {
			return nil, err
		}
	} else {
		ids, _ := out.Strings(ColUniqueID)
		if err := out.AddColumn(ColUniqueID, stringCells(ids)); err != nil {
			return nil, err
		}
	}

	ds, err := out.Times(ColDS)
	if err != nil {
		return nil, fmt.Errorf("order column %q: %w", s.OrderBy, err)
	}
	if err := out.AddColumn(ColDS, timeCells(ds)); err != nil {
		return nil, err
	}
	y, err := out.Floats(ColY)
	if err != nil {
		return nil, fmt.Errorf("target column %q: %w", s.Target, err)
	}
	if err := out.AddColumn(ColY, floatCells(y)); err != nil {
		return nil, err
	}

	return out.Select(append([]string{ColUniqueID, ColDS, ColY}, exogVars...)...)
}

type group struct {
	key  []any
	rows []int
}

// resampleGroups splits rows by the grouping columns, sorted by key,
// resamples each group's target and exogenous columns onto freq and
// concatenates the groups.
func resampleGroups(f *Frame, s Settings, freq Frequency, exogVars []string) (*Frame, error) {
	keyCols := make([][]any, len(s.GroupBy))
	for k, col := range s.GroupBy {
		v, ok := f.Column(col)
		if !ok {
			return nil, fmt.Errorf("group_by %q: %w", col, ErrUnknownColumn)
		}
		keyCols[k] = v
	}
	times, err := f.Times(s.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("order column %q: %w", s.OrderBy, err)
	}
	valueCols := append([]string{s.Target}, exogVars...)
	series := make([][]float64, len(valueCols))
	for k, col := range valueCols {
		if series[k], err = f.Floats(col); err != nil {
			return nil, err
		}
	}

	groups := make(map[string]*group)
	var order []*group
rows:
	for i := 0; i < f.Len(); i++ {
		key := make([]any, len(keyCols))
		names := make([]string, len(keyCols))
		for k, col := range keyCols {
			if col[i] == nil {
				continue rows
			}
			key[k] = col[i]
			names[k] = toString(col[i])
		}
		id := strings.Join(names, "\x00")
		g, ok := groups[id]
		if !ok {
			g = &group{key: key}
			groups[id] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		for k := range order[a].key {
			if c := compareCells(order[a].key[k], order[b].key[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	cols := append([]string{s.OrderBy}, valueCols...)
	cols = append(cols, s.GroupBy...)
	parts := make([]*Frame, 0, len(order))
	for _, g := range order {
		gt := make([]time.Time, len(g.rows))
		gv := make([][]float64, len(valueCols))
		for k := range gv {
			gv[k] = make([]float64, len(g.rows))
		}
		for j, i := range g.rows {
			gt[j] = times[i]
			for k := range gv {
				gv[k][j] = series[k][i]
			}
		}
		labels, means := Resample(gt, gv, freq)
		gf := NewFrame(cols...)
		for b, label := range labels {
			row := map[string]any{s.OrderBy: label}
			for k, col := range valueCols {
				row[col] = means[k][b]
			}
			for k, col := range s.GroupBy {
				row[col] = g.key[k]
			}
			gf.AppendRow(row)
		}
		parts = append(parts, gf)
	}
	if len(parts) == 0 {
		return NewFrame(cols...), nil
	}
	return Concat(parts...), nil
}

// FromNormalized maps a normalized (results) table back to the caller's
// schema: unique_id is split on "/" into the grouping columns and ds is
// renamed to the order column. A unique_id row index is read like a
// column. Ids that were not joined with the same separator and column
// count produce a meaningless split rather than an error.
func FromNormalized(f *Frame, s Settings) (*Frame, error) {
	var out *Frame
	if !f.HasColumn(ColUniqueID) && f.Index() != nil {
		out = f.ResetIndex(ColUniqueID)
	} else {
		out = f.Copy()
		out.index = nil
	}
	if !out.HasColumn(ColUniqueID) {
		return nil, fmt.Errorf("drop %q: %w", ColUniqueID, ErrUnknownColumn)
	}

	ids, err := out.Strings(ColUniqueID)
	if err != nil {
		return nil, err
	}
	switch {
	case len(s.GroupBy) > 1:
		split := make([][]string, len(ids))
		for i, id := range ids {
			split[i] = strings.Split(id, IDSeparator)
		}
		for k, col := range s.GroupBy {
			cells := make([]any, len(ids))
			for i, parts := range split {
				if k < len(parts) {
					cells[i] = parts[k]
				} else {
					cells[i] = ""
				}
			}
			if err := out.AddColumn(col, cells); err != nil {
				return nil, err
			}
		}
	case len(s.GroupBy) == 1:
		if err := out.AddColumn(s.GroupBy[0], stringCells(ids)); err != nil {
			return nil, err
		}
	}

	out = out.Drop(ColUniqueID)
	if s.OrderBy != "" {
		out = out.Rename(map[string]string{ColDS: s.OrderBy})
	}
	return out, nil
}

func stringCells(v []string) []any {
	out := make([]any, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}

func floatCells(v []float64) []any {
	out := make([]any, len(v))
	for i, x := range v {
		out[i] = x
	}
	return out
}

func timeCells(v []time.Time) []any {
	out := make([]any, len(v))
	for i, t := range v {
		out[i] = t
	}
	return out
}
