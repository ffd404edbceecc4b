package forecastprep

import (
	"fmt"
	"time"
)

// Frame is a small column-oriented table. Cells are untyped and coerced on
// read; the optional index holds string row labels such as unique_id.
type Frame struct {
	columns []string
	data    map[string][]any
	index   []string
	nrows   int
}

// NewFrame makes an empty frame with the given columns.
func NewFrame(columns ...string) *Frame {
	f := &Frame{data: make(map[string][]any, len(columns))}
	for _, c := range columns {
		if _, ok := f.data[c]; ok {
			continue
		}
		f.columns = append(f.columns, c)
		f.data[c] = nil
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.nrows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether name is a column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the cells of a column. The slice is shared with the frame.
func (f *Frame) Column(name string) ([]any, bool) {
	v, ok := f.data[name]
	return v, ok
}

// Index returns the row labels, or nil when the frame has no index.
func (f *Frame) Index() []string { return f.index }

// SetIndexValues replaces the row labels.
func (f *Frame) SetIndexValues(ids []string) error {
	if ids != nil && len(ids) != f.nrows {
		return fmt.Errorf("index of %d labels for %d rows: %w", len(ids), f.nrows, ErrLengthMismatch)
	}
	f.index = ids
	return nil
}

// AddColumn sets a column, replacing it in place if it already exists.
// On a frame without rows the other columns are padded with nil cells.
func (f *Frame) AddColumn(name string, values []any) error {
	if f.nrows > 0 && len(values) != f.nrows {
		if !(len(f.columns) == 1 && f.HasColumn(name)) {
			return fmt.Errorf("column %q has %d values, frame has %d rows: %w", name, len(values), f.nrows, ErrLengthMismatch)
		}
	}
	if f.nrows == 0 {
		for _, c := range f.columns {
			if c != name {
				f.data[c] = make([]any, len(values))
			}
		}
	}
	if !f.HasColumn(name) {
		f.columns = append(f.columns, name)
	}
	f.data[name] = values
	f.nrows = len(values)
	return nil
}

// InsertColumn adds a column at position pos.
func (f *Frame) InsertColumn(pos int, name string, values []any) error {
	if f.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if err := f.AddColumn(name, values); err != nil {
		return err
	}
	if pos < 0 || pos >= len(f.columns) {
		return nil
	}
	cols := f.columns[:len(f.columns)-1]
	f.columns = append(append(append([]string(nil), cols[:pos]...), name), cols[pos:]...)
	return nil
}

// AppendRow adds a row. Columns missing from values get nil.
func (f *Frame) AppendRow(values map[string]any) {
	for _, c := range f.columns {
		f.data[c] = append(f.data[c], values[c])
	}
	f.nrows++
}

// AppendIndexedRow adds a row labeled id.
func (f *Frame) AppendIndexedRow(id string, values map[string]any) {
	if f.index == nil && f.nrows > 0 {
		f.index = make([]string, f.nrows)
	}
	f.AppendRow(values)
	f.index = append(f.index, id)
}

// Row returns row i as a map.
func (f *Frame) Row(i int) map[string]any {
	row := make(map[string]any, len(f.columns))
	for _, c := range f.columns {
		row[c] = f.data[c][i]
	}
	return row
}

// Copy returns a frame with its own column slices.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]any, len(f.columns)),
		nrows:   f.nrows,
	}
	for _, c := range f.columns {
		out.data[c] = append([]any(nil), f.data[c]...)
	}
	if f.index != nil {
		out.index = append([]string(nil), f.index...)
	}
	return out
}

// Rename returns a copy with columns renamed. Renaming onto an existing
// column replaces it.
func (f *Frame) Rename(mapping map[string]string) *Frame {
	out := &Frame{data: make(map[string][]any, len(f.columns)), nrows: f.nrows}
	if f.index != nil {
		out.index = append([]string(nil), f.index...)
	}
	for _, c := range f.columns {
		name := c
		if to, ok := mapping[c]; ok {
			name = to
		}
		if _, dup := out.data[name]; !dup {
			out.columns = append(out.columns, name)
		}
		out.data[name] = append([]any(nil), f.data[c]...)
	}
	return out
}

// Select returns a copy holding only the named columns, in that order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{data: make(map[string][]any, len(names)), nrows: f.nrows}
	if f.index != nil {
		out.index = append([]string(nil), f.index...)
	}
	for _, n := range names {
		v, ok := f.data[n]
		if !ok {
			return nil, fmt.Errorf("select %q: %w", n, ErrUnknownColumn)
		}
		if _, dup := out.data[n]; dup {
			continue
		}
		out.columns = append(out.columns, n)
		out.data[n] = append([]any(nil), v...)
	}
	return out, nil
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(f.columns))
	for _, c := range f.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Filter returns the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out := NewFrame(f.columns...)
	var idx []string
	for i := 0; i < f.nrows; i++ {
		if !keep(i) {
			continue
		}
		for _, c := range f.columns {
			out.data[c] = append(out.data[c], f.data[c][i])
		}
		if f.index != nil {
			idx = append(idx, f.index[i])
		}
		out.nrows++
	}
	if f.index != nil {
		if idx == nil {
			idx = []string{}
		}
		out.index = idx
	}
	return out
}

// SetIndex moves a column into the row index.
func (f *Frame) SetIndex(name string) (*Frame, error) {
	ids, err := f.Strings(name)
	if err != nil {
		return nil, err
	}
	out := f.Drop(name)
	out.index = ids
	return out, nil
}

// ResetIndex moves the row index into a leading column called name.
// A frame without an index is returned as a copy.
func (f *Frame) ResetIndex(name string) *Frame {
	out := f.Copy()
	if f.index == nil {
		return out
	}
	cells := make([]any, len(f.index))
	for i, id := range f.index {
		cells[i] = id
	}
	out.index = nil
	out = out.Drop(name)
	_ = out.InsertColumn(0, name, cells)
	return out
}

// ids returns row identifiers: the index when present, otherwise the
// unique_id column.
func (f *Frame) ids() ([]string, bool, error) {
	if f.index != nil {
		return f.index, true, nil
	}
	if !f.HasColumn(ColUniqueID) {
		return nil, false, fmt.Errorf("frame has no index and no %q column: %w", ColUniqueID, ErrUnknownColumn)
	}
	ids, err := f.Strings(ColUniqueID)
	return ids, false, err
}

// Concat stacks frames. Columns are the union in first-seen order; cells of
// columns a frame lacks are nil.
func Concat(frames ...*Frame) *Frame {
	out := NewFrame()
	indexed := false
	for _, f := range frames {
		for _, c := range f.columns {
			if !out.HasColumn(c) {
				out.columns = append(out.columns, c)
				out.data[c] = make([]any, out.nrows)
			}
		}
		if f.index != nil {
			indexed = true
		}
	}
	var idx []string
	for _, f := range frames {
		for _, c := range out.columns {
			if v, ok := f.data[c]; ok {
				out.data[c] = append(out.data[c], v...)
			} else {
				out.data[c] = append(out.data[c], make([]any, f.nrows)...)
			}
		}
		if indexed {
			if f.index != nil {
				idx = append(idx, f.index...)
			} else {
				idx = append(idx, make([]string, f.nrows)...)
			}
		}
		out.nrows += f.nrows
	}
	if indexed {
		out.index = idx
	}
	return out
}

// Floats coerces a column to float64. Nil cells become NaN.
func (f *Frame) Floats(name string) ([]float64, error) {
	v, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	out := make([]float64, len(v))
	for i, cell := range v {
		x, err := toFloat(cell)
		if err != nil {
			return nil, &CoercionError{Column: name, Row: i, Value: cell, Kind: "float"}
		}
		out[i] = x
	}
	return out, nil
}

// Times coerces a column to time.Time.
func (f *Frame) Times(name string) ([]time.Time, error) {
	v, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	out := make([]time.Time, len(v))
	for i, cell := range v {
		t, err := toTime(cell)
		if err != nil {
			return nil, &CoercionError{Column: name, Row: i, Value: cell, Kind: "time"}
		}
		out[i] = t
	}
	return out, nil
}

// Strings renders a column as strings.
func (f *Frame) Strings(name string) ([]string, error) {
	v, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrUnknownColumn)
	}
	out := make([]string, len(v))
	for i, cell := range v {
		out[i] = toString(cell)
	}
	return out, nil
}
