package forecastprep

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// LoadTable reads a wide table from a .csv or .xlsx file:
//
//   - The first row is a header with column names
//   - Cells that parse as numbers become float64, empty cells nil,
//     everything else stays a string
//   - For .xlsx only the first sheet is read
func LoadTable(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a table from CSV.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	// 1. Read header row
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header")
	}

	// 2. Read each data row
	var records [][]string
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		// Skip completely empty lines
		if len(record) == 1 && record[0] == "" {
			continue
		}
		records = append(records, record)
	}
	return frameFromRecords(header, records)
}

func loadXLSX(path string) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty header in %s", path)
	}

	// excelize trims trailing empty cells, so pad rows to the header width
	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if len(r) == 0 {
			continue
		}
		if len(r) < len(header) {
			r = append(r, make([]string, len(header)-len(r))...)
		}
		records = append(records, r)
	}
	return frameFromRecords(header, records)
}

func frameFromRecords(header []string, records [][]string) (*Frame, error) {
	K := len(header)
	cols := make([][]any, K)
	for i, record := range records {
		if len(record) != K {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, K, len(record))
		}
		for j, s := range record {
			cols[j] = append(cols[j], parseCell(s))
		}
	}

	f := NewFrame()
	for j, name := range header {
		if f.HasColumn(name) {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if cols[j] == nil {
			cols[j] = []any{}
		}
		if err := f.AddColumn(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// WriteCSV writes a frame as CSV. An index is written as a leading
// unique_id column.
func WriteCSV(w io.Writer, f *Frame) error {
	if f.Index() != nil && !f.HasColumn(ColUniqueID) {
		f = f.ResetIndex(ColUniqueID)
	}
	cw := csv.NewWriter(w)
	cols := f.Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(cols))
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		for j, c := range cols {
			record[j] = formatCell(row[c])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return formatTime(x)
	}
	return toString(v)
}
