package forecastprep

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = `region,store,date,sales
east,1,2024-01-01,1.5
east,2,2024-01-01,
west,3,2024-01-02,3
`

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "store", "date", "sales"}, f.Columns())
	require.Equal(t, 3, f.Len())

	store, _ := f.Column("store")
	assert.Equal(t, []any{1.0, 2.0, 3.0}, store)
	dates, _ := f.Column("date")
	assert.Equal(t, "2024-01-01", dates[0])
	sales, _ := f.Column("sales")
	assert.Nil(t, sales[1])
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,a\n1,2\n"))
	assert.ErrorContains(t, err, "duplicate column")
}

func TestWriteCSV_IndexAndCells(t *testing.T) {
	f := frameOf(t, []string{ColDS, ColY},
		[]any{date(2024, 1, 1), 1.5},
		[]any{date(2024, 1, 2), math.NaN()},
	)
	require.NoError(t, f.SetIndexValues([]string{"a", "b"}))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, "unique_id,ds,y\na,2024-01-01,1.5\nb,2024-01-02,\n", buf.String())
}

func TestLoadTable_CSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))

	f, err := LoadTable(path)
	require.NoError(t, err)
	norm, err := ToNormalized(f, Settings{Frequency: "D", GroupBy: []string{"region", "store"}, OrderBy: "date", Target: "sales"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, norm))
	assert.Equal(t, "unique_id,ds,y\neast/1,2024-01-01,1.5\neast/2,2024-01-01,\nwest/3,2024-01-02,3\n", buf.String())
}

func TestLoadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	wb := excelize.NewFile()
	rows := [][]any{
		{"store", "date", "sales"},
		{"a", "2024-01-01", 2.5},
		{"b", "2024-01-02", 4},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	f, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "date", "sales"}, f.Columns())
	sales, err := f.Floats("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 4}, sales)
	stores, _ := f.Strings("store")
	assert.Equal(t, []string{"a", "b"}, stores)
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
