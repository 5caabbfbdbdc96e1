package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"restaurant-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sample = []models.Record{
	{Title: "Best Eats", URL: "https://example.com/a", Name: "Luigi's", Address: "12 Main St", City: "Springfield", Country: "USA"},
	{Title: "Best Eats", URL: "https://example.com/a", Name: `Bar "Central", Inc`},
	{Title: "Best Eats", URL: "https://example.com/a", Name: "Two\nLines", Address: "1 Quay"},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))

	expected := "TITLE,URL,RESTAURANT,ADDRESS,CITY,COUNTRY\n" +
		"Best Eats,https://example.com/a,Luigi's,12 Main St,Springfield,USA\n" +
		"Best Eats,https://example.com/a,\"Bar \"\"Central\"\", Inc\",,,\n" +
		"Best Eats,https://example.com/a,\"Two\nLines\",1 Quay,,\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteCSV_HeaderOnlyForNoRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "TITLE,URL,RESTAURANT,ADDRESS,CITY,COUNTRY\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, models.Columns, rows[0])
	assert.Equal(t, sample[0].Values(), rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 3)
	assert.Equal(t, `Bar "Central", Inc`, rows[2][2])
	require.GreaterOrEqual(t, len(rows[3]), 4)
	assert.Equal(t, "Two\nLines", rows[3][2])
	assert.Equal(t, "1 Quay", rows[3][3])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv by extension", func(t *testing.T) {
		path := filepath.Join(dir, "out.CSV")
		require.NoError(t, WriteFile(path, sample[:1], ""))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Luigi's,12 Main St,Springfield,USA")
	})

	t.Run("xlsx by extension", func(t *testing.T) {
		path := filepath.Join(dir, "out.xlsx")
		require.NoError(t, WriteFile(path, sample, "Guide"))
		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{"Guide"}, f.GetSheetList())
	})

	t.Run("unknown extension", func(t *testing.T) {
		err := WriteFile(filepath.Join(dir, "out.json"), sample, "")
		assert.Error(t, err)
	})
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sample[:1])

	out := buf.String()
	for _, want := range append(models.Columns, "Luigi's", "Springfield", "TOTAL") {
		assert.Contains(t, out, want)
	}
}
