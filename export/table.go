package export

import (
	"io"

	"restaurant-scraper/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints records as a console table
func RenderTable(w io.Writer, records []models.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(models.Columns))
	for i, c := range models.Columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range records {
		t.AppendRow(table.Row{r.Title, r.URL, r.Name, r.Address, r.City, r.Country})
	}
	t.AppendFooter(table.Row{"", "", "TOTAL", len(records)})

	t.Render()
}
