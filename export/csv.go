package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"restaurant-scraper/models"
)

// WriteCSV writes records with a header row in models.Columns order
func WriteCSV(w io.Writer, records []models.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(models.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
