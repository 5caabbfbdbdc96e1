package export

import (
	"fmt"
	"io"

	"restaurant-scraper/models"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is used when no sheet name is given
const DefaultSheetName = "Restaurants"

const columnWidth = 32

// WriteXLSX writes records to a single-sheet workbook with a header row
func WriteXLSX(w io.Writer, records []models.Record, sheetName string) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &models.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.Values()
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(models.Columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
