package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"restaurant-scraper/models"
)

// Supported file formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Encode serializes records in the given format
func Encode(format string, records []models.Record, sheetName string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatCSV:
		err = WriteCSV(&buf, records)
	case FormatXLSX:
		err = WriteXLSX(&buf, records, sheetName)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes records to path, picking the format from the file extension
func WriteFile(path string, records []models.Record, sheetName string) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	data, err := Encode(format, records, sheetName)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
