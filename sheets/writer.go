package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"restaurant-scraper/logger"
	"restaurant-scraper/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// maxSheetNameLen is the longest tab title Google Sheets accepts
const maxSheetNameLen = 100

// Writer handles writing records to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	log           logger.Logger
}

// NewWriter creates a new Google Sheets writer.
// Credentials come from credentialsPath, or from GOOGLE_SHEETS_CREDENTIALS when the path is empty.
func NewWriter(ctx context.Context, spreadsheetURL, credentialsPath string, log logger.Logger) (*Writer, error) {
	spreadsheetID := ExtractSpreadsheetID(spreadsheetURL)
	if spreadsheetID == "" {
		return nil, fmt.Errorf("could not find a spreadsheet ID in %q", spreadsheetURL)
	}

	credsJSON, err := readCredentials(credentialsPath)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// readCredentials loads and checks a service account key
func readCredentials(credentialsPath string) ([]byte, error) {
	var credsJSON []byte

	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		credsJSON = []byte(credsEnv)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	return credsJSON, nil
}

// CreateSheetAndWriteRecords creates a new tab at the beginning of the spreadsheet and writes records to it.
// Returns the final tab name and its sheet ID (gid).
func (w *Writer) CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.Record) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
					},
				},
			},
		},
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	w.log.Info("Created sheet", logger.String("sheet", sheetName), logger.Int64("sheet_id", sheetID))

	valueRange := &sheets.ValueRange{Values: recordValues(records)}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, a1Range(sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	w.log.Info("Wrote records to sheet", logger.String("sheet", sheetName), logger.Int("count", len(records)))
	return sheetName, sheetID, nil
}

// SheetURL returns a link that opens the given tab
func (w *Writer) SheetURL(sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", w.spreadsheetID, sheetID)
}

// recordValues builds the header row followed by one row per record
func recordValues(records []models.Record) [][]interface{} {
	values := make([][]interface{}, 0, len(records)+1)
	values = append(values, toRow(models.Columns))
	for _, r := range records {
		values = append(values, toRow(r.Values()))
	}
	return values
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// a1Range addresses the top-left cell of a tab, quoting the name for A1 notation
func a1Range(sheetName string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!A1"
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] :
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", ":"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	if runes := []rune(result); len(runes) > maxSheetNameLen {
		result = string(runes[:maxSheetNameLen])
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func ExtractSpreadsheetID(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}

	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		if strings.ContainsAny(url, "/?#") {
			return ""
		}
		return url
	}

	idPart := parts[1]
	if idx := strings.IndexAny(idPart, "/?#"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
