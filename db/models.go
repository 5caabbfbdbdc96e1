package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant-scraper/models"
)

// Request statuses
const (
	StatusCreated    = "created"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusEmpty      = "empty" // finished, but no records were extracted
	StatusFailed     = "failed"
)

// Request represents a queued scraping request coming from the bot
type Request struct {
	ID          int64
	ChatID      int64
	MessageID   int
	URLs        string // raw text as sent by the user
	Status      string
	URLCount    int
	RecordCount int
	FailedCount int
	SheetName   sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const requestColumns = `id, chat_id, message_id, urls, status, url_count, record_count, failed_count, sheet_name, created_at, updated_at`

func scanRequest(row *sql.Row) (*Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.ChatID, &req.MessageID, &req.URLs, &req.Status,
		&req.URLCount, &req.RecordCount, &req.FailedCount, &req.SheetName,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest queues a new scraping request
func (db *DB) CreateRequest(ctx context.Context, chatID int64, messageID int, urls string, urlCount int) (*Request, error) {
	row := db.conn.QueryRowContext(ctx, `
		INSERT INTO scrape_requests (chat_id, message_id, urls, url_count, status)
		VALUES ($1, $2, $3, $4, 'created')
		RETURNING `+requestColumns,
		chatID, messageID, urls, urlCount)

	req, err := scanRequest(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// ClaimNextRequest moves the oldest 'created' request to 'in_progress' and returns it.
// Returns nil when the queue is empty.
func (db *DB) ClaimNextRequest(ctx context.Context) (*Request, error) {
	row := db.conn.QueryRowContext(ctx, `
		UPDATE scrape_requests
		SET status = 'in_progress', updated_at = CURRENT_TIMESTAMP
		WHERE id = (
			SELECT id FROM scrape_requests
			WHERE status = 'created'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+requestColumns)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim request: %w", err)
	}
	return req, nil
}

// UpdateRequestStatus updates the status of a request
func (db *DB) UpdateRequestStatus(ctx context.Context, requestID int64, status string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE scrape_requests
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, status, requestID)
	if err != nil {
		return fmt.Errorf("failed to update request %d status: %w", requestID, err)
	}
	return nil
}

// UpdateRequestCounts stores the totals of a finished batch
func (db *DB) UpdateRequestCounts(ctx context.Context, requestID int64, recordCount, failedCount int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE scrape_requests
		SET record_count = $1, failed_count = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, recordCount, failedCount, requestID)
	if err != nil {
		return fmt.Errorf("failed to update request %d counts: %w", requestID, err)
	}
	return nil
}

// UpdateRequestSheetName records the Google Sheets tab a request was exported to
func (db *DB) UpdateRequestSheetName(ctx context.Context, requestID int64, sheetName string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE scrape_requests
		SET sheet_name = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, sheetName, requestID)
	if err != nil {
		return fmt.Errorf("failed to update request %d sheet name: %w", requestID, err)
	}
	return nil
}

// SaveDocumentResults stores the per-URL outcome of a batch in one transaction
func (db *DB) SaveDocumentResults(ctx context.Context, requestID int64, results []models.DocumentResult) error {
	return db.inTx(ctx, `
		INSERT INTO scrape_documents (request_id, position, url, status, record_count, error)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, len(results), func(stmt *sql.Stmt, i int) error {
		res := results[i]
		var errText sql.NullString
		if res.Err != nil {
			errText = sql.NullString{String: res.Err.Error(), Valid: true}
		}
		_, err := stmt.ExecContext(ctx, requestID, i+1, res.URL, string(res.Status), len(res.Records), errText)
		return err
	})
}

// SaveRecords stores the extracted records of a batch in one transaction, keeping their order
func (db *DB) SaveRecords(ctx context.Context, requestID int64, records []models.Record) error {
	return db.inTx(ctx, `
		INSERT INTO restaurants (request_id, position, title, url, name, address, city, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, len(records), func(stmt *sql.Stmt, i int) error {
		r := records[i]
		_, err := stmt.ExecContext(ctx, requestID, i+1, r.Title, r.URL, r.Name, r.Address, r.City, r.Country)
		return err
	})
}

// inTx prepares query once and executes it n times inside a transaction
func (db *DB) inTx(ctx context.Context, query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	if n == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
