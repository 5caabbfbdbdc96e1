package db

import (
	"context"
	"database/sql"
	"fmt"

	"restaurant-scraper/logger"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	log  logger.Logger
}

// New wraps an existing connection without touching the schema
func New(conn *sql.DB, log logger.Logger) *DB {
	return &DB{conn: conn, log: log}
}

// Open connects to Postgres and makes sure the schema exists
func Open(ctx context.Context, connStr string, log logger.Logger) (*DB, error) {
	if connStr == "" {
		return nil, fmt.Errorf("database URL is empty (set DATABASE_URL)")
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := New(conn, log)
	if err := db.InitSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

var schemaStatements = []struct {
	name string
	sql  string
}{
	{"scrape_requests table", `
		CREATE TABLE IF NOT EXISTS scrape_requests (
			id BIGSERIAL PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			message_id INTEGER NOT NULL,
			urls TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'created',
			url_count INTEGER NOT NULL DEFAULT 0,
			record_count INTEGER NOT NULL DEFAULT 0,
			failed_count INTEGER NOT NULL DEFAULT 0,
			sheet_name VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('created', 'in_progress', 'done', 'empty', 'failed'))
		)`},
	{"scrape_documents table", `
		CREATE TABLE IF NOT EXISTS scrape_documents (
			id BIGSERIAL PRIMARY KEY,
			request_id BIGINT NOT NULL REFERENCES scrape_requests(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{"restaurants table", `
		CREATE TABLE IF NOT EXISTS restaurants (
			id BIGSERIAL PRIMARY KEY,
			request_id BIGINT NOT NULL REFERENCES scrape_requests(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	{"requests status index", `CREATE INDEX IF NOT EXISTS idx_scrape_requests_status ON scrape_requests(status, created_at)`},
	{"documents request index", `CREATE INDEX IF NOT EXISTS idx_scrape_documents_request_id ON scrape_documents(request_id)`},
	{"restaurants request index", `CREATE INDEX IF NOT EXISTS idx_restaurants_request_id ON restaurants(request_id)`},
}

// InitSchema creates the necessary tables if they don't exist
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	db.log.Info("Database schema initialized")
	return nil
}
