package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"restaurant-scraper/config"
	"restaurant-scraper/db"
	"restaurant-scraper/export"
	"restaurant-scraper/fetcher"
	"restaurant-scraper/logger"
	"restaurant-scraper/models"
	"restaurant-scraper/parser"
	"restaurant-scraper/scraper"
)

// RequestStore is the part of the database the scheduler works with
type RequestStore interface {
	ClaimNextRequest(ctx context.Context) (*db.Request, error)
	UpdateRequestStatus(ctx context.Context, requestID int64, status string) error
	UpdateRequestCounts(ctx context.Context, requestID int64, recordCount, failedCount int) error
	UpdateRequestSheetName(ctx context.Context, requestID int64, sheetName string) error
	SaveDocumentResults(ctx context.Context, requestID int64, results []models.DocumentResult) error
	SaveRecords(ctx context.Context, requestID int64, records []models.Record) error
}

// Notifier delivers messages and files back to the requesting chat
type Notifier interface {
	Notify(chatID int64, replyTo int, text string) error
	SendFile(chatID int64, fileName string, data []byte) error
}

// SheetExporter writes a batch to a new Google Sheets tab
type SheetExporter interface {
	CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.Record) (string, int64, error)
	SheetURL(sheetID int64) string
}

// FetcherFactory creates a fetcher for a single request; it is closed when the request ends
type FetcherFactory func() (fetcher.Fetcher, error)

// Scheduler processes queued scraping requests one at a time
type Scheduler struct {
	store      RequestStore
	notifier   Notifier
	sheets     SheetExporter // optional
	newFetcher FetcherFactory
	extractor  *parser.Extractor
	batch      config.BatchConfig
	export     config.ExportConfig
	interval   time.Duration
	log        logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler; sheetExporter may be nil
func NewScheduler(cfg *config.Config, store RequestStore, notifier Notifier, sheetExporter SheetExporter, newFetcher FetcherFactory, log logger.Logger) *Scheduler {
	return &Scheduler{
		store:      store,
		notifier:   notifier,
		sheets:     sheetExporter,
		newFetcher: newFetcher,
		extractor:  parser.NewExtractor(cfg.Schema),
		batch:      cfg.Batch,
		export:     cfg.Export,
		interval:   cfg.Telegram.PollInterval,
		log:        log,
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop stops the scheduler and waits for the current request to wind down
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ProcessNext(ctx); err != nil {
				s.log.Error("Error processing request", logger.Error(err))
			}
		}
	}
}

// ProcessNext claims and processes the next queued request.
// It reports whether a request was found.
func (s *Scheduler) ProcessNext(ctx context.Context) (bool, error) {
	req, err := s.store.ClaimNextRequest(ctx)
	if err != nil {
		return false, err
	}
	if req == nil {
		return false, nil
	}

	log := s.log.With(logger.Int64("request_id", req.ID), logger.Int64("chat_id", req.ChatID))
	log.Info("Processing request")

	if err := s.process(ctx, req, log); err != nil {
		log.Error("Request failed", logger.Error(err))
		s.finish(req, db.StatusFailed, fmt.Sprintf("❌ Error processing request: %v", err), log)
	}
	return true, nil
}

func (s *Scheduler) process(ctx context.Context, req *db.Request, log logger.Logger) error {
	urls := scraper.ParseURLList(req.URLs)
	if len(urls) == 0 {
		return fmt.Errorf("the request holds no URLs")
	}

	s.notify(req, fmt.Sprintf("🔄 Processing %d URL(s)...", len(urls)), log)

	f, err := s.newFetcher()
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("Failed to close fetcher", logger.Error(err))
		}
	}()

	runner := scraper.NewRunner(f, s.extractor, s.batch.MinDelay, s.batch.MaxDelay, log)
	batch, err := runner.Run(ctx, urls, func(current, total int, url string) {
		s.notify(req, fmt.Sprintf("📄 Processing URL %d/%d: %s", current, total, url), log)
	})
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	// Persistence failures are logged; the user still gets the files
	if err := s.store.SaveDocumentResults(ctx, req.ID, batch.Results); err != nil {
		log.Warn("Failed to save document results", logger.Error(err))
	}
	if err := s.store.SaveRecords(ctx, req.ID, batch.Records); err != nil {
		log.Warn("Failed to save records", logger.Error(err))
	}
	if err := s.store.UpdateRequestCounts(ctx, req.ID, len(batch.Records), batch.Failed()); err != nil {
		log.Warn("Failed to update request counts", logger.Error(err))
	}

	if batch.Empty() {
		s.finish(req, db.StatusEmpty, "⚠️ "+strings.Join(batch.Warnings, "\n⚠️ "), log)
		return nil
	}

	if len(batch.Warnings) > 0 {
		s.notify(req, "⚠️ "+strings.Join(batch.Warnings, "\n⚠️ "), log)
	}

	if err := s.sendFiles(req, batch.Records); err != nil {
		return err
	}

	summary := fmt.Sprintf("✅ Data extraction completed! %d restaurant(s) from %d URL(s), %d failed.",
		len(batch.Records), len(urls), batch.Failed())
	if link := s.writeSheet(ctx, req, batch.Records, log); link != "" {
		summary += "\n\nView spreadsheet: " + link
	}

	s.finish(req, db.StatusDone, summary, log)
	return nil
}

// sendFiles delivers the CSV and XLSX exports
func (s *Scheduler) sendFiles(req *db.Request, records []models.Record) error {
	for _, format := range []string{export.FormatCSV, export.FormatXLSX} {
		data, err := export.Encode(format, records, s.export.SheetName)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", format, err)
		}
		name := s.export.FileName + "." + format
		if err := s.notifier.SendFile(req.ChatID, name, data); err != nil {
			return fmt.Errorf("failed to send %s: %w", name, err)
		}
	}
	return nil
}

// writeSheet exports to Google Sheets when configured and returns the tab link
func (s *Scheduler) writeSheet(ctx context.Context, req *db.Request, records []models.Record, log logger.Logger) string {
	if s.sheets == nil {
		return ""
	}

	sheetName := fmt.Sprintf("Request_%d_%s", req.ID, time.Now().Format("20060102_150405"))
	created, sheetID, err := s.sheets.CreateSheetAndWriteRecords(ctx, sheetName, records)
	if err != nil {
		log.Warn("Failed to write Google Sheet", logger.Error(err))
		return ""
	}
	if err := s.store.UpdateRequestSheetName(ctx, req.ID, created); err != nil {
		log.Warn("Failed to update sheet name", logger.Error(err))
	}
	return s.sheets.SheetURL(sheetID)
}

// finish stores the final status and tells the user.
// It uses a fresh context so a shutdown still records the outcome.
func (s *Scheduler) finish(req *db.Request, status, message string, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.UpdateRequestStatus(ctx, req.ID, status); err != nil {
		log.Error("Failed to update request status", logger.String("status", status), logger.Error(err))
	}
	s.notify(req, message, log)
}

func (s *Scheduler) notify(req *db.Request, text string, log logger.Logger) {
	if err := s.notifier.Notify(req.ChatID, req.MessageID, text); err != nil {
		log.Warn("Error sending status update", logger.Error(err))
	}
}
