package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-scraper/bot"
	"restaurant-scraper/config"
	"restaurant-scraper/db"
	"restaurant-scraper/export"
	"restaurant-scraper/fetcher"
	"restaurant-scraper/logger"
	"restaurant-scraper/parser"
	"restaurant-scraper/scheduler"
	"restaurant-scraper/scraper"
	"restaurant-scraper/sheets"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var errNoURLs = errors.New("please enter at least one URL")

func main() {
	// Parse command line arguments
	urlsPath := flag.String("urls", "", "File with one URL per line, - for stdin (if not provided, runs as Telegram bot)")
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	mode := flag.String("mode", "", "Fetch mode: http or browser (overrides config)")
	scope := flag.String("scope", "", "Listing zone search mode: scoped or unscoped (overrides config)")
	csvPath := flag.String("csv", "", "Write results to this CSV file")
	xlsxPath := flag.String("xlsx", "", "Write results to this XLSX file")
	spreadsheetURL := flag.String("spreadsheet", "", "Google Sheets URL (overrides config and SPREADSHEET_URL)")
	credentialsPath := flag.String("credentials", "", "Path to Google service account credentials JSON file (or use GOOGLE_SHEETS_CREDENTIALS env var)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *mode != "" {
		cfg.Fetch.Mode = *mode
	}
	if *scope != "" {
		cfg.Schema.Scope = *scope
	}
	if *spreadsheetURL != "" {
		cfg.Sheets.SpreadsheetURL = *spreadsheetURL
	}
	if *credentialsPath != "" {
		cfg.Sheets.CredentialsPath = *credentialsPath
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid options: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// If a URL list is provided, run in CLI mode
	if *urlsPath != "" {
		err = runCLIMode(ctx, cfg, log, *urlsPath, *csvPath, *xlsxPath)
	} else {
		err = runTelegramBot(ctx, cfg, log)
	}
	if err != nil {
		log.Error("Exiting with error", logger.Error(err))
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}

// runCLIMode processes one batch and prints the results
func runCLIMode(ctx context.Context, cfg *config.Config, log logger.Logger, urlsPath, csvPath, xlsxPath string) error {
	urls, err := readURLs(urlsPath)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errNoURLs
	}

	f, err := fetcher.New(cfg.Fetch, log)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("Failed to close fetcher", logger.Error(err))
		}
	}()

	runner := scraper.NewRunner(f, parser.NewExtractor(cfg.Schema), cfg.Batch.MinDelay, cfg.Batch.MaxDelay, log)
	batch, err := runner.Run(ctx, urls, func(current, total int, url string) {
		fmt.Fprintf(os.Stderr, "Processing URL %d/%d: %s\n", current, total, url)
	})
	if err != nil {
		log.Warn("Batch interrupted, showing partial results", logger.Error(err))
	}

	for _, warning := range batch.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	if batch.Empty() {
		return nil
	}

	export.RenderTable(os.Stdout, batch.Records)

	for _, path := range []string{csvPath, xlsxPath} {
		if path == "" {
			continue
		}
		if err := export.WriteFile(path, batch.Records, cfg.Export.SheetName); err != nil {
			return err
		}
		fmt.Printf("Wrote %d restaurant(s) to %s\n", len(batch.Records), path)
	}

	if cfg.Sheets.SpreadsheetURL == "" {
		return nil
	}

	writer, err := sheets.NewWriter(ctx, cfg.Sheets.SpreadsheetURL, cfg.Sheets.CredentialsPath, log)
	if err != nil {
		log.Warn("Failed to initialize Google Sheets writer", logger.Error(err))
		return nil
	}

	sheetName := fmt.Sprintf("CLI_%s", time.Now().Format("20060102_150405"))
	_, sheetID, err := writer.CreateSheetAndWriteRecords(ctx, sheetName, batch.Records)
	if err != nil {
		log.Warn("Failed to write to Google Sheets", logger.Error(err))
		return nil
	}
	fmt.Printf("\nSuccessfully wrote %d restaurant(s) to Google Sheets: %s\n", len(batch.Records), writer.SheetURL(sheetID))
	return nil
}

// readURLs reads the URL list from a file, or stdin when path is "-"
func readURLs(path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return scraper.ParseURLList(string(data)), nil
}

// runTelegramBot runs the scraper as a Telegram bot until ctx is canceled
func runTelegramBot(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if cfg.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	database, err := db.Open(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer database.Close()
	log.Info("Database initialized successfully")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	log.Info("Authorized on account", logger.String("username", api.Self.UserName))

	// Google Sheets export is optional for the bot
	var sheetExporter scheduler.SheetExporter
	if cfg.Sheets.SpreadsheetURL != "" {
		writer, err := sheets.NewWriter(ctx, cfg.Sheets.SpreadsheetURL, cfg.Sheets.CredentialsPath, log)
		if err != nil {
			log.Warn("Google Sheets export disabled", logger.Error(err))
		} else {
			sheetExporter = writer
			log.Info("Google Sheets writer initialized", logger.String("spreadsheet", cfg.Sheets.SpreadsheetURL))
		}
	}

	tg := bot.New(api, database, cfg.Telegram.AllowedUsers, cfg.Sheets.SpreadsheetURL, log)

	// A fetcher (and its browser, in browser mode) lives for one request only
	newFetcher := func() (fetcher.Fetcher, error) {
		return fetcher.New(cfg.Fetch, log)
	}

	sched := scheduler.NewScheduler(cfg, database, tg, sheetExporter, newFetcher, log)
	sched.Start(ctx)
	defer sched.Stop()
	log.Info("Scheduler started", logger.Duration("poll_interval", cfg.Telegram.PollInterval))

	return tg.Run(ctx)
}
