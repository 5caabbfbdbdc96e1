package fetcher

import (
	"context"
	"errors"
	"fmt"

	"restaurant-scraper/config"
	"restaurant-scraper/logger"
)

// ErrFetch wraps every transport failure: timeouts, refused connections, non-2xx responses
var ErrFetch = errors.New("fetch failed")

// Fetcher defines the contract for fetching implementations
type Fetcher interface {
	// Fetch retrieves the raw HTML of a single page
	Fetch(ctx context.Context, url string) (string, error)
	// Close releases any resources held by the fetcher
	Close() error
}

// New creates the fetcher selected by cfg.Mode
func New(cfg config.FetchConfig, log logger.Logger) (Fetcher, error) {
	switch cfg.Mode {
	case config.ModeHTTP, "":
		return NewCollyFetcher(cfg, log)
	case config.ModeBrowser:
		return NewRodFetcher(cfg, log)
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.Mode)
	}
}
