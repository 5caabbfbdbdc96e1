package scraper

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"restaurant-scraper/fetcher"
	"restaurant-scraper/logger"
	"restaurant-scraper/models"
	"restaurant-scraper/parser"
)

// NoDataWarning is reported once when a whole batch produced no records
const NoDataWarning = "No data was extracted. Please check the URLs and try again."

// ProgressFunc is called after each URL has been processed
type ProgressFunc func(current, total int, url string)

// Batch holds everything produced by one run over a URL list
type Batch struct {
	Records  []models.Record
	Results  []models.DocumentResult
	Warnings []string
}

// Empty reports whether the batch produced no records; empty batches must not be exported
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// Failed returns the number of URLs that failed outright
func (b *Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Status == models.StatusFailed {
			n++
		}
	}
	return n
}

// Runner fetches and extracts a list of URLs one after another
type Runner struct {
	fetcher   fetcher.Fetcher
	extractor *parser.Extractor
	minDelay  time.Duration
	maxDelay  time.Duration
	log       logger.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner that pauses a random duration in [minDelay, maxDelay] between URLs
func NewRunner(f fetcher.Fetcher, e *parser.Extractor, minDelay, maxDelay time.Duration, log logger.Logger) *Runner {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Runner{
		fetcher:   f,
		extractor: e,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		log:       log,
		sleep:     sleepContext,
	}
}

// ParseURLList splits free text into URLs, one per line, dropping blank lines
func ParseURLList(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Run processes urls sequentially. Per-URL problems become warnings and never stop the batch.
// Cancelling ctx stops the loop early; the partial batch is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, urls []string, progress ProgressFunc) (*Batch, error) {
	batch := &Batch{}
	total := len(urls)

	for i, url := range urls {
		if i > 0 {
			if err := r.sleep(ctx, r.nextDelay()); err != nil {
				return batch, err
			}
		}
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		r.log.Info("Processing URL", logger.Int("current", i+1), logger.Int("total", total), logger.String("url", url))

		res := r.process(ctx, url)
		if err := ctx.Err(); err != nil {
			// interrupted mid-fetch, not a failure of the page
			return batch, err
		}
		batch.Results = append(batch.Results, res)
		batch.Records = append(batch.Records, res.Records...)

		if warning := res.Warning(); warning != "" {
			batch.Warnings = append(batch.Warnings, warning)
			r.log.Warn("URL produced no records", logger.String("url", url), logger.String("status", string(res.Status)), logger.Error(res.Err))
		} else {
			r.log.Info("Extracted records", logger.String("url", url), logger.Int("count", len(res.Records)))
		}

		if progress != nil {
			progress(i+1, total, url)
		}
	}

	if batch.Empty() {
		batch.Warnings = append(batch.Warnings, NoDataWarning)
	}

	return batch, nil
}

// process fetches and extracts a single URL
func (r *Runner) process(ctx context.Context, url string) models.DocumentResult {
	html, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return models.DocumentResult{URL: url, Status: models.StatusFailed, Err: err}
	}
	return r.extractor.Extract(html, url)
}

// nextDelay draws the polite pause before the next fetch
func (r *Runner) nextDelay() time.Duration {
	spread := r.maxDelay - r.minDelay
	if spread <= 0 {
		return r.minDelay
	}
	return r.minDelay + rand.N(spread+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
