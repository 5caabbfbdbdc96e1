package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-scraper/config"
	"restaurant-scraper/logger"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"
)

// CollyFetcher implements the Fetcher interface with plain HTTP requests using colly
type CollyFetcher struct {
	collector *colly.Collector
	agents    *UserAgentPool
	retries   int
	backoff   time.Duration
	log       logger.Logger
}

// NewCollyFetcher creates a new CollyFetcher instance
func NewCollyFetcher(cfg config.FetchConfig, log logger.Logger) (*CollyFetcher, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	if len(cfg.Proxies) > 0 {
		rp, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy switcher: %w", err)
		}
		c.SetProxyFunc(rp)
		log.Info("Proxy rotation enabled", logger.Int("proxy_count", len(cfg.Proxies)))
	}

	return &CollyFetcher{
		collector: c,
		agents:    NewUserAgentPool(cfg.UserAgents),
		retries:   cfg.Retries,
		backoff:   cfg.RetryBackoff,
		log:       log,
	}, nil
}

// Fetch implements the Fetcher interface.
// Failed attempts are retried with a linearly growing pause.
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cf.retries; attempt++ {
		if attempt > 0 {
			wait := cf.backoff * time.Duration(attempt)
			cf.log.Debug("Retrying fetch",
				logger.String("url", url),
				logger.Int("attempt", attempt+1),
				logger.Duration("wait", wait),
			)
			if err := sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		html, err := cf.fetchOnce(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err
		cf.log.Warn("Fetch attempt failed", logger.String("url", url), logger.Int("attempt", attempts), logger.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %s after %d attempt(s): %w", ErrFetch, url, attempts, lastErr)
}

func (cf *CollyFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	c := cf.collector.Clone()
	c.Context = ctx

	var status int
	var body []byte

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", cf.agents.Pick())
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("unexpected status code %d", status)
	}
	if len(body) == 0 {
		return "", errors.New("empty response body")
	}

	return string(body), nil
}

// Close implements the Fetcher interface
func (cf *CollyFetcher) Close() error {
	return nil
}

// sleep pauses for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
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
