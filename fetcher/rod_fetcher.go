package fetcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"restaurant-scraper/config"
	"restaurant-scraper/logger"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodFetcher implements the Fetcher interface using rod (headless browser)
type RodFetcher struct {
	browser      *rod.Browser
	agents       *UserAgentPool
	timeout      time.Duration
	settle       time.Duration
	waitSelector string
	log          logger.Logger
}

// Common Chrome/Chromium install locations, checked in order
var browserPaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// NewRodFetcher launches a headless browser and connects to it
func NewRodFetcher(cfg config.FetchConfig, log logger.Logger) (*RodFetcher, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false). // Disable leakless to avoid antivirus issues
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-sync").
		Set("disable-translate").
		Set("mute-audio")

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			log.Warn("Failed to create browser data directory", logger.String("dir", cfg.DataDir), logger.Error(err))
		} else {
			l = l.UserDataDir(cfg.DataDir)
		}
	}

	if bin := findBrowser(cfg.BrowserBin); bin != "" {
		l = l.Bin(bin)
	}

	// Chromium takes a single proxy per process
	if len(cfg.Proxies) > 0 {
		l = l.Proxy(cfg.Proxies[0])
		if len(cfg.Proxies) > 1 {
			log.Warn("Browser mode uses only the first configured proxy", logger.Int("proxy_count", len(cfg.Proxies)))
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodFetcher{
		browser:      browser,
		agents:       NewUserAgentPool(cfg.UserAgents),
		timeout:      cfg.Timeout,
		settle:       cfg.Settle,
		waitSelector: cfg.WaitSelector,
		log:          log,
	}, nil
}

// findBrowser returns the configured binary, or the first installed one found
func findBrowser(configured string) string {
	if configured != "" {
		return configured
	}
	for _, path := range browserPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Fetch implements the Fetcher interface
func (rf *RodFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := rf.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("%w: failed to open page: %w", ErrFetch, err)
	}
	defer page.Close()

	ua := rf.agents.Pick()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		return "", fmt.Errorf("%w: failed to set user agent: %w", ErrFetch, err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, rf.timeout)
	defer cancel()
	loading := page.Context(loadCtx)

	if err := loading.Navigate(url); err != nil {
		return "", fmt.Errorf("%w: %s: failed to navigate: %w", ErrFetch, url, err)
	}
	if err := loading.WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: %s: page did not load: %w", ErrFetch, url, err)
	}

	if rf.waitSelector != "" {
		if _, err := loading.Element(rf.waitSelector); err != nil {
			return "", fmt.Errorf("%w: %s: %q did not appear within %s: %w", ErrFetch, url, rf.waitSelector, rf.timeout, err)
		}
	}

	// Give client-side scripts time to finish rendering the listing
	if err := sleep(ctx, rf.settle); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: %s: failed to get HTML: %w", ErrFetch, url, err)
	}

	rf.log.Debug("Rendered page", logger.String("url", url), logger.Int("bytes", len(html)))
	return html, nil
}

// Close closes the browser
func (rf *RodFetcher) Close() error {
	if rf.browser != nil {
		return rf.browser.Close()
	}
	return nil
}
