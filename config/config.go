package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Listing zone search modes
const (
	ScopeScoped   = "scoped"   // candidates are searched inside the listing zone only
	ScopeUnscoped = "unscoped" // candidates are searched in the whole document
)

// Missing heading policies
const (
	MissingTitleFail  = "fail"  // the page fails as a whole
	MissingTitleEmpty = "empty" // records get an empty title
)

// Fetch modes
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Config is the full application configuration
type Config struct {
	Schema   Schema         `yaml:"schema"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Batch    BatchConfig    `yaml:"batch"`
	Export   ExportConfig   `yaml:"export"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Debug    bool           `yaml:"debug"`
}

// Schema describes where the fields of a record live in the article template.
// Bump Version whenever the selectors change for a new template revision.
type Schema struct {
	Version      int    `yaml:"version" validate:"min=1"`
	Title        string `yaml:"title" validate:"required"`
	Zone         string `yaml:"zone" validate:"required"`
	Place        string `yaml:"place" validate:"required"`
	Name         string `yaml:"name" validate:"required"`
	Address      string `yaml:"address" validate:"required"`
	Segment      string `yaml:"segment" validate:"required"`
	AddressIndex int    `yaml:"address_index" validate:"min=0"`
	CityIndex    int    `yaml:"city_index" validate:"min=0"`
	CountryIndex int    `yaml:"country_index" validate:"min=0"`
	Scope        string `yaml:"scope" validate:"oneof=scoped unscoped"`
	MissingTitle string `yaml:"missing_title" validate:"oneof=fail empty"`
}

// FetchConfig configures the fetch collaborator
type FetchConfig struct {
	Mode         string        `yaml:"mode" validate:"oneof=http browser"`
	UserAgents   []string      `yaml:"user_agents" validate:"min=1,dive,required"`
	Proxies      []string      `yaml:"proxies" validate:"dive,url"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=1s"`
	Retries      int           `yaml:"retries" validate:"min=0,max=10"`
	RetryBackoff time.Duration `yaml:"retry_backoff" validate:"min=0"`
	WaitSelector string        `yaml:"wait_selector"`
	Settle       time.Duration `yaml:"settle" validate:"min=0"`
	BrowserBin   string        `yaml:"browser_bin"`
	DataDir      string        `yaml:"data_dir"`
}

// BatchConfig configures the sequential URL loop
type BatchConfig struct {
	MinDelay time.Duration `yaml:"min_delay" validate:"min=0"`
	MaxDelay time.Duration `yaml:"max_delay" validate:"gtefield=MinDelay"`
}

// ExportConfig configures the file exporters
type ExportConfig struct {
	FileName  string `yaml:"file_name" validate:"required"`
	SheetName string `yaml:"sheet_name" validate:"required"`
}

// SheetsConfig configures the optional Google Sheets export
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url"`
	CredentialsPath string `yaml:"credentials_path"`
}

// DatabaseConfig configures the request store used by the bot
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// TelegramConfig configures the bot front-end
type TelegramConfig struct {
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"min=1s"`
	AllowedUsers []int64       `yaml:"allowed_users"` // empty allows everyone
}

// DefaultUserAgents is the rotation pool used when none is configured
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Safari/605.1.15",
}

// DefaultSchema returns the schema of the restaurant article template
func DefaultSchema() Schema {
	return Schema{
		Version:      1,
		Title:        "h1.title",
		Zone:         ".places-zone",
		Place:        "div.component--place-reference",
		Name:         "h2",
		Address:      "div.field--name-field-address",
		Segment:      "span",
		AddressIndex: 1,
		CityIndex:    2,
		CountryIndex: 3,
		Scope:        ScopeScoped,
		MissingTitle: MissingTitleFail,
	}
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Schema: DefaultSchema(),
		Fetch: FetchConfig{
			Mode:         ModeHTTP,
			UserAgents:   append([]string(nil), DefaultUserAgents...),
			Timeout:      10 * time.Second,
			Retries:      2,
			RetryBackoff: 2 * time.Second,
			WaitSelector: ".places-zone",
			Settle:       5 * time.Second,
		},
		Batch: BatchConfig{
			MinDelay: 3 * time.Second,
			MaxDelay: 7 * time.Second,
		},
		Export: ExportConfig{
			FileName:  "restaurant_data",
			SheetName: "Restaurants",
		},
		Telegram: TelegramConfig{
			PollInterval: 5 * time.Second,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// A missing file is not an error: defaults and environment are used instead.
func LoadConfig(path string) (*Config, error) {
	cfg := GetDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv loads a .env file if present and overrides secrets from the environment
func ApplyEnv(cfg *Config) {
	// .env is optional
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("SPREADSHEET_URL")); v != "" {
		cfg.Sheets.SpreadsheetURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FETCH_PROXIES")); v != "" {
		cfg.Fetch.Proxies = splitList(v)
	}
}

// Validate checks field constraints
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
