// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	Ratings RatingsConfig `mapstructure:"ratings"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EnrichConfig governs the worker pool over the record batch.
type EnrichConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	ReportEvery int  `mapstructure:"report_every"`
	Skip        bool `mapstructure:"skip"`
}

// CatalogConfig points at the remote catalog and sets retry budgets.
type CatalogConfig struct {
	APIBase           string `mapstructure:"api_base"`
	CoversBase        string `mapstructure:"covers_base"`
	UserAgent         string `mapstructure:"user_agent"`
	SearchTimeoutSec  int    `mapstructure:"search_timeout_seconds"`
	VerifyTimeoutSec  int    `mapstructure:"verify_timeout_seconds"`
	SearchAttempts    int    `mapstructure:"search_attempts"`
	VerifyAttempts    int    `mapstructure:"verify_attempts"`
	MinCoverBytes     int64  `mapstructure:"min_cover_bytes"`
	BackoffUnitMs     int    `mapstructure:"backoff_unit_ms"`
	RequestDelayMs    int    `mapstructure:"request_delay_ms"`
}

// OutputConfig sets artifact destinations.
type OutputConfig struct {
	BooksPath string `mapstructure:"books_path"`
}

// ServerConfig controls the annotation HTTP server.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	WebDir string `mapstructure:"web_dir"`
}

// RatingsConfig selects and configures the verdict store.
type RatingsConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHELFMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("enrich.concurrency", 5)
	v.SetDefault("enrich.report_every", 50)
	v.SetDefault("enrich.skip", false)
	v.SetDefault("catalog.api_base", "https://openlibrary.org")
	v.SetDefault("catalog.covers_base", "https://covers.openlibrary.org")
	v.SetDefault("catalog.user_agent", "shelfmark/1.0 (polite crawler)")
	v.SetDefault("catalog.search_timeout_seconds", 10)
	v.SetDefault("catalog.verify_timeout_seconds", 5)
	v.SetDefault("catalog.search_attempts", 3)
	v.SetDefault("catalog.verify_attempts", 2)
	v.SetDefault("catalog.min_cover_bytes", 1000)
	v.SetDefault("catalog.backoff_unit_ms", 1000)
	v.SetDefault("catalog.request_delay_ms", 0)
	v.SetDefault("output.books_path", "data/books.json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.web_dir", "web")
	v.SetDefault("ratings.provider", "file")
	v.SetDefault("ratings.path", "data/ratings.json")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Enrich.Concurrency <= 0 {
		return fmt.Errorf("enrich.concurrency must be > 0")
	}
	if c.Enrich.ReportEvery <= 0 {
		return fmt.Errorf("enrich.report_every must be > 0")
	}
	if c.Catalog.APIBase == "" {
		return fmt.Errorf("catalog.api_base is required")
	}
	if c.Catalog.CoversBase == "" {
		return fmt.Errorf("catalog.covers_base is required")
	}
	if c.Catalog.MinCoverBytes <= 0 {
		return fmt.Errorf("catalog.min_cover_bytes must be > 0")
	}
	if c.Catalog.SearchAttempts < 1 || c.Catalog.VerifyAttempts < 1 {
		return fmt.Errorf("catalog attempt budgets must be >= 1")
	}
	if c.Catalog.SearchTimeoutSec <= 0 || c.Catalog.VerifyTimeoutSec <= 0 {
		return fmt.Errorf("catalog timeouts must be > 0")
	}
	if c.Output.BooksPath == "" {
		return fmt.Errorf("output.books_path is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Ratings.Provider {
	case "file":
		if c.Ratings.Path == "" {
			return fmt.Errorf("ratings.path is required for the file provider")
		}
	case "postgres":
		if c.Ratings.DSN == "" {
			return fmt.Errorf("ratings.dsn is required for the postgres provider")
		}
	default:
		return fmt.Errorf("ratings.provider must be \"file\" or \"postgres\"")
	}
	return nil
}

// SearchTimeout converts the configured seconds into a duration.
func (c CatalogConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSec) * time.Second
}

// VerifyTimeout converts the configured seconds into a duration.
func (c CatalogConfig) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutSec) * time.Second
}

// BackoffUnit converts the configured milliseconds into a duration.
func (c CatalogConfig) BackoffUnit() time.Duration {
	return time.Duration(c.BackoffUnitMs) * time.Millisecond
}

// RequestDelay converts the configured milliseconds into a duration.
func (c CatalogConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}
