/*
Package config loads service configuration from the environment.

PURPOSE:
  One struct, filled from environment variables (optionally seeded from
  .env files), validated once at startup. Command-line flags in
  cmd/server override a few fields after Load.

VARIABLES:
  PORT                  HTTP listen port                   (8080)
  DB_PATH               SQLite database file               (./data/payroll.db)
  CATALOG_PATH          JSON catalog; empty = built-in     ("")
  LOG_LEVEL             silent|error|warn|info|debug       (info)
  LOG_FORMAT            text|json                          (text)
  PAGE_SIZE             default page size                  (25)
  MAX_PAGE_SIZE         page size ceiling                  (100)
  QUERY_TIMEOUT         per-query deadline                 (5s)
  FACET_CONCURRENCY     concurrent store queries/request   (4)
  METRICS_ENABLED       serve Prometheus metrics           (true)
  METRICS_PATH          metrics route                      (/metrics)
  CORS_ALLOWED_ORIGINS  comma-separated origins            (http://localhost:*)
  SEED_DEMO             load demo records on startup       (false)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-browse/facet"
)

// Config is the complete service configuration.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/payroll.db"`
	CatalogPath string `env:"CATALOG_PATH"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	PageSize         int           `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int           `env:"MAX_PAGE_SIZE" envDefault:"100"`
	QueryTimeout     time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`
	FacetConcurrency int           `env:"FACET_CONCURRENCY" envDefault:"4"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:*,http://127.0.0.1:*"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

// LoadEnv loads the env files that exist, skipping missing ones. Variables
// already set in the process environment win.
func LoadEnv(envFiles ...string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files, parses the environment and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if _, err := LoadEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be 1-65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required"))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize))
	}
	if c.MaxPageSize < c.PageSize {
		errs = append(errs, fmt.Errorf("MAX_PAGE_SIZE (%d) must be >= PAGE_SIZE (%d)", c.MaxPageSize, c.PageSize))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("QUERY_TIMEOUT must be positive, got %s", c.QueryTimeout))
	}
	if c.FacetConcurrency < 1 {
		errs = append(errs, fmt.Errorf("FACET_CONCURRENCY must be positive, got %d", c.FacetConcurrency))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got '%s'", c.LogFormat))
	}
	if c.MetricsEnabled && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("METRICS_PATH must start with '/', got '%s'", c.MetricsPath))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Engine returns the facet engine limits.
func (c *Config) Engine() facet.Config {
	return facet.Config{
		DefaultPageSize: c.PageSize,
		MaxPageSize:     c.MaxPageSize,
		QueryTimeout:    c.QueryTimeout,
		Concurrency:     c.FacetConcurrency,
	}
}

// Logger builds a logrus logger for the configured level and format.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func parseLevel(s string) (logrus.Level, error) {
	switch strings.ToLower(s) {
	case "silent":
		return logrus.PanicLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("LOG_LEVEL must be silent, error, warn, info or debug, got '%s'", s)
	}
}
