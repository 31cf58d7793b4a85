// Package common provides shared utilities for vire-recon
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for vire-recon
type Config struct {
	Environment       string          `toml:"environment"`
	ReportingCurrency string          `toml:"reporting_currency"` // ISO code all values are reported in (default "CAD")
	Server            ServerConfig    `toml:"server"`
	Storage           StorageConfig   `toml:"storage"`
	Clients           ClientsConfig   `toml:"clients"`
	FX                FXConfig        `toml:"fx"`
	Dedupe            DedupeConfig    `toml:"dedupe"`
	Classify          ClassifyConfig  `toml:"classify"`
	Reconcile         ReconcileConfig `toml:"reconcile"`
	Rules             []RuleConfig    `toml:"rules"` // replaces the built-in bucket rule table when non-empty
	Logging           LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "file" or "surrealdb"
	Path      string `toml:"path"`    // file backend root directory
	Address   string `toml:"address"` // SurrealDB websocket address
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string            `toml:"base_url"`
	APIKey    string            `toml:"api_key"`
	RateLimit int               `toml:"rate_limit"`
	Timeout   string            `toml:"timeout"`
	Exchanges map[string]string `toml:"exchanges"` // currency -> EODHD exchange suffix (e.g. "CAD" -> "TO")
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// FXConfig holds currency conversion fallbacks.
type FXConfig struct {
	FallbackRates map[string]float64 `toml:"fallback_rates"` // currency -> reporting-currency rate
	DefaultRate   float64            `toml:"default_rate"`   // used when a currency has no entry
}

// DedupeConfig configures the cash/security resolver.
type DedupeConfig struct {
	PlaceholderSymbols    []string `toml:"placeholder_symbols"`
	CashEquivalentSymbols []string `toml:"cash_equivalent_symbols"`
	CashKeywords          []string `toml:"cash_keywords"`
}

// ClassifyConfig configures the classification engine.
type ClassifyConfig struct {
	Concurrency         int     `toml:"concurrency"`
	LookupTimeout       string  `toml:"lookup_timeout"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	UseMarketData       bool    `toml:"use_market_data"`
	UseSemantic         bool    `toml:"use_semantic"`
}

// GetLookupTimeout parses and returns the per-lookup timeout.
func (c *ClassifyConfig) GetLookupTimeout() time.Duration {
	d, err := time.ParseDuration(c.LookupTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// ReconcileConfig configures the reconciliation verifier.
type ReconcileConfig struct {
	Tolerance        float64 `toml:"tolerance"`
	AllowAdjustment  bool    `toml:"allow_adjustment"`
	AdjustmentSource string  `toml:"adjustment_source"` // label of the external source the adjustment is attributed to
	AdjustmentBucket string  `toml:"adjustment_bucket"`
}

// RuleConfig is one row of the bucket rule table.
type RuleConfig struct {
	Name     string   `toml:"name"`
	Bucket   string   `toml:"bucket"`
	Scope    string   `toml:"scope"` // benefits, cash, holding
	Keywords []string `toml:"keywords"`
	Symbols  []string `toml:"symbols"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:       "development",
		ReportingCurrency: "CAD",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "data/snapshots",
			Namespace: "recon",
			Database:  "recon",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
				Exchanges: map[string]string{"CAD": "TO", "USD": "US"},
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		FX: FXConfig{
			FallbackRates: map[string]float64{"USD": 1.38535},
			DefaultRate:   1.0,
		},
		Dedupe: DedupeConfig{
			PlaceholderSymbols:    []string{"CASH"},
			CashEquivalentSymbols: []string{"CMR", "MNY", "HISU.U", "ZMMK", "PSA", "CASH.TO"},
			CashKeywords:          []string{"money market", "cash management", "high interest savings", "savings account", "cash"},
		},
		Classify: ClassifyConfig{
			Concurrency:         4,
			LookupTimeout:       "15s",
			ConfidenceThreshold: 0.5,
			UseMarketData:       true,
			UseSemantic:         true,
		},
		Reconcile: ReconcileConfig{
			Tolerance:        1000,
			AllowAdjustment:  false,
			AdjustmentSource: "pending benefits data",
			AdjustmentBucket: "Cash & Cash Equivalents",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first so that API keys
// can be kept out of the TOML files.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	config.ReportingCurrency = strings.ToUpper(strings.TrimSpace(config.ReportingCurrency))
	if config.ReportingCurrency == "" {
		config.ReportingCurrency = "CAD"
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RECON_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("RECON_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("RECON_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("RECON_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if cur := os.Getenv("RECON_REPORTING_CURRENCY"); cur != "" {
		config.ReportingCurrency = strings.ToUpper(cur)
	}

	if v := os.Getenv("RECON_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Reconcile.Tolerance = f
		}
	}

	if v := os.Getenv("RECON_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Classify.Concurrency = n
		}
	}

	// Storage overrides
	if v := os.Getenv("RECON_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("RECON_DATA_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("RECON_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}

	// API keys
	for _, name := range []string{"EODHD_API_KEY", "RECON_EODHD_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.EODHD.APIKey = v
		}
	}
	for _, name := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY", "RECON_GEMINI_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Gemini.APIKey = v
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
