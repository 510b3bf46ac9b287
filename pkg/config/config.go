// Package config provides configuration loading and validation for price-api.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default heuristic tables. All of these can be overridden from the
// configuration file so the aggregation logic can be tuned without a rebuild.
var (
	// defaultFallbackRates are approximate USD rates for a handful of major
	// currencies, used only when every FX provider fails.
	defaultFallbackRates = map[string]float64{
		"EUR": 0.92,
		"GBP": 0.79,
		"JPY": 150.0,
		"CHF": 0.88,
		"CAD": 1.36,
		"AUD": 1.52,
		"CNY": 7.2,
	}

	// defaultCeilings are per-asset sanity ceilings guarding against
	// corrupted feeds for a short list of well-known assets.
	defaultCeilings = map[string]float64{
		"bitcoin":  10_000_000,
		"ethereum": 1_000_000,
		"litecoin": 100_000,
		"dogecoin": 1_000,
		"ripple":   1_000,
	}
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout.ToDuration() == 0 {
		cfg.Server.RequestTimeout = Duration(15 * time.Second)
	}

	// Source defaults
	for i := range cfg.Sources {
		if cfg.Sources[i].Weight == 0 {
			cfg.Sources[i].Weight = 0.5
		}
		if cfg.Sources[i].Timeout.ToDuration() == 0 {
			cfg.Sources[i].Timeout = Duration(5 * time.Second)
		}
	}

	// FX defaults
	if len(cfg.FX.Providers) == 0 {
		cfg.FX.Providers = []string{"frankfurter", "erapi", "exchangeratehost"}
	}
	if cfg.FX.Timeout.ToDuration() == 0 {
		cfg.FX.Timeout = Duration(5 * time.Second)
	}
	if cfg.FX.FallbackRates == nil {
		cfg.FX.FallbackRates = defaultFallbackRates
	}

	// Pricing defaults
	if cfg.Pricing.Ceilings == nil {
		cfg.Pricing.Ceilings = defaultCeilings
	}

	// History defaults
	if len(cfg.History.Providers) == 0 {
		cfg.History.Providers = []string{"coingecko", "binance"}
	}
	if cfg.History.MaxPoints == 0 {
		cfg.History.MaxPoints = 1000
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GetString retrieves a string value from the source configuration.
func (sc *SourceConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}
