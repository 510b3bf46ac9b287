package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Sources []SourceConfig `yaml:"sources"`
	FX      FXConfig       `yaml:"fx"`
	Pricing PricingConfig  `yaml:"pricing"`
	History HistoryConfig  `yaml:"history"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	HTTP           HTTPConfig `yaml:"http"`
	RequestTimeout Duration   `yaml:"request_timeout"`
}

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SourceConfig configures a quote source adapter
type SourceConfig struct {
	Type    string                 `yaml:"type"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Weight  float64                `yaml:"weight"`  // reliability weight in [0.5, 1.0]
	Precise bool                   `yaml:"precise"` // eligible for the precise-quote pipeline
	Timeout Duration               `yaml:"timeout"` // per-attempt deadline
	Config  map[string]interface{} `yaml:"config"`
}

// FXConfig configures the FX rate resolver
type FXConfig struct {
	Providers     []string           `yaml:"providers"`
	Timeout       Duration           `yaml:"timeout"`
	FallbackRates map[string]float64 `yaml:"fallback_rates"` // approximate USD rates
}

// PricingConfig configures the consolidation and aggregation pipeline
type PricingConfig struct {
	Ceilings map[string]float64 `yaml:"ceilings"` // per-asset sanity ceilings
}

// HistoryConfig configures the time-series pipeline
type HistoryConfig struct {
	Providers []string `yaml:"providers"`
	MaxPoints int      `yaml:"max_points"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
