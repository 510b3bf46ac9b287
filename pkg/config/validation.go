package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("%w", ErrNoSources)
	}

	enabled := 0
	for i, source := range cfg.Sources {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s.%s): %w", i, source.Type, source.Name, err)
		}
		if source.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w", ErrNoEnabledSources)
	}

	for currency, rate := range cfg.FX.FallbackRates {
		if rate <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidFallbackRate, currency)
		}
	}

	for asset, ceiling := range cfg.Pricing.Ceilings {
		if ceiling <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidCeiling, asset)
		}
	}

	if cfg.History.MaxPoints < 1 || cfg.History.MaxPoints > 10000 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPoints, cfg.History.MaxPoints)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w", ErrMissingSourceName)
	}
	if cfg.Type == "" {
		return fmt.Errorf("%w", ErrMissingSourceType)
	}
	if cfg.Weight < 0.5 || cfg.Weight > 1.0 {
		return fmt.Errorf("%w: %g", ErrInvalidWeight, cfg.Weight)
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
