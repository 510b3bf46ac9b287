// Package config provides configuration loading and validation for price-api.
package config

import "errors"

var (
	// ErrNoSources indicates that no quote source is configured.
	ErrNoSources = errors.New("at least one quote source must be configured")
	// ErrNoEnabledSources indicates that every configured source is disabled.
	ErrNoEnabledSources = errors.New("at least one quote source must be enabled")
	// ErrInvalidWeight indicates a reliability weight outside [0.5, 1.0].
	ErrInvalidWeight = errors.New("source weight must be in [0.5, 1.0]")
	// ErrInvalidCeiling indicates a non-positive sanity ceiling.
	ErrInvalidCeiling = errors.New("price ceiling must be positive")
	// ErrInvalidFallbackRate indicates a non-positive static FX rate.
	ErrInvalidFallbackRate = errors.New("fallback FX rate must be positive")
	// ErrInvalidMaxPoints indicates an out-of-range history point limit.
	ErrInvalidMaxPoints = errors.New("history max_points must be in [1, 10000]")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrMissingSourceName indicates a source entry without a name.
	ErrMissingSourceName = errors.New("source name is required")
	// ErrMissingSourceType indicates a source entry without a type.
	ErrMissingSourceType = errors.New("source type is required")
)
