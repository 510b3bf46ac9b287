// Package sources provides quote source interfaces and implementations.
package sources

import "errors"

var (
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates an invalid response from the source.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidPrice indicates a non-finite or non-positive price.
	ErrInvalidPrice = errors.New("price must be finite and positive")
	// ErrInvalidVolume indicates a non-finite or negative volume.
	ErrInvalidVolume = errors.New("volume must be finite and non-negative")
	// ErrImplausibleRange indicates a 24h high below the 24h low.
	ErrImplausibleRange = errors.New("24h high below 24h low")
	// ErrPriceOutsideRange indicates a price outside the 24h plausibility band.
	ErrPriceOutsideRange = errors.New("price outside 24h plausibility band")
	// ErrUnknownAsset indicates an asset with no symbol mapping for the source.
	ErrUnknownAsset = errors.New("no symbol mapping for asset")
	// ErrInvalidConfig indicates that the source configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoPairsConfigured indicates that no valid pairs are configured.
	ErrNoPairsConfigured = errors.New("no pairs configured")
	// ErrAPIError indicates an API-level error payload.
	ErrAPIError = errors.New("API error")
)
