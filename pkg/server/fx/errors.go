// Package fx resolves USD-to-target conversion rates from multiple
// independent providers.
package fx

import "errors"

var (
	// ErrRateUnavailable indicates that no provider and no fallback could
	// produce a rate for the target currency.
	ErrRateUnavailable = errors.New("FX rate unavailable")
	// ErrUnsupportedCurrency indicates a currency the provider does not quote.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrProviderError indicates an API-level provider failure.
	ErrProviderError = errors.New("FX provider error")
	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown FX provider")
	// ErrInvalidRate indicates a non-finite or non-positive rate.
	ErrInvalidRate = errors.New("rate must be finite and positive")
)
