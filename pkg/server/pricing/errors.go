// Package pricing consolidates, filters and aggregates quotes into one
// published price.
package pricing

import "errors"

var (
	// ErrNoQuotes indicates that no quotes were provided.
	ErrNoQuotes = errors.New("no quotes provided")
	// ErrZeroWeight indicates that every combined weight collapsed to zero.
	ErrZeroWeight = errors.New("total aggregation weight is zero")
	// ErrNoPreciseData indicates that no precise source resolved.
	ErrNoPreciseData = errors.New("no precise price data available")
)
