// Package history fetches and merges multi-source price time series.
package history

import "errors"

var (
	// ErrUnsupportedInterval indicates an interval outside 1m/5m/1h/1d.
	ErrUnsupportedInterval = errors.New("unsupported interval")
	// ErrNoData indicates that no provider returned usable points.
	ErrNoData = errors.New("no historical data available")
	// ErrInvalidResponse indicates a malformed provider payload.
	ErrInvalidResponse = errors.New("invalid history response")
	// ErrUnknownAsset indicates an asset with no symbol mapping.
	ErrUnknownAsset = errors.New("no symbol mapping for asset")
)
