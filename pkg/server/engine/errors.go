// Package engine orchestrates the per-request pricing pipelines.
package engine

import "errors"

var (
	// ErrAggregationFailed indicates quotes were available but no price
	// could be produced from them.
	ErrAggregationFailed = errors.New("failed to aggregate price")
)
