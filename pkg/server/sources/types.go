package sources

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType represents the type of quote source
type SourceType string

const (
	// SourceTypeCEX is a centralized exchange ticker source.
	SourceTypeCEX SourceType = "cex"
	// SourceTypeIndex is a market-data index/aggregator source.
	SourceTypeIndex SourceType = "index"
)

// Quote is a single normalized quote from one provider for one request.
// It is created by an adapter, never mutated afterwards, and discarded
// once the response is built.
type Quote struct {
	Source    string          // provenance tag, e.g. "binance:BTCUSDT"
	Currency  string          // denomination currency code (USD, USDT, or the requested target)
	Price     decimal.Decimal
	Volume    decimal.Decimal // 24h volume, zero when the provider reports none
	High      decimal.Decimal // 24h high, zero when unknown
	Low       decimal.Decimal // 24h low, zero when unknown
	Latency   time.Duration   // duration of the successful fetch attempt
	Timestamp time.Time
}

// ProviderName returns the provider part of the provenance tag.
func (q *Quote) ProviderName() string {
	if idx := strings.Index(q.Source, ":"); idx > 0 {
		return q.Source[:idx]
	}
	return q.Source
}

// Source defines the interface that all quote adapters implement.
// Fetch issues one deadline-bound request (with adapter-local retries)
// and returns a validated quote, or an error the caller treats as
// "absent" rather than a request failure.
type Source interface {
	// Name returns the unique name of this source
	Name() string

	// Type returns the type of this source
	Type() SourceType

	// Timeout returns the per-attempt deadline for this source
	Timeout() time.Duration

	// Fetch retrieves one quote for the given base asset. The target
	// currency is a hint; the returned Quote.Currency records the
	// denomination actually delivered.
	Fetch(ctx context.Context, base, target string) (*Quote, error)
}

// SourceFactory is a function that creates a new Source instance
type SourceFactory func(config map[string]interface{}) (Source, error)
