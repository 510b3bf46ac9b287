package cex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/server/sources"
)

const (
	coinbaseBaseURL = "https://api.exchange.coinbase.com"
	coinbaseTimeout = 3 * time.Second
)

// CoinbaseSource fetches 24h product stats from Coinbase Exchange.
// Quotes are USD-denominated with 24h high/low.
type CoinbaseSource struct {
	*sources.BaseSource
	apiURL string
	retry  sources.RetryPolicy
}

type coinbaseStats struct {
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Volume string `json:"volume"`
	Last   string `json:"last"`
}

// NewCoinbaseSource creates a new Coinbase source.
func NewCoinbaseSource(config map[string]interface{}) (sources.Source, error) {
	logger := sources.GetLoggerFromConfig(config)

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	apiURL := coinbaseBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout := sources.GetTimeoutFromConfig(config, coinbaseTimeout)
	base := sources.NewBaseSource("coinbase", sources.SourceTypeCEX, pairs, timeout, logger)

	return &CoinbaseSource{
		BaseSource: base,
		apiURL:     apiURL,
		retry:      sources.RetryPolicyFromConfig(config),
	}, nil
}

// Fetch retrieves one quote for the asset. The denomination comes from
// the product id suffix (BTC-USD -> USD).
func (s *CoinbaseSource) Fetch(ctx context.Context, base, _ string) (*sources.Quote, error) {
	product, ok := s.SourceSymbol(base)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownAsset, base)
	}

	currency := "USD"
	if idx := strings.LastIndex(product, "-"); idx >= 0 && idx+1 < len(product) {
		currency = product[idx+1:]
	}

	return sources.FetchWithRetries(ctx, s.BaseSource, s.retry, func(ctx context.Context) (*sources.Quote, error) {
		url := fmt.Sprintf("%s/products/%s/stats", s.apiURL, product)

		var stats coinbaseStats
		if err := sources.GetJSON(ctx, s.Client(), url, &stats); err != nil {
			return nil, err
		}

		price, err := decimal.NewFromString(stats.Last)
		if err != nil {
			return nil, fmt.Errorf("%w: last %q", sources.ErrInvalidResponse, stats.Last)
		}

		quote := &sources.Quote{
			Source:   "coinbase:" + product,
			Currency: currency,
			Price:    price,
		}
		if v, err := decimal.NewFromString(stats.Volume); err == nil {
			quote.Volume = v
		}
		if h, err := decimal.NewFromString(stats.High); err == nil {
			quote.High = h
		}
		if l, err := decimal.NewFromString(stats.Low); err == nil {
			quote.Low = l
		}

		if err := quote.Validate(); err != nil {
			return nil, err
		}
		return quote, nil
	})
}
