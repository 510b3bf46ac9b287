package cex

import (
	"context"
	"fmt"
	"time"

	"tc.com/price-api/pkg/server/sources"
)

const (
	coinpaprikaBaseURL = "https://api.coinpaprika.com"
	coinpaprikaTimeout = 6 * time.Second
)

// CoinpaprikaSource fetches ticker data from Coinpaprika.
// Quotes are USD-denominated without high/low.
type CoinpaprikaSource struct {
	*sources.BaseSource
	apiURL string
	retry  sources.RetryPolicy
}

type coinpaprikaTicker struct {
	ID     string `json:"id"`
	Quotes map[string]struct {
		Price     float64 `json:"price"`
		Volume24h float64 `json:"volume_24h"`
	} `json:"quotes"`
}

// NewCoinpaprikaSource creates a new Coinpaprika source.
func NewCoinpaprikaSource(config map[string]interface{}) (sources.Source, error) {
	logger := sources.GetLoggerFromConfig(config)

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	apiURL := coinpaprikaBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout := sources.GetTimeoutFromConfig(config, coinpaprikaTimeout)
	base := sources.NewBaseSource("coinpaprika", sources.SourceTypeIndex, pairs, timeout, logger)

	return &CoinpaprikaSource{
		BaseSource: base,
		apiURL:     apiURL,
		retry:      sources.RetryPolicyFromConfig(config),
	}, nil
}

// Fetch retrieves one USD-denominated quote for the asset.
func (s *CoinpaprikaSource) Fetch(ctx context.Context, base, _ string) (*sources.Quote, error) {
	id, ok := s.SourceSymbol(base)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownAsset, base)
	}

	return sources.FetchWithRetries(ctx, s.BaseSource, s.retry, func(ctx context.Context) (*sources.Quote, error) {
		url := fmt.Sprintf("%s/v1/tickers/%s", s.apiURL, id)

		var ticker coinpaprikaTicker
		if err := sources.GetJSON(ctx, s.Client(), url, &ticker); err != nil {
			return nil, err
		}

		usd, ok := ticker.Quotes["USD"]
		if !ok {
			return nil, fmt.Errorf("%w: missing USD quote", sources.ErrInvalidResponse)
		}

		price, err := sources.PriceFromFloat(usd.Price)
		if err != nil {
			return nil, err
		}

		quote := &sources.Quote{
			Source:   "coinpaprika:" + id,
			Currency: "USD",
			Price:    price,
		}
		if v, err := sources.VolumeFromFloat(usd.Volume24h); err == nil {
			quote.Volume = v
		}

		if err := quote.Validate(); err != nil {
			return nil, err
		}
		return quote, nil
	})
}
