package cex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tc.com/price-api/pkg/server/sources"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com"
	coingeckoTimeout = 8 * time.Second
)

// CoinGeckoSource fetches prices from the CoinGecko simple-price API.
// It quotes directly in the requested target currency, which also makes
// it the cross-rate anchor for denominations no FX provider covers
// (precious-metal tickers and the like).
type CoinGeckoSource struct {
	*sources.BaseSource
	apiURL string
	retry  sources.RetryPolicy
}

// NewCoinGeckoSource creates a new CoinGecko source.
func NewCoinGeckoSource(config map[string]interface{}) (sources.Source, error) {
	logger := sources.GetLoggerFromConfig(config)

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	apiURL := coingeckoBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout := sources.GetTimeoutFromConfig(config, coingeckoTimeout)
	base := sources.NewBaseSource("coingecko", sources.SourceTypeIndex, pairs, timeout, logger)

	return &CoinGeckoSource{
		BaseSource: base,
		apiURL:     apiURL,
		retry:      sources.RetryPolicyFromConfig(config),
	}, nil
}

// Fetch retrieves one quote denominated in the requested target currency.
func (s *CoinGeckoSource) Fetch(ctx context.Context, base, target string) (*sources.Quote, error) {
	id, ok := s.SourceSymbol(base)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownAsset, base)
	}

	vs := strings.ToLower(target)
	if vs == "" {
		vs = "usd"
	}

	return sources.FetchWithRetries(ctx, s.BaseSource, s.retry, func(ctx context.Context) (*sources.Quote, error) {
		url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=%s&include_24hr_vol=true", s.apiURL, id, vs)

		var resp map[string]map[string]float64
		if err := sources.GetJSON(ctx, s.Client(), url, &resp); err != nil {
			return nil, err
		}

		values, ok := resp[id]
		if !ok {
			return nil, fmt.Errorf("%w: missing id %s", sources.ErrInvalidResponse, id)
		}
		raw, ok := values[vs]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s price", sources.ErrInvalidResponse, vs)
		}

		price, err := sources.PriceFromFloat(raw)
		if err != nil {
			return nil, err
		}

		quote := &sources.Quote{
			Source:   "coingecko:" + id,
			Currency: strings.ToUpper(vs),
			Price:    price,
		}
		if rawVol, ok := values[vs+"_24h_vol"]; ok {
			if v, err := sources.VolumeFromFloat(rawVol); err == nil {
				quote.Volume = v
			}
		}

		if err := quote.Validate(); err != nil {
			return nil, err
		}
		return quote, nil
	})
}
