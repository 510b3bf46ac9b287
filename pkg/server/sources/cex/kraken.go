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
	krakenBaseURL = "https://api.kraken.com"
	krakenTimeout = 4 * time.Second
)

// KrakenSource fetches public ticker data from Kraken.
// Quotes are USD-denominated with 24h high/low.
type KrakenSource struct {
	*sources.BaseSource
	apiURL string
	retry  sources.RetryPolicy
}

type krakenTicker struct {
	Close  []string `json:"c"` // [price, lot volume]
	High   []string `json:"h"` // [today, last 24h]
	Low    []string `json:"l"`
	Volume []string `json:"v"`
}

type krakenResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

// NewKrakenSource creates a new Kraken source.
func NewKrakenSource(config map[string]interface{}) (sources.Source, error) {
	logger := sources.GetLoggerFromConfig(config)

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	apiURL := krakenBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout := sources.GetTimeoutFromConfig(config, krakenTimeout)
	base := sources.NewBaseSource("kraken", sources.SourceTypeCEX, pairs, timeout, logger)

	return &KrakenSource{
		BaseSource: base,
		apiURL:     apiURL,
		retry:      sources.RetryPolicyFromConfig(config),
	}, nil
}

// Fetch retrieves one USD-denominated quote for the asset.
func (s *KrakenSource) Fetch(ctx context.Context, base, _ string) (*sources.Quote, error) {
	pair, ok := s.SourceSymbol(base)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownAsset, base)
	}

	return sources.FetchWithRetries(ctx, s.BaseSource, s.retry, func(ctx context.Context) (*sources.Quote, error) {
		url := fmt.Sprintf("%s/0/public/Ticker?pair=%s", s.apiURL, pair)

		var resp krakenResponse
		if err := sources.GetJSON(ctx, s.Client(), url, &resp); err != nil {
			return nil, err
		}
		if len(resp.Error) > 0 {
			return nil, fmt.Errorf("%w: %s", sources.ErrAPIError, strings.Join(resp.Error, "; "))
		}

		// Kraken keys the result by its own pair spelling, which does not
		// always match the requested one. A single entry is expected.
		var ticker *krakenTicker
		for _, t := range resp.Result {
			ticker = &t
			break
		}
		if ticker == nil || len(ticker.Close) == 0 {
			return nil, fmt.Errorf("%w: empty result", sources.ErrInvalidResponse)
		}

		price, err := decimal.NewFromString(ticker.Close[0])
		if err != nil {
			return nil, fmt.Errorf("%w: close %q", sources.ErrInvalidResponse, ticker.Close[0])
		}

		quote := &sources.Quote{
			Source:   "kraken:" + pair,
			Currency: "USD",
			Price:    price,
		}
		if len(ticker.Volume) > 1 {
			if v, err := decimal.NewFromString(ticker.Volume[1]); err == nil {
				quote.Volume = v
			}
		}
		if len(ticker.High) > 1 {
			if h, err := decimal.NewFromString(ticker.High[1]); err == nil {
				quote.High = h
			}
		}
		if len(ticker.Low) > 1 {
			if l, err := decimal.NewFromString(ticker.Low[1]); err == nil {
				quote.Low = l
			}
		}

		if err := quote.Validate(); err != nil {
			return nil, err
		}
		return quote, nil
	})
}
