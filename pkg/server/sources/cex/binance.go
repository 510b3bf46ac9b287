package cex

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/server/sources"
)

const (
	binanceBaseURL = "https://api.binance.com"
	binanceTimeout = 2 * time.Second
)

// BinanceSource fetches 24h ticker snapshots from Binance.
// Quotes are USDT-denominated and carry 24h high/low, so the source is
// eligible for the precise pipeline.
type BinanceSource struct {
	*sources.BaseSource
	apiURL string
	retry  sources.RetryPolicy
}

type binanceTicker24h struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	HighPrice string `json:"highPrice"`
	LowPrice  string `json:"lowPrice"`
	Volume    string `json:"volume"`
}

// NewBinanceSource creates a new Binance source.
func NewBinanceSource(config map[string]interface{}) (sources.Source, error) {
	logger := sources.GetLoggerFromConfig(config)

	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	apiURL := binanceBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	timeout := sources.GetTimeoutFromConfig(config, binanceTimeout)
	base := sources.NewBaseSource("binance", sources.SourceTypeCEX, pairs, timeout, logger)

	return &BinanceSource{
		BaseSource: base,
		apiURL:     apiURL,
		retry:      sources.RetryPolicyFromConfig(config),
	}, nil
}

// Fetch retrieves one USDT-denominated quote for the asset.
func (s *BinanceSource) Fetch(ctx context.Context, base, _ string) (*sources.Quote, error) {
	symbol, ok := s.SourceSymbol(base)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sources.ErrUnknownAsset, base)
	}

	return sources.FetchWithRetries(ctx, s.BaseSource, s.retry, func(ctx context.Context) (*sources.Quote, error) {
		url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", s.apiURL, symbol)

		var ticker binanceTicker24h
		if err := sources.GetJSON(ctx, s.Client(), url, &ticker); err != nil {
			return nil, err
		}

		price, err := decimal.NewFromString(ticker.LastPrice)
		if err != nil {
			return nil, fmt.Errorf("%w: lastPrice %q", sources.ErrInvalidResponse, ticker.LastPrice)
		}

		quote := &sources.Quote{
			Source:   "binance:" + symbol,
			Currency: "USDT",
			Price:    price,
		}
		if v, err := decimal.NewFromString(ticker.Volume); err == nil {
			quote.Volume = v
		}
		if h, err := decimal.NewFromString(ticker.HighPrice); err == nil {
			quote.High = h
		}
		if l, err := decimal.NewFromString(ticker.LowPrice); err == nil {
			quote.Low = l
		}

		if err := quote.Validate(); err != nil {
			return nil, err
		}
		return quote, nil
	})
}
