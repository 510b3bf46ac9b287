package history

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/server/sources"
)

const binanceHistoryURL = "https://api.binance.com"

// BinanceHistory fetches candlestick series from the Binance klines
// endpoint. Series are USDT-denominated; the caller converts or drops
// them for non-USD targets.
type BinanceHistory struct {
	apiURL  string
	pairs   map[string]string
	timeout time.Duration
	client  *http.Client
	logger  *logging.Logger
}

// NewBinanceHistory creates the Binance history provider.
func NewBinanceHistory(apiURL string, pairs map[string]string, timeout time.Duration, logger *logging.Logger) *BinanceHistory {
	if apiURL == "" {
		apiURL = binanceHistoryURL
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &BinanceHistory{
		apiURL:  apiURL,
		pairs:   pairs,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// Name returns the provider name.
func (h *BinanceHistory) Name() string { return "binance" }

// Series fetches up to limit klines at the requested interval.
func (h *BinanceHistory) Series(ctx context.Context, asset, _ string, interval string, limit int) ([]Point, string, error) {
	if !SupportedInterval(interval) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedInterval, interval)
	}
	symbol, ok := h.pairs[asset]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	if limit < 1 || limit > 1000 {
		limit = 1000
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", h.apiURL, symbol, interval, limit)

	// Each kline is [openTime, open, high, low, close, volume, ...];
	// timestamps are epoch milliseconds, prices and volumes strings.
	var klines [][]interface{}
	if err := sources.GetJSON(callCtx, h.client, url, &klines); err != nil {
		return nil, "", err
	}

	points := make([]Point, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := k[4].(string)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(closeStr)
		if err != nil || !price.IsPositive() {
			continue
		}

		point := Point{
			Timestamp: int64(openTime) / 1000,
			Price:     price,
		}
		if volStr, ok := k[5].(string); ok {
			if v, err := decimal.NewFromString(volStr); err == nil && !v.IsNegative() {
				point.Volume = v
			}
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, "", fmt.Errorf("%w: binance klines empty", ErrNoData)
	}
	return points, "USDT", nil
}
