package history

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/server/sources"
)

const coingeckoHistoryURL = "https://api.coingecko.com"

// intervalDays maps intervals to the CoinGecko market-chart window.
// CoinGecko picks granularity from the window size, so sub-hour
// intervals share the one-day window.
var intervalDays = map[string]string{
	"1m": "1",
	"5m": "1",
	"1h": "30",
	"1d": "365",
}

// CoinGeckoHistory fetches market-chart series from CoinGecko,
// denominated natively in the requested target currency.
type CoinGeckoHistory struct {
	apiURL  string
	pairs   map[string]string
	timeout time.Duration
	client  *http.Client
	logger  *logging.Logger
}

// NewCoinGeckoHistory creates the CoinGecko history provider.
func NewCoinGeckoHistory(apiURL string, pairs map[string]string, timeout time.Duration, logger *logging.Logger) *CoinGeckoHistory {
	if apiURL == "" {
		apiURL = coingeckoHistoryURL
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &CoinGeckoHistory{
		apiURL:  apiURL,
		pairs:   pairs,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// Name returns the provider name.
func (h *CoinGeckoHistory) Name() string { return "coingecko" }

type coingeckoMarketChart struct {
	Prices       [][]float64 `json:"prices"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// Series fetches the market chart for the asset in the target currency.
func (h *CoinGeckoHistory) Series(ctx context.Context, asset, target, interval string, _ int) ([]Point, string, error) {
	if !SupportedInterval(interval) {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedInterval, interval)
	}
	id, ok := h.pairs[asset]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	vs := strings.ToLower(target)
	if vs == "" {
		vs = "usd"
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v3/coins/%s/market_chart?vs_currency=%s&days=%s", h.apiURL, id, vs, intervalDays[interval])

	var chart coingeckoMarketChart
	if err := sources.GetJSON(callCtx, h.client, url, &chart); err != nil {
		return nil, "", err
	}

	points := make([]Point, 0, len(chart.Prices))
	for i, entry := range chart.Prices {
		if len(entry) < 2 {
			continue
		}
		price, err := sources.PriceFromFloat(entry[1])
		if err != nil {
			continue
		}

		point := Point{
			Timestamp: int64(entry[0]) / 1000, // epoch milliseconds
			Price:     price,
		}
		// total_volumes runs parallel to prices
		if i < len(chart.TotalVolumes) && len(chart.TotalVolumes[i]) >= 2 {
			if v, err := sources.VolumeFromFloat(chart.TotalVolumes[i][1]); err == nil {
				point.Volume = v
			}
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, "", fmt.Errorf("%w: coingecko market chart empty", ErrNoData)
	}
	return points, strings.ToUpper(vs), nil
}
