package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/sources"
)

var (
	outlierLowerBand = decimal.NewFromFloat(0.5)
	outlierUpperBand = decimal.NewFromInt(2)
)

// FilterOutliers removes quotes unlikely to reflect genuine market
// price: a quote survives only if it lies within [0.5×median, 2×median]
// and does not exceed the per-asset sanity ceiling (zero ceiling means
// no ceiling configured). If filtering would remove every quote the
// filter fails open and returns the unfiltered set.
func FilterOutliers(quotes []sources.Quote, asset string, ceiling decimal.Decimal, logger *logging.Logger) []sources.Quote {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	if len(quotes) == 0 {
		return quotes
	}

	med := medianPrice(quotes)
	lower := med.Mul(outlierLowerBand)
	upper := med.Mul(outlierUpperBand)

	filtered := make([]sources.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Price.LessThan(lower) || q.Price.GreaterThan(upper) {
			metrics.RecordOutlierRejection(asset)
			logger.Debug("Rejecting outlier",
				"asset", asset,
				"source", q.Source,
				"price", q.Price.String(),
				"median", med.String())
			continue
		}
		if ceiling.IsPositive() && q.Price.GreaterThan(ceiling) {
			metrics.RecordOutlierRejection(asset)
			logger.Warn("Rejecting quote above sanity ceiling",
				"asset", asset,
				"source", q.Source,
				"price", q.Price.String(),
				"ceiling", ceiling.String())
			continue
		}
		filtered = append(filtered, q)
	}

	// Fail open on a degenerate median rather than returning nothing.
	if len(filtered) == 0 {
		logger.Warn("Outlier filter rejected every quote, reverting to unfiltered set",
			"asset", asset,
			"count", len(quotes))
		return quotes
	}
	return filtered
}

// medianPrice returns the median of the quote prices; an even count
// averages the two central values.
func medianPrice(quotes []sources.Quote) decimal.Decimal {
	prices := make([]decimal.Decimal, len(quotes))
	for i, q := range quotes {
		prices[i] = q.Price
	}
	return medianOf(prices)
}

func medianOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
