package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/server/sources"
)

// Consolidate merges heterogeneous quotes (direct-to-target, USD- and
// USDT-denominated) into one currency-homogeneous list. Quotes already
// denominated in the target currency pass through unchanged; USD and
// USD-stablecoin quotes are multiplied by the resolved FX rate with the
// conversion recorded in the provenance tag. When the rate is
// unavailable, USD quotes are dropped rather than guessed so the output
// never mixes units. Collisions on the provenance tag keep the entry
// with the larger volume.
func Consolidate(quotes []*sources.Quote, target string, fxRate decimal.Decimal, fxOK bool, logger *logging.Logger) []sources.Quote {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	targetCur := sources.NormalizeCurrency(target)

	byTag := make(map[string]sources.Quote)
	add := func(q sources.Quote) {
		existing, ok := byTag[q.Source]
		if !ok || q.Volume.GreaterThan(existing.Volume) {
			byTag[q.Source] = q
		}
	}

	for _, q := range quotes {
		if q == nil || !q.Price.IsPositive() {
			continue
		}

		switch {
		case sources.SameCurrency(q.Currency, targetCur):
			out := *q
			out.Currency = targetCur
			add(out)

		case sources.IsUSDEquivalent(q.Currency):
			if !fxOK || !fxRate.IsPositive() {
				logger.Warn("Dropping USD quote, FX rate unavailable",
					"source", q.Source,
					"target", targetCur)
				continue
			}
			out := *q
			out.Price = q.Price.Mul(fxRate)
			out.Source = q.Source + "->" + targetCur
			out.Currency = targetCur
			add(out)

		default:
			logger.Warn("Dropping quote in unconvertible denomination",
				"source", q.Source,
				"currency", q.Currency,
				"target", targetCur)
		}
	}

	result := make([]sources.Quote, 0, len(byTag))
	for _, q := range byTag {
		result = append(result, q)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Source < result[j].Source
	})
	return result
}
