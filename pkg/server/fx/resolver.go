package fx

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tc.com/price-api/pkg/logging"
	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/sources"
)

// Resolver produces a USD-to-target multiplier from several independent
// providers. It is stateless across requests; every Resolve call starts
// from zero prior state.
type Resolver struct {
	providers []Provider
	fallback  map[string]decimal.Decimal
	timeout   time.Duration
	logger    *logging.Logger
}

// NewResolver creates a resolver over the given providers with a static
// fallback table of approximate USD rates.
func NewResolver(providers []Provider, fallbackRates map[string]float64, timeout time.Duration, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	fallback := make(map[string]decimal.Decimal, len(fallbackRates))
	for currency, rate := range fallbackRates {
		if rate > 0 {
			fallback[sources.NormalizeCurrency(currency)] = decimal.NewFromFloat(rate)
		}
	}
	return &Resolver{
		providers: providers,
		fallback:  fallback,
		timeout:   timeout,
		logger:    logger,
	}
}

// Resolve returns the conversion rate from base to target. Equal
// currencies resolve to exactly 1 without any network call. Providers
// are queried concurrently with settle-all semantics; the median of the
// succeeding values wins. When every provider fails the static fallback
// table is consulted; a target missing there is unavailable.
func (r *Resolver) Resolve(ctx context.Context, base, target string) (decimal.Decimal, error) {
	baseCur := sources.NormalizeCurrency(base)
	targetCur := sources.NormalizeCurrency(target)

	if baseCur == targetCur {
		return decimal.NewFromInt(1), nil
	}

	results := make([]decimal.Decimal, len(r.providers))
	succeeded := make([]bool, len(r.providers))

	// Settle-all fan-out: each provider gets its own deadline so one
	// slow provider cannot abort a sibling, and a failure never cancels
	// the rest.
	var g errgroup.Group
	for i, provider := range r.providers {
		i, provider := i, provider
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			rate, err := provider.Rate(callCtx, baseCur, targetCur)
			if err != nil {
				metrics.RecordFXProviderError(provider.Name())
				r.logger.Warn("FX provider failed",
					"provider", provider.Name(),
					"target", targetCur,
					"error", err.Error())
				return nil
			}
			results[i] = rate
			succeeded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	rates := make([]decimal.Decimal, 0, len(results))
	for i, ok := range succeeded {
		if ok && results[i].IsPositive() {
			rates = append(rates, results[i])
		}
	}

	if len(rates) > 0 {
		rate := median(rates)
		metrics.RecordFXResolution("ok")
		r.logger.Debug("Resolved FX rate",
			"target", targetCur,
			"providers", len(rates),
			"rate", rate.String())
		return rate, nil
	}

	if rate, ok := r.fallback[targetCur]; ok {
		metrics.RecordFXResolution("fallback")
		r.logger.Warn("All FX providers failed, using static fallback",
			"target", targetCur,
			"rate", rate.String())
		return rate, nil
	}

	metrics.RecordFXResolution("unavailable")
	return decimal.Zero, fmt.Errorf("%w: %s", ErrRateUnavailable, targetCur)
}

// DeriveCrossRate derives a USD-to-target rate from a source that quotes
// the same asset directly in both denominations:
// rate = directQuoteInTarget / directQuoteInUSD. This is the fallback
// for denominations no FX feed covers.
func DeriveCrossRate(ctx context.Context, quoter sources.Source, asset, target string) (decimal.Decimal, error) {
	var inTarget, inUSD *sources.Quote

	var g errgroup.Group
	g.Go(func() error {
		q, err := quoter.Fetch(ctx, asset, target)
		if err != nil {
			return nil
		}
		inTarget = q
		return nil
	})
	g.Go(func() error {
		q, err := quoter.Fetch(ctx, asset, "USD")
		if err != nil {
			return nil
		}
		inUSD = q
		return nil
	})
	_ = g.Wait()

	if inTarget == nil || inUSD == nil || !inUSD.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: cross-rate via %s", ErrRateUnavailable, quoter.Name())
	}
	return inTarget.Price.Div(inUSD.Price), nil
}

// median returns the median of the rates; an even count averages the
// two central values.
func median(rates []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(rates))
	copy(sorted, rates)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
