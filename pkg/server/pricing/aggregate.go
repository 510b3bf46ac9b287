package pricing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/sources"
)

const (
	// DefaultWeight is assigned to providers missing from the
	// reliability table.
	DefaultWeight = 0.5
	// MinWeight and MaxWeight bound the reliability weights.
	MinWeight = 0.5
	MaxWeight = 1.0
)

// LookupWeight returns the clamped reliability weight for a provider.
func LookupWeight(weights map[string]float64, provider string) float64 {
	w, ok := weights[provider]
	if !ok {
		return DefaultWeight
	}
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// Aggregate produces the single published price from the filtered quote
// set. Without volume information it approximates a reliability-weighted
// median by repeating each price round(weight×10) times and taking the
// median of the multiset. When any quote carries volume, each quote
// contributes weight×ln(1+volume) to a weighted mean, skipping
// zero-weight terms; a zero total weight is reported as ErrZeroWeight so
// the caller can fall back to a raw quote.
func Aggregate(quotes []sources.Quote, weights map[string]float64) (decimal.Decimal, error) {
	start := time.Now()

	if len(quotes) == 0 {
		return decimal.Zero, fmt.Errorf("%w", ErrNoQuotes)
	}

	hasVolume := false
	for _, q := range quotes {
		if q.Volume.IsPositive() {
			hasVolume = true
			break
		}
	}

	if !hasVolume {
		defer func() {
			metrics.RecordAggregation("weighted_median", time.Since(start))
		}()
		return weightedMedian(quotes, weights), nil
	}

	defer func() {
		metrics.RecordAggregation("volume_weighted", time.Since(start))
	}()

	numerator := decimal.Zero
	denominator := decimal.Zero
	for _, q := range quotes {
		weight := LookupWeight(weights, q.ProviderName())
		combined := weight * math.Log1p(q.Volume.InexactFloat64())
		if combined <= 0 {
			continue
		}
		combinedDec := decimal.NewFromFloat(combined)
		numerator = numerator.Add(q.Price.Mul(combinedDec))
		denominator = denominator.Add(combinedDec)
	}

	if denominator.IsZero() {
		return decimal.Zero, fmt.Errorf("%w", ErrZeroWeight)
	}
	return numerator.Div(denominator), nil
}

// weightedMedian approximates a weighted median without interpolation:
// each price is repeated round(weight×10) times (at least once) and the
// median of the expanded multiset is taken.
func weightedMedian(quotes []sources.Quote, weights map[string]float64) decimal.Decimal {
	expanded := make([]decimal.Decimal, 0, len(quotes)*10)
	for _, q := range quotes {
		weight := LookupWeight(weights, q.ProviderName())
		repeats := int(math.Round(weight * 10))
		if repeats < 1 {
			repeats = 1
		}
		for i := 0; i < repeats; i++ {
			expanded = append(expanded, q.Price)
		}
	}

	sort.Slice(expanded, func(i, j int) bool {
		return expanded[i].LessThan(expanded[j])
	})

	n := len(expanded)
	if n%2 == 1 {
		return expanded[n/2]
	}
	return expanded[n/2-1].Add(expanded[n/2]).Div(decimal.NewFromInt(2))
}
