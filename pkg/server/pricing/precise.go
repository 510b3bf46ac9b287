package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/server/sources"
)

// defaultPreciseTimeout stands in when a source timeout is unknown.
const defaultPreciseTimeout = 5 * time.Second

// PreciseQuote is a quote extended with a trustworthiness estimate.
type PreciseQuote struct {
	Source     string          `json:"source"`
	Price      decimal.Decimal `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	Confidence float64         `json:"confidence"`
	LatencyMs  int64           `json:"latency"`
	LastUpdate time.Time       `json:"lastUpdate"`
}

// PriceRange summarizes the spread of the included prices.
type PriceRange struct {
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	Median decimal.Decimal `json:"median"`
}

// PreciseResult is the confidence-scored aggregation outcome.
type PreciseResult struct {
	Price      decimal.Decimal
	Confidence float64
	Quotes     []PreciseQuote
	Range      PriceRange
	Volatility float64
}

// BuildPrecise computes per-source confidences and the confidence-
// weighted aggregate. Per source, confidence is the mean of three
// components: volume min(1, ln(1+vol)/20), 24h volatility
// max(0, 1−(high−low)/low), and latency max(0, 1−latency/timeout),
// rounded to two decimals. timeouts maps provider names to their
// per-attempt deadlines.
func BuildPrecise(quotes []sources.Quote, timeouts map[string]time.Duration) (*PreciseResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation("precise", time.Since(start))
	}()

	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w", ErrNoPreciseData)
	}

	precise := make([]PreciseQuote, 0, len(quotes))
	prices := make([]decimal.Decimal, 0, len(quotes))

	numerator := decimal.Zero
	denominator := decimal.Zero
	confidenceSum := 0.0

	for _, q := range quotes {
		timeout, ok := timeouts[q.ProviderName()]
		if !ok || timeout <= 0 {
			timeout = defaultPreciseTimeout
		}
		confidence := scoreConfidence(&q, timeout)

		precise = append(precise, PreciseQuote{
			Source:     q.Source,
			Price:      q.Price,
			Volume:     q.Volume,
			Confidence: confidence,
			LatencyMs:  q.Latency.Milliseconds(),
			LastUpdate: q.Timestamp,
		})
		prices = append(prices, q.Price)
		confidenceSum += confidence

		if confidence > 0 {
			confDec := decimal.NewFromFloat(confidence)
			numerator = numerator.Add(q.Price.Mul(confDec))
			denominator = denominator.Add(confDec)
		}
	}

	var price decimal.Decimal
	if denominator.IsPositive() {
		price = numerator.Div(denominator)
	} else {
		// Every confidence rounded to zero: equal-weight mean.
		sum := decimal.Zero
		for _, p := range prices {
			sum = sum.Add(p)
		}
		price = sum.Div(decimal.NewFromInt(int64(len(prices))))
	}

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p.LessThan(minPrice) {
			minPrice = p
		}
		if p.GreaterThan(maxPrice) {
			maxPrice = p
		}
	}

	volatility := 0.0
	if minPrice.IsPositive() {
		volatility = round2(maxPrice.Sub(minPrice).Div(minPrice).InexactFloat64() * 100)
	}

	return &PreciseResult{
		Price:      price,
		Confidence: round2(confidenceSum / float64(len(precise))),
		Quotes:     precise,
		Range: PriceRange{
			Min:    minPrice.Round(2),
			Max:    maxPrice.Round(2),
			Median: medianOf(prices).Round(2),
		},
		Volatility: volatility,
	}, nil
}

// scoreConfidence derives the [0,1] trustworthiness estimate for one
// quote from its volume, 24h spread and fetch latency.
func scoreConfidence(q *sources.Quote, timeout time.Duration) float64 {
	volumeConf := math.Min(1, math.Log1p(q.Volume.InexactFloat64())/20)

	volatilityConf := 0.0
	if q.Low.IsPositive() && q.High.GreaterThanOrEqual(q.Low) {
		spread := q.High.Sub(q.Low).Div(q.Low).InexactFloat64()
		volatilityConf = math.Max(0, 1-spread)
	}

	latencyConf := math.Max(0, 1-float64(q.Latency.Milliseconds())/float64(timeout.Milliseconds()))

	return round2((volumeConf + volatilityConf + latencyConf) / 3)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
