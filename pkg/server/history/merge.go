package history

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Point is one sample of a price time series. A zero Volume means the
// provider reported none.
type Point struct {
	Timestamp int64           `json:"timestamp"` // seconds since epoch
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
}

// MarshalJSON omits the volume field entirely when no volume was
// reported, since omitempty cannot see through the decimal struct.
func (p Point) MarshalJSON() ([]byte, error) {
	type point struct {
		Timestamp int64            `json:"timestamp"`
		Price     decimal.Decimal  `json:"price"`
		Volume    *decimal.Decimal `json:"volume,omitempty"`
	}
	out := point{Timestamp: p.Timestamp, Price: p.Price}
	if p.Volume.IsPositive() {
		out.Volume = &p.Volume
	}
	return json.Marshal(out)
}

// Provider fetches one provider's series for an asset. The returned
// currency records the denomination of the prices.
type Provider interface {
	Name() string
	Series(ctx context.Context, asset, target, interval string, limit int) (points []Point, currency string, err error)
}

// Intervals supported by the history pipeline.
var supportedIntervals = map[string]bool{
	"1m": true,
	"5m": true,
	"1h": true,
	"1d": true,
}

// SupportedInterval reports whether the interval is one of 1m/5m/1h/1d.
func SupportedInterval(interval string) bool {
	return supportedIntervals[interval]
}

// Merge aligns and merges independently-sourced series into one
// canonical series. Points are bucketed by exact timestamp value; each
// occupied bucket takes the median of the prices present and the
// arithmetic mean of the volumes present (absent volumes are simply
// left out of the average). Buckets are emitted in ascending timestamp
// order. A single-source input is returned unchanged without bucketing.
//
// Independently-polled providers rarely produce identical timestamps,
// so in practice most buckets hold a single source's point. Kept as-is
// for compatibility with the consumers of this series.
func Merge(series ...[]Point) []Point {
	nonEmpty := make([][]Point, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}

	buckets := make(map[int64][]Point)
	for _, s := range nonEmpty {
		for _, p := range s {
			buckets[p.Timestamp] = append(buckets[p.Timestamp], p)
		}
	}

	merged := make([]Point, 0, len(buckets))
	for ts, points := range buckets {
		prices := make([]decimal.Decimal, len(points))
		volumeSum := decimal.Zero
		volumeCount := 0
		for i, p := range points {
			prices[i] = p.Price
			if p.Volume.IsPositive() {
				volumeSum = volumeSum.Add(p.Volume)
				volumeCount++
			}
		}

		point := Point{
			Timestamp: ts,
			Price:     medianPrices(prices),
		}
		if volumeCount > 0 {
			point.Volume = volumeSum.Div(decimal.NewFromInt(int64(volumeCount)))
		}
		merged = append(merged, point)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// Tail truncates a sorted series to its most recent limit points.
func Tail(points []Point, limit int) []Point {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	return points[len(points)-limit:]
}

// Convert rescales every price in the series by the given rate.
func Convert(points []Point, rate decimal.Decimal) []Point {
	converted := make([]Point, len(points))
	for i, p := range points {
		converted[i] = p
		converted[i].Price = p.Price.Mul(rate)
	}
	return converted
}

func medianPrices(prices []decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
