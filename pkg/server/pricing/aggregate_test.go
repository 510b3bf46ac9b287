package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-api/pkg/server/sources"
)

func TestLookupWeight_Clamping(t *testing.T) {
	weights := map[string]float64{
		"low":  0.1,
		"high": 3.0,
		"ok":   0.8,
	}

	assert.Equal(t, MinWeight, LookupWeight(weights, "low"))
	assert.Equal(t, MaxWeight, LookupWeight(weights, "high"))
	assert.Equal(t, 0.8, LookupWeight(weights, "ok"))
	assert.Equal(t, DefaultWeight, LookupWeight(weights, "missing"))
}

func TestAggregate_NoQuotes(t *testing.T) {
	_, err := Aggregate(nil, nil)
	require.ErrorIs(t, err, ErrNoQuotes)
}

func TestAggregate_SingleQuoteExact(t *testing.T) {
	price := decimal.RequireFromString("50123.456789")
	quotes := []sources.Quote{
		{Source: "binance:BTCUSDT", Price: price},
	}

	result, err := Aggregate(quotes, nil)
	require.NoError(t, err)
	assert.True(t, result.Equal(price))
}

func TestAggregate_WeightedMedianFavorsHeavierSource(t *testing.T) {
	quotes := []sources.Quote{
		{Source: "binance:BTCUSDT", Price: decimal.NewFromInt(100)},
		{Source: "shady:BTCUSD", Price: decimal.NewFromInt(200)},
	}
	weights := map[string]float64{
		"binance": 1.0,
		"shady":   0.5,
	}

	// binance repeats 10 times, shady 5: the median of the multiset
	// lands on the heavier source's price.
	result, err := Aggregate(quotes, weights)
	require.NoError(t, err)
	assert.True(t, result.Equal(decimal.NewFromInt(100)))
}

func TestAggregate_EqualWeightsEvenCount(t *testing.T) {
	quotes := []sources.Quote{
		{Source: "a:X", Price: decimal.NewFromInt(100)},
		{Source: "b:X", Price: decimal.NewFromInt(200)},
	}

	result, err := Aggregate(quotes, nil)
	require.NoError(t, err)
	assert.True(t, result.Equal(decimal.NewFromInt(150)))
}

func TestAggregate_VolumeWeighted(t *testing.T) {
	// Volumes chosen so ln(1+volume) is exactly 1 and 2.
	quotes := []sources.Quote{
		{Source: "a:X", Price: decimal.NewFromInt(100), Volume: decimal.NewFromFloat(math.E - 1)},
		{Source: "b:X", Price: decimal.NewFromInt(200), Volume: decimal.NewFromFloat(math.E*math.E - 1)},
	}
	weights := map[string]float64{"a": 1.0, "b": 1.0}

	result, err := Aggregate(quotes, weights)
	require.NoError(t, err)

	// (100*1 + 200*2) / 3
	expected := decimal.NewFromFloat(500.0 / 3.0)
	assert.True(t, result.Sub(expected).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"got %s", result.String())
}

func TestAggregate_VolumeWeightedSkipsVolumelessQuotes(t *testing.T) {
	quotes := []sources.Quote{
		{Source: "a:X", Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(1000)},
		{Source: "b:X", Price: decimal.NewFromInt(90000)},
	}

	// Once any quote carries volume, volumeless quotes contribute
	// nothing instead of dragging the mean.
	result, err := Aggregate(quotes, nil)
	require.NoError(t, err)
	assert.True(t, result.Equal(decimal.NewFromInt(100)))
}
