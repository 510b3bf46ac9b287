package sources

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceFromFloat(t *testing.T) {
	price, err := PriceFromFloat(50000.5)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(50000.5)))

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := PriceFromFloat(bad)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}
}

func TestVolumeFromFloat(t *testing.T) {
	volume, err := VolumeFromFloat(0)
	require.NoError(t, err)
	assert.True(t, volume.IsZero())

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := VolumeFromFloat(bad)
		assert.ErrorIs(t, err, ErrInvalidVolume)
	}
}

func TestQuoteValidate_Valid(t *testing.T) {
	q := &Quote{
		Source:   "binance:BTCUSDT",
		Currency: "USDT",
		Price:    decimal.NewFromInt(50000),
		Volume:   decimal.NewFromInt(1000),
		High:     decimal.NewFromInt(51000),
		Low:      decimal.NewFromInt(49000),
	}
	assert.NoError(t, q.Validate())
}

func TestQuoteValidate_NoRangeReported(t *testing.T) {
	q := &Quote{Price: decimal.NewFromInt(50000)}
	assert.NoError(t, q.Validate())
}

func TestQuoteValidate_NonPositivePrice(t *testing.T) {
	q := &Quote{Price: decimal.Zero}
	assert.ErrorIs(t, q.Validate(), ErrInvalidPrice)
}

func TestQuoteValidate_HighBelowLow(t *testing.T) {
	q := &Quote{
		Price: decimal.NewFromInt(50000),
		High:  decimal.NewFromInt(49000),
		Low:   decimal.NewFromInt(51000),
	}
	assert.ErrorIs(t, q.Validate(), ErrImplausibleRange)
}

func TestQuoteValidate_PriceOutsideBand(t *testing.T) {
	// Above high × 1.1
	q := &Quote{
		Price: decimal.NewFromInt(60000),
		High:  decimal.NewFromInt(51000),
		Low:   decimal.NewFromInt(49000),
	}
	assert.ErrorIs(t, q.Validate(), ErrPriceOutsideRange)

	// Below low × 0.9
	q = &Quote{
		Price: decimal.NewFromInt(40000),
		High:  decimal.NewFromInt(51000),
		Low:   decimal.NewFromInt(49000),
	}
	assert.ErrorIs(t, q.Validate(), ErrPriceOutsideRange)
}

func TestQuoteValidate_PriceWithinTolerance(t *testing.T) {
	// Slightly above the 24h high is tolerated up to the 1.1 band.
	q := &Quote{
		Price: decimal.NewFromInt(52000),
		High:  decimal.NewFromInt(51000),
		Low:   decimal.NewFromInt(49000),
	}
	assert.NoError(t, q.Validate())
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency("usdt"))
	assert.Equal(t, "USD", NormalizeCurrency("USDC"))
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
	assert.Equal(t, "EUR", NormalizeCurrency("eur"))
}

func TestSameCurrency(t *testing.T) {
	assert.True(t, SameCurrency("USDT", "usd"))
	assert.True(t, SameCurrency("EUR", "eur"))
	assert.False(t, SameCurrency("EUR", "USD"))
}

func TestQuoteProviderName(t *testing.T) {
	q := &Quote{Source: "binance:BTCUSDT"}
	assert.Equal(t, "binance", q.ProviderName())

	q = &Quote{Source: "coinbase:BTC-USD->EUR"}
	assert.Equal(t, "coinbase", q.ProviderName())

	q = &Quote{Source: "plain"}
	assert.Equal(t, "plain", q.ProviderName())
}
