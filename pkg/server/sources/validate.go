package sources

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// plausibility band multipliers for the 24h high/low check, guarding
// against stale or garbled ticker snapshots.
var (
	highBand = decimal.NewFromFloat(1.1)
	lowBand  = decimal.NewFromFloat(0.9)
)

// PriceFromFloat converts a raw float price, rejecting NaN, infinities
// and non-positive values.
func PriceFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidPrice, f)
	}
	return decimal.NewFromFloat(f), nil
}

// VolumeFromFloat converts a raw float volume, rejecting NaN, infinities
// and negative values.
func VolumeFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidVolume, f)
	}
	return decimal.NewFromFloat(f), nil
}

// Validate applies the uniform quote validation rules: the price must be
// positive, the volume non-negative, and when a 24h high/low is present
// the price must sit inside [low×0.9, high×1.1] with high >= low.
func (q *Quote) Validate() error {
	if !q.Price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, q.Price.String())
	}
	if q.Volume.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidVolume, q.Volume.String())
	}

	if q.High.IsPositive() && q.Low.IsPositive() {
		if q.High.LessThan(q.Low) {
			return fmt.Errorf("%w: high=%s low=%s", ErrImplausibleRange, q.High.String(), q.Low.String())
		}
		if q.Price.GreaterThan(q.High.Mul(highBand)) {
			return fmt.Errorf("%w: price=%s high=%s", ErrPriceOutsideRange, q.Price.String(), q.High.String())
		}
		if q.Price.LessThan(q.Low.Mul(lowBand)) {
			return fmt.Errorf("%w: price=%s low=%s", ErrPriceOutsideRange, q.Price.String(), q.Low.String())
		}
	}

	return nil
}
