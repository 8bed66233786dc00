package yield

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const year = 365 * 24 * time.Hour

// EffectiveAPY annualizes the growth from principal to current over
// elapsed, as a percentage. It does not correct for price movement of the
// underlying asset and is for display only.
func EffectiveAPY(principal, current decimal.Decimal, elapsed time.Duration) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, errors.New("principal must be positive")
	}
	if elapsed <= 0 {
		return decimal.Zero, errors.New("elapsed must be positive")
	}
	if current.IsNegative() {
		return decimal.Zero, errors.New("current value is negative")
	}

	growth, _ := current.Div(principal).Float64()
	periods := float64(year) / float64(elapsed)
	apy := (math.Pow(growth, periods) - 1) * 100
	if math.IsInf(apy, 0) || math.IsNaN(apy) {
		return decimal.Zero, errors.New("effective apy out of range")
	}
	return decimal.NewFromFloat(apy).Round(4), nil
}
