package amount

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FromRaw scales a raw integer down by 10^decimals.
func FromRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Format renders raw in human units without trailing zeros.
func Format(raw *big.Int, decimals uint8) string {
	if IsMaxUint256(raw) {
		return "max"
	}
	return FromRaw(raw, decimals).String()
}
