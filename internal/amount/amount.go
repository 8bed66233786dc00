// Package amount converts human decimal strings to raw token integers
// without floating point.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrEmptyAmount = errors.New("amount is empty")
	ErrNotANumber  = errors.New("amount is not a number")
	ErrNegative    = errors.New("amount is negative")
	ErrNonFinite   = errors.New("amount is not finite")
	ErrOutOfRange  = errors.New("amount does not fit in uint256")
)

var nonFinite = map[string]struct{}{
	"inf":       {},
	"+inf":      {},
	"infinity":  {},
	"+infinity": {},
	"nan":       {},
	"+nan":      {},
}

// MaxUint256 returns a fresh copy of 2^256-1.
func MaxUint256() *big.Int {
	return new(uint256.Int).SetAllOne().ToBig()
}

// IsMaxUint256 reports whether v is the all-ones 256-bit word.
func IsMaxUint256(v *big.Int) bool {
	return v != nil && v.Cmp(MaxUint256()) == 0
}

// Fits256 reports whether v is a valid uint256 word.
func Fits256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.BitLen() <= 256
}

// ToRaw parses amount into an integer scaled by 10^decimals. Fractional
// digits beyond decimals are dropped, never rounded.
func ToRaw(amount string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		if _, ok := nonFinite[strings.ToLower(s[1:])]; ok {
			return nil, fmt.Errorf("%w: %q", ErrNonFinite, amount)
		}
		return nil, fmt.Errorf("%w: %q", ErrNegative, amount)
	}
	if _, ok := nonFinite[strings.ToLower(s)]; ok {
		return nil, fmt.Errorf("%w: %q", ErrNonFinite, amount)
	}

	whole, frac, found := strings.Cut(s, ".")
	if found && strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}

	width := int(decimals)
	if len(frac) > width {
		frac = frac[:width]
	} else {
		frac += strings.Repeat("0", width-len(frac))
	}

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotANumber, amount)
	}
	if !Fits256(raw) {
		return nil, fmt.Errorf("%w: %q", ErrOutOfRange, amount)
	}
	return raw, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
