package amount

import (
	"fmt"
	"math/big"
	"strings"
)

// Withdrawal is a parsed withdraw amount: either the whole position or an
// exact raw integer.
type Withdrawal struct {
	Max bool
	Raw *big.Int
}

// IsMax reports whether input is one of the whole-position sentinels.
func IsMax(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "max", "all":
		return true
	default:
		return false
	}
}

// ParseWithdraw recognizes "max" and "all" before falling back to ToRaw.
// A numeric 2^256-1 is refused: the whole-position word is only produced
// by the sentinels.
func ParseWithdraw(input string, decimals uint8) (Withdrawal, error) {
	if IsMax(input) {
		return Withdrawal{Max: true}, nil
	}
	raw, err := ToRaw(input, decimals)
	if err != nil {
		return Withdrawal{}, err
	}
	if IsMaxUint256(raw) {
		return Withdrawal{}, fmt.Errorf("%w: %q is reserved for a whole-position exit", ErrOutOfRange, input)
	}
	return Withdrawal{Raw: raw}, nil
}

// Encoded is the integer placed on the wire: 2^256-1 for a whole-position exit.
func (w Withdrawal) Encoded() *big.Int {
	if w.Max {
		return MaxUint256()
	}
	if w.Raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(w.Raw)
}

func (w Withdrawal) String() string {
	if w.Max {
		return "max"
	}
	return w.Encoded().String()
}
