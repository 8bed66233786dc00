package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the conventional placeholder for a chain's gas token.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Asset is a fungible token on one chain.
type Asset struct {
	Chain    Chain          `json:"chain"`
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Native   bool           `json:"native,omitempty"`
}

// SameAs reports whether both assets are the same token on the same chain.
func (a Asset) SameAs(other Asset) bool {
	if a.Chain != other.Chain {
		return false
	}
	if a.Native || other.Native {
		return a.Native == other.Native
	}
	return a.Address == other.Address
}

// Key is the lookup form of a token symbol.
func Key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
