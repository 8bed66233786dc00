package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ApprovalState is derived from a live allowance read and never stored.
type ApprovalState struct {
	Needed    bool           `json:"needed"`
	Spender   common.Address `json:"spender"`
	Allowance *big.Int       `json:"allowance,omitempty"`
	Amount    *big.Int       `json:"amount,omitempty"`
	Unlimited bool           `json:"unlimited,omitempty"`
}
