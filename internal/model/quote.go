package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Quote is a normalized route for a swap or cross-chain transfer.
type Quote struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Tool     string `json:"tool,omitempty"`

	From Asset `json:"from"`
	To   Asset `json:"to"`

	FromAmountRaw  *big.Int        `json:"fromAmountRaw"`
	FromAmount     decimal.Decimal `json:"fromAmount"`
	FromAmountUSD  decimal.Decimal `json:"fromAmountUsd"`
	ToAmountRaw    *big.Int        `json:"toAmountRaw"`
	ToAmount       decimal.Decimal `json:"toAmount"`
	ToAmountUSD    decimal.Decimal `json:"toAmountUsd"`
	ToAmountMinRaw *big.Int        `json:"toAmountMinRaw"`
	ToAmountMin    decimal.Decimal `json:"toAmountMin"`

	PriceImpactPct decimal.Decimal `json:"priceImpactPct"`
	GasCostUSD     decimal.Decimal `json:"gasCostUsd"`
	Duration       time.Duration   `json:"duration,omitempty"`

	ApprovalRequired bool           `json:"approvalRequired"`
	ApprovalAddress  common.Address `json:"approvalAddress,omitempty"`

	Tx *EncodedCall `json:"tx,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// NetReceivable is the amount the route guarantees after fees and slippage.
func (q Quote) NetReceivable() *big.Int {
	if q.ToAmountMinRaw != nil {
		return q.ToAmountMinRaw
	}
	if q.ToAmountRaw != nil {
		return q.ToAmountRaw
	}
	return new(big.Int)
}
