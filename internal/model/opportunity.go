package model

import "github.com/shopspring/decimal"

// Opportunity is one ranked yield venue for an asset.
type Opportunity struct {
	Protocol string          `json:"protocol"`
	Chain    Chain           `json:"chain"`
	Symbol   string          `json:"symbol"`
	PoolID   string          `json:"poolId,omitempty"`
	Market   string          `json:"market,omitempty"`
	APY      decimal.Decimal `json:"apy"`
	APYBase  decimal.Decimal `json:"apyBase"`
	TVLUSD   decimal.Decimal `json:"tvlUsd"`
}
