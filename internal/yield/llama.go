// Package yield ranks lending and vault opportunities for an asset.
package yield

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"yieldpilot/internal/httpjson"
	"yieldpilot/internal/model"
	"yieldpilot/internal/venue"
)

const DefaultLlamaURL = "https://yields.llama.fi"

// Source returns opportunities for asset on one chain, best first.
type Source interface {
	Opportunities(ctx context.Context, asset string, chain model.Chain) ([]model.Opportunity, error)
}

// projects maps feed project slugs to venue protocol identifiers.
var projects = map[string]string{
	"aave-v3":     venue.AaveV3,
	"compound-v3": venue.CompoundV3,
	"morpho-blue": venue.MetaMorpho,
	"metamorpho":  venue.MetaMorpho,
}

var llamaChains = map[string]model.Chain{
	"Ethereum": model.Ethereum,
	"Base":     model.Base,
	"Arbitrum": model.Arbitrum,
	"Optimism": model.Optimism,
	"Polygon":  model.Polygon,
}

type llamaPool struct {
	Chain     string   `json:"chain"`
	Project   string   `json:"project"`
	Symbol    string   `json:"symbol"`
	TvlUsd    float64  `json:"tvlUsd"`
	Apy       *float64 `json:"apy"`
	ApyBase   *float64 `json:"apyBase"`
	ApyReward *float64 `json:"apyReward"`
	Pool      string   `json:"pool"`
	PoolMeta  *string  `json:"poolMeta"`
}

type llamaPoolsResponse struct {
	Status string      `json:"status"`
	Data   []llamaPool `json:"data"`
}

// Llama reads the DeFiLlama yields feed. Every call fetches the feed again.
type Llama struct {
	client *httpjson.Client
	minTVL decimal.Decimal
}

func NewLlama(cfg httpjson.Config, minTVLUSD float64) *Llama {
	cfg.Service = "DeFiLlama"
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLlamaURL
	}
	return &Llama{client: httpjson.New(cfg), minTVL: decimal.NewFromFloat(minTVLUSD)}
}

func (l *Llama) Opportunities(ctx context.Context, asset string, chain model.Chain) ([]model.Opportunity, error) {
	var resp llamaPoolsResponse
	if err := l.client.Get(ctx, "/pools", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("yield feed status %q", resp.Status)
	}

	want := model.Key(asset)
	var out []model.Opportunity
	for _, p := range resp.Data {
		protocol, ok := projects[p.Project]
		if !ok {
			continue
		}
		if llamaChains[p.Chain] != chain {
			continue
		}
		if model.Key(p.Symbol) != want {
			continue
		}
		tvl := decimal.NewFromFloat(p.TvlUsd)
		if tvl.LessThan(l.minTVL) {
			continue
		}
		opp := model.Opportunity{
			Protocol: protocol,
			Chain:    chain,
			Symbol:   strings.ToUpper(p.Symbol),
			PoolID:   p.Pool,
			APY:      floatOrZero(p.Apy),
			APYBase:  floatOrZero(p.ApyBase),
			TVLUSD:   tvl,
		}
		if p.PoolMeta != nil {
			opp.Market = *p.PoolMeta
		}
		out = append(out, opp)
	}
	Rank(out)
	return out, nil
}

func floatOrZero(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v).Round(4)
}
