package yield

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldpilot/internal/httpjson"
	"yieldpilot/internal/model"
	"yieldpilot/internal/venue"
)

const poolsJSON = `{
  "status": "success",
  "data": [
    {"chain": "Ethereum", "project": "aave-v3", "symbol": "USDC", "tvlUsd": 500000000, "apy": 4.1, "apyBase": 4.1, "pool": "p1"},
    {"chain": "Ethereum", "project": "compound-v3", "symbol": "USDC", "tvlUsd": 300000000, "apy": 5.25, "apyBase": 4.0, "pool": "p2"},
    {"chain": "Ethereum", "project": "morpho-blue", "symbol": "USDC", "tvlUsd": 50000, "apy": 9.0, "pool": "p3", "poolMeta": "steakUSDC"},
    {"chain": "Base", "project": "aave-v3", "symbol": "USDC", "tvlUsd": 90000000, "apy": 6.0, "pool": "p4"},
    {"chain": "Ethereum", "project": "curve-dex", "symbol": "USDC", "tvlUsd": 90000000, "apy": 12.0, "pool": "p5"},
    {"chain": "Ethereum", "project": "aave-v3", "symbol": "WETH", "tvlUsd": 900000000, "apy": 2.0, "pool": "p6"}
  ]
}`

func TestLlamaFiltersAndRanks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		_, _ = w.Write([]byte(poolsJSON))
	}))
	defer srv.Close()

	llama := NewLlama(httpjson.Config{BaseURL: srv.URL}, 100_000)
	opps, err := llama.Opportunities(context.Background(), "usdc", model.Ethereum)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	require.Equal(t, venue.CompoundV3, opps[0].Protocol)
	require.Equal(t, "5.25", opps[0].APY.String())
	require.Equal(t, venue.AaveV3, opps[1].Protocol)
}

func TestScannerToleratesChainFailure(t *testing.T) {
	src := stubSource{
		model.Ethereum: {opp(venue.AaveV3, model.Ethereum, "4.1", "100")},
		model.Base:     {opp(venue.AaveV3, model.Base, "6", "10")},
	}
	scanner := NewScanner(src, 2, nil)

	opps, failures := scanner.Scan(context.Background(), "USDC", []model.Chain{model.Ethereum, model.Arbitrum, model.Base})
	require.Len(t, opps, 2)
	require.Equal(t, model.Base, opps[0].Chain)
	require.Len(t, failures, 1)
	require.Equal(t, model.Arbitrum, failures[0].Chain)
}

func TestRankTieBreaksOnTVL(t *testing.T) {
	opps := []model.Opportunity{
		opp(venue.AaveV3, model.Ethereum, "5", "10"),
		opp(venue.CompoundV3, model.Ethereum, "5", "20"),
	}
	Rank(opps)
	require.Equal(t, venue.CompoundV3, opps[0].Protocol)
}

func TestEffectiveAPY(t *testing.T) {
	apy, err := EffectiveAPY(decimal.NewFromInt(100), decimal.NewFromInt(105), year)
	require.NoError(t, err)
	require.Equal(t, "5", apy.String())

	half, err := EffectiveAPY(decimal.NewFromInt(100), decimal.NewFromInt(102), year/2)
	require.NoError(t, err)
	require.True(t, half.GreaterThan(decimal.NewFromInt(4)), "got %s", half)

	_, err = EffectiveAPY(decimal.Zero, decimal.NewFromInt(1), time.Hour)
	require.Error(t, err)
	_, err = EffectiveAPY(decimal.NewFromInt(1), decimal.NewFromInt(1), 0)
	require.Error(t, err)
}

type stubSource map[model.Chain][]model.Opportunity

func (s stubSource) Opportunities(_ context.Context, _ string, chain model.Chain) ([]model.Opportunity, error) {
	opps, ok := s[chain]
	if !ok {
		return nil, errors.New("rpc down")
	}
	return append([]model.Opportunity(nil), opps...), nil
}

func opp(protocol string, chain model.Chain, apy, tvl string) model.Opportunity {
	return model.Opportunity{
		Protocol: protocol,
		Chain:    chain,
		Symbol:   "USDC",
		APY:      decimal.RequireFromString(apy),
		TVLUSD:   decimal.RequireFromString(tvl),
	}
}
