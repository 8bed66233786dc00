package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/model"
)

var ErrUnknownAsset = errors.New("unknown asset")

type token struct {
	symbol   string
	address  string
	decimals uint8
}

var knownTokens = map[model.Chain][]token{
	model.Ethereum: {
		{"USDC", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6},
		{"USDT", "0xdAC17F958D2ee523a2206206994597C13D831ec7", 6},
		{"DAI", "0x6B175474E89094C44Da98b954EedeAC495271d0F", 18},
		{"WETH", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18},
	},
	model.Base: {
		{"USDC", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", 6},
		{"WETH", "0x4200000000000000000000000000000000000006", 18},
	},
	model.Arbitrum: {
		{"USDC", "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", 6},
		{"USDT", "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", 6},
		{"WETH", "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", 18},
	},
	model.Optimism: {
		{"USDC", "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", 6},
		{"WETH", "0x4200000000000000000000000000000000000006", 18},
	},
	model.Polygon: {
		{"USDC", "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", 6},
		{"WETH", "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", 18},
	},
}

var nativeSymbols = map[model.Chain]string{
	model.Ethereum: "ETH",
	model.Base:     "ETH",
	model.Arbitrum: "ETH",
	model.Optimism: "ETH",
	model.Polygon:  "POL",
}

// MetaReader looks up token metadata on chain.
type MetaReader interface {
	TokenMeta(ctx context.Context, chain model.Chain, token common.Address) (model.Asset, error)
}

// Resolver turns a symbol, address or "native" into an Asset.
type Resolver struct {
	meta MetaReader
}

// NewResolver returns a resolver. meta may be nil, in which case unknown
// addresses fail instead of being read from chain.
func NewResolver(meta MetaReader) *Resolver {
	return &Resolver{meta: meta}
}

// Resolve finds input on chain by known-symbol table, native sentinel, or
// address lookup.
func (r *Resolver) Resolve(ctx context.Context, chain model.Chain, input string) (model.Asset, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return model.Asset{}, fmt.Errorf("%w: empty symbol", ErrUnknownAsset)
	}
	if asset, ok := Native(chain, in); ok {
		return asset, nil
	}

	if common.IsHexAddress(in) {
		addr := common.HexToAddress(in)
		if addr == model.NativeAddress {
			if asset, ok := Native(chain, "native"); ok {
				return asset, nil
			}
		}
		if asset, ok := lookupAddress(chain, addr); ok {
			return asset, nil
		}
		if r.meta == nil {
			return model.Asset{}, fmt.Errorf("%w: %s on %s", ErrUnknownAsset, in, chain)
		}
		asset, err := r.meta.TokenMeta(ctx, chain, addr)
		if err != nil {
			return model.Asset{}, fmt.Errorf("token metadata %s on %s: %w", in, chain, err)
		}
		return asset, nil
	}

	if asset, ok := lookupSymbol(chain, in); ok {
		return asset, nil
	}
	return model.Asset{}, fmt.Errorf("%w: %s on %s", ErrUnknownAsset, in, chain)
}

// Native returns the chain's gas token when input names it.
func Native(chain model.Chain, input string) (model.Asset, bool) {
	symbol, ok := nativeSymbols[chain]
	if !ok {
		return model.Asset{}, false
	}
	key := model.Key(input)
	if key != "NATIVE" && key != symbol && !(chain == model.Polygon && key == "MATIC") {
		return model.Asset{}, false
	}
	return model.Asset{
		Chain:    chain,
		Symbol:   symbol,
		Address:  model.NativeAddress,
		Decimals: 18,
		Native:   true,
	}, true
}

func lookupSymbol(chain model.Chain, symbol string) (model.Asset, bool) {
	key := model.Key(symbol)
	for _, t := range knownTokens[chain] {
		if t.symbol == key {
			return t.asset(chain), true
		}
	}
	return model.Asset{}, false
}

func lookupAddress(chain model.Chain, addr common.Address) (model.Asset, bool) {
	for _, t := range knownTokens[chain] {
		if common.HexToAddress(t.address) == addr {
			return t.asset(chain), true
		}
	}
	return model.Asset{}, false
}

func (t token) asset(chain model.Chain) model.Asset {
	return model.Asset{
		Chain:    chain,
		Symbol:   t.symbol,
		Address:  common.HexToAddress(t.address),
		Decimals: t.decimals,
	}
}
