package model

import (
	"fmt"
	"strings"
)

// Chain identifies an EVM network by its lower-case name.
type Chain string

const (
	Ethereum Chain = "ethereum"
	Base     Chain = "base"
	Arbitrum Chain = "arbitrum"
	Optimism Chain = "optimism"
	Polygon  Chain = "polygon"
)

var chainIDs = map[Chain]uint64{
	Ethereum: 1,
	Optimism: 10,
	Polygon:  137,
	Base:     8453,
	Arbitrum: 42161,
}

var chainAliases = map[string]Chain{
	"eth":          Ethereum,
	"mainnet":      Ethereum,
	"arb":          Arbitrum,
	"arbitrum one": Arbitrum,
	"op":           Optimism,
	"matic":        Polygon,
	"pol":          Polygon,
}

// Chains lists every supported chain in chain-id order.
func Chains() []Chain {
	return []Chain{Ethereum, Optimism, Polygon, Base, Arbitrum}
}

// ParseChain accepts a chain name, alias, or numeric chain id.
func ParseChain(input string) (Chain, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return "", fmt.Errorf("chain is required")
	}
	if _, ok := chainIDs[Chain(key)]; ok {
		return Chain(key), nil
	}
	if chain, ok := chainAliases[key]; ok {
		return chain, nil
	}
	for chain, id := range chainIDs {
		if fmt.Sprintf("%d", id) == key {
			return chain, nil
		}
	}
	return "", fmt.Errorf("unsupported chain: %s", input)
}

// ID returns the EIP-155 chain id, or zero for unknown chains.
func (c Chain) ID() uint64 {
	return chainIDs[c]
}

func (c Chain) String() string {
	return string(c)
}

// LookupChain is ParseChain for request input: an unknown name comes back
// as-is so the workflow can reject it with context.
func LookupChain(input string) Chain {
	if c, err := ParseChain(input); err == nil {
		return c
	}
	return Chain(strings.ToLower(strings.TrimSpace(input)))
}
