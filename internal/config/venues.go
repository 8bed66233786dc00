package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"yieldpilot/internal/chain"
	"yieldpilot/internal/model"
	"yieldpilot/internal/venue"
)

type vaultRow struct {
	Symbol  string `yaml:"symbol"`
	Address string `yaml:"address"`
	Asset   string `yaml:"asset"`
}

// venueFile is the YAML shape of a venue-table override. Chains may be
// given by name, alias or chain id.
type venueFile struct {
	Pools         map[string]string            `yaml:"pools"`
	Receipts      map[string]map[string]string `yaml:"receipts"`
	Markets       map[string]map[string]string `yaml:"markets"`
	DefaultMarket map[string]string            `yaml:"defaultMarket"`
	Vaults        map[string][]vaultRow        `yaml:"vaults"`
	DefaultVaults map[string]map[string]string `yaml:"defaultVaults"`
}

// LoadVenues reads path and merges it over the built-in tables. An empty
// path returns the built-in tables.
func LoadVenues(path string) (venue.Tables, error) {
	base := venue.DefaultTables()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return venue.Tables{}, fmt.Errorf("read venues file: %w", err)
	}
	overlay, err := ParseVenues(data)
	if err != nil {
		return venue.Tables{}, fmt.Errorf("venues file %s: %w", path, err)
	}
	return base.Merge(overlay), nil
}

// ParseVenues decodes a venue-table override document.
func ParseVenues(data []byte) (venue.Tables, error) {
	var file venueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return venue.Tables{}, fmt.Errorf("decode yaml: %w", err)
	}

	var out venue.Tables
	var err error
	if out.Pools, err = addressRows(file.Pools); err != nil {
		return venue.Tables{}, fmt.Errorf("pools: %w", err)
	}
	if out.Receipts, err = nestedAddressRows(file.Receipts); err != nil {
		return venue.Tables{}, fmt.Errorf("receipts: %w", err)
	}
	if out.Markets, err = nestedAddressRows(file.Markets); err != nil {
		return venue.Tables{}, fmt.Errorf("markets: %w", err)
	}
	if out.DefaultMarket, err = chainKeys(file.DefaultMarket); err != nil {
		return venue.Tables{}, fmt.Errorf("defaultMarket: %w", err)
	}
	if out.DefaultVaults, err = chainKeys(file.DefaultVaults); err != nil {
		return venue.Tables{}, fmt.Errorf("defaultVaults: %w", err)
	}

	out.Vaults = make(map[model.Chain]map[string]venue.Vault, len(file.Vaults))
	for name, rows := range file.Vaults {
		c, err := model.ParseChain(name)
		if err != nil {
			return venue.Tables{}, fmt.Errorf("vaults: %w", err)
		}
		vaults := make(map[string]venue.Vault, len(rows))
		for _, row := range rows {
			addr, err := chain.ParseAddress(row.Address)
			if err != nil {
				return venue.Tables{}, fmt.Errorf("vault %s on %s: %w", row.Symbol, c, err)
			}
			if row.Symbol == "" {
				return venue.Tables{}, fmt.Errorf("vault %s on %s: symbol is required", row.Address, c)
			}
			asset := row.Asset
			if asset == "" {
				asset = venue.VaultBaseSymbol(row.Symbol)
			}
			vaults[model.Key(row.Symbol)] = venue.Vault{Symbol: row.Symbol, Address: addr, Asset: model.Key(asset)}
		}
		out.Vaults[c] = vaults
	}
	return out, nil
}

func chainKeys[V any](rows map[string]V) (map[model.Chain]V, error) {
	out := make(map[model.Chain]V, len(rows))
	for name, v := range rows {
		c, err := model.ParseChain(name)
		if err != nil {
			return nil, err
		}
		out[c] = v
	}
	return out, nil
}

func addressRows(rows map[string]string) (map[model.Chain]common.Address, error) {
	byChain, err := chainKeys(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Chain]common.Address, len(byChain))
	for c, raw := range byChain {
		addr, err := chain.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
		out[c] = addr
	}
	return out, nil
}

func nestedAddressRows(rows map[string]map[string]string) (map[model.Chain]map[string]common.Address, error) {
	byChain, err := chainKeys(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Chain]map[string]common.Address, len(byChain))
	for c, symbols := range byChain {
		addrs := make(map[string]common.Address, len(symbols))
		for symbol, raw := range symbols {
			addr, err := chain.ParseAddress(raw)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", c, symbol, err)
			}
			addrs[model.Key(symbol)] = addr
		}
		out[c] = addrs
	}
	return out, nil
}
