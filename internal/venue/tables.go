package venue

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/model"
)

// Vault is one curated ERC-4626 vault.
type Vault struct {
	Symbol  string
	Address common.Address
	Asset   string
}

// Tables holds every static contract address the adapters need. A Tables
// value is built once at startup and only read afterwards.
type Tables struct {
	// Fixed pool: one pool per chain, receipt tokens keyed by asset symbol.
	Pools    map[model.Chain]common.Address
	Receipts map[model.Chain]map[string]common.Address

	// Isolated markets keyed by base-asset symbol, plus the per-chain
	// default base used when no market is named.
	Markets       map[model.Chain]map[string]common.Address
	DefaultMarket map[model.Chain]string

	// Vaults keyed by vault symbol, plus the default vault per base asset.
	Vaults        map[model.Chain]map[string]Vault
	DefaultVaults map[model.Chain]map[string]string
}

// DefaultTables returns a fresh copy of the built-in mainnet deployments.
func DefaultTables() Tables {
	return Tables{
		Pools: map[model.Chain]common.Address{
			model.Ethereum: common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"),
			model.Base:     common.HexToAddress("0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"),
			model.Arbitrum: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
			model.Optimism: common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
			model.Polygon:  common.HexToAddress("0x794a61358D6845594F94dc1DB02A252b5b4814aD"),
		},
		Receipts: map[model.Chain]map[string]common.Address{
			model.Ethereum: {
				"USDC": common.HexToAddress("0x98C23E9d8f34FEFb1B7BD6a91B7FF122F4e16F5c"),
				"USDT": common.HexToAddress("0x23878914EFE38d27C4D67Ab83ed1b93A74D4086a"),
				"DAI":  common.HexToAddress("0x018008bfb33d285247A21d44E50697654f754e63"),
				"WETH": common.HexToAddress("0x4d5F47FA6A74757f35C14fD3a6Ef8E3C9BC514E8"),
			},
			model.Base: {
				"USDC": common.HexToAddress("0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB"),
				"WETH": common.HexToAddress("0xD4a0e0b9149BCee3C920d2E00b5dE09138fd8bb7"),
			},
			model.Arbitrum: {
				"USDC": common.HexToAddress("0x724dc807b04555b71ed48a6896b6F41593b8C637"),
				"USDT": common.HexToAddress("0x6ab707Aca953eDAeFBc4fD23bA73294241490620"),
				"WETH": common.HexToAddress("0xe50fA9b3c56FfB159cB0FCA61F5c9D750e8128c8"),
			},
			model.Optimism: {
				"USDC": common.HexToAddress("0x38d693cE1dF5AaDF7bC62595A37D667aD57922e5"),
				"WETH": common.HexToAddress("0xe50fA9b3c56FfB159cB0FCA61F5c9D750e8128c8"),
			},
			model.Polygon: {
				"USDC": common.HexToAddress("0xA4D94019934D8333Ef880ABFFbF2FDd611C762BD"),
				"WETH": common.HexToAddress("0xe50fA9b3c56FfB159cB0FCA61F5c9D750e8128c8"),
			},
		},
		Markets: map[model.Chain]map[string]common.Address{
			model.Ethereum: {
				"USDC": common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3"),
				"WETH": common.HexToAddress("0xA17581A9E3356d9A858b789D68B4d866e593aE94"),
				"USDT": common.HexToAddress("0x3Afdc9BCA9213A35503b077a6072F3D0d5AB0840"),
			},
			model.Base: {
				"USDC": common.HexToAddress("0xb125E6687d4313864e53df431d5425969c15Eb2F"),
				"WETH": common.HexToAddress("0x46e6b214b524310239732D51387075E0e70970bf"),
			},
			model.Arbitrum: {
				"USDC": common.HexToAddress("0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"),
				"USDT": common.HexToAddress("0xd98Be00b5D27fc98112BdE293e487f8D4cA57d07"),
			},
			model.Optimism: {
				"USDC": common.HexToAddress("0x2e44e174f7D53F0212823acC11C01A11d58c5bCB"),
			},
			model.Polygon: {
				"USDC": common.HexToAddress("0xF25212E676D1F7F89Cd72fFEe66158f541246445"),
			},
		},
		DefaultMarket: map[model.Chain]string{
			model.Ethereum: "USDC",
			model.Base:     "USDC",
			model.Arbitrum: "USDC",
			model.Optimism: "USDC",
			model.Polygon:  "USDC",
		},
		Vaults: map[model.Chain]map[string]Vault{
			model.Ethereum: {
				"STEAKUSDC": {Symbol: "steakUSDC", Address: common.HexToAddress("0xBEEF01735c132Ada46AA9aA4c54623cAA92A64CB"), Asset: "USDC"},
				"GTUSDC":    {Symbol: "gtUSDC", Address: common.HexToAddress("0xdd0f28e19C1780eb6396170735D45153D261490d"), Asset: "USDC"},
				"GTWETH":    {Symbol: "gtWETH", Address: common.HexToAddress("0x2371e134e3455e0593363cBF89d3b6cf53740618"), Asset: "WETH"},
				"RE7WETH":   {Symbol: "re7WETH", Address: common.HexToAddress("0x78Fc2c2eD1A4cDb5402365934aE5648aDAd094d0"), Asset: "WETH"},
			},
			model.Base: {
				"STEAKUSDC": {Symbol: "steakUSDC", Address: common.HexToAddress("0xbeeF010f9cb27031ad51e3333f9aF9C6B1228183"), Asset: "USDC"},
				"MWUSDC":    {Symbol: "mwUSDC", Address: common.HexToAddress("0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca"), Asset: "USDC"},
			},
		},
		DefaultVaults: map[model.Chain]map[string]string{
			model.Ethereum: {"USDC": "steakUSDC", "WETH": "gtWETH"},
			model.Base:     {"USDC": "steakUSDC"},
		},
	}
}

// Merge overlays other on top of t and returns the combined tables. Neither
// input is modified.
func (t Tables) Merge(other Tables) Tables {
	out := Tables{
		Pools:         mergeFlat(t.Pools, other.Pools),
		Receipts:      mergeNested(t.Receipts, other.Receipts),
		Markets:       mergeNested(t.Markets, other.Markets),
		DefaultMarket: mergeFlat(t.DefaultMarket, other.DefaultMarket),
		Vaults:        mergeNested(t.Vaults, other.Vaults),
		DefaultVaults: mergeNested(t.DefaultVaults, other.DefaultVaults),
	}
	return out
}

func mergeFlat[V any](base, over map[model.Chain]V) map[model.Chain]V {
	out := make(map[model.Chain]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func mergeNested[V any](base, over map[model.Chain]map[string]V) map[model.Chain]map[string]V {
	out := make(map[model.Chain]map[string]V, len(base)+len(over))
	for _, src := range []map[model.Chain]map[string]V{base, over} {
		for chain, rows := range src {
			dst, ok := out[chain]
			if !ok {
				dst = make(map[string]V, len(rows))
				out[chain] = dst
			}
			for k, v := range rows {
				dst[model.Key(k)] = v
			}
		}
	}
	return out
}

// VaultBaseSymbol reduces a curated vault symbol to its underlying asset
// symbol by dropping the leading lower-case curator prefix, so "steakUSDC"
// becomes "USDC" and "re7WETH" becomes "WETH". Symbols without a prefix are
// returned unchanged.
func VaultBaseSymbol(vaultSymbol string) string {
	s := strings.TrimSpace(vaultSymbol)
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9' && i > 0) {
			i++
			continue
		}
		break
	}
	if i == len(s) {
		return strings.ToUpper(s)
	}
	return s[i:]
}

func chainsOf[V any](m map[model.Chain]V) []model.Chain {
	out := make([]model.Chain, 0, len(m))
	for _, chain := range model.Chains() {
		if _, ok := m[chain]; ok {
			out = append(out, chain)
		}
	}
	return out
}
