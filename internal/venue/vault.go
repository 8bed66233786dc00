package venue

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
)

// StandardVault encodes ERC-4626 calls against curated vaults. A symbol
// either names a vault directly or names a base asset that maps to the
// chain's default vault for it.
type StandardVault struct {
	protocol string
	vaults   map[model.Chain]map[string]Vault
	defaults map[model.Chain]map[string]string
}

func NewStandardVault(protocol string, tables Tables) *StandardVault {
	return &StandardVault{
		protocol: protocol,
		vaults:   tables.Vaults,
		defaults: tables.DefaultVaults,
	}
}

func (v *StandardVault) Protocol() string { return v.protocol }

func (v *StandardVault) Kind() Kind { return KindVault }

func (v *StandardVault) Chains() []model.Chain { return chainsOf(v.vaults) }

// Vault resolves a vault symbol or base-asset symbol to a vault.
func (v *StandardVault) Vault(chain model.Chain, symbol string) (Vault, bool) {
	vaults, ok := v.vaults[chain]
	if !ok {
		return Vault{}, false
	}
	key := model.Key(symbol)
	if vault, ok := vaults[key]; ok {
		return vault, true
	}
	if name, ok := v.defaults[chain][key]; ok {
		vault, ok := vaults[model.Key(name)]
		return vault, ok
	}
	return Vault{}, false
}

func (v *StandardVault) ResolvePool(chain model.Chain, symbol string) (common.Address, bool) {
	vault, ok := v.Vault(chain, symbol)
	return vault.Address, ok
}

// ResolveReceiptToken returns the vault itself: shares are the vault token.
func (v *StandardVault) ResolveReceiptToken(asset string, chain model.Chain) (common.Address, bool) {
	return v.ResolvePool(chain, asset)
}

func (v *StandardVault) resolve(chain model.Chain, market, symbol string) (Vault, error) {
	name := market
	if strings.TrimSpace(name) == "" {
		name = symbol
	}
	vault, ok := v.Vault(chain, name)
	if !ok {
		return Vault{}, unavailable(v.protocol, chain, name)
	}
	if strings.TrimSpace(symbol) != "" && model.Key(vault.Asset) != model.Key(symbol) {
		return Vault{}, fmt.Errorf("%w: %s holds %s, not %s", ErrAssetMismatch, vault.Symbol, vault.Asset, symbol)
	}
	return vault, nil
}

// EncodeSupply packs deposit(assets, receiver).
func (v *StandardVault) EncodeSupply(req SupplyRequest) (model.EncodedCall, error) {
	vault, err := v.resolve(req.Chain, req.Market, req.Symbol)
	if err != nil {
		return model.EncodedCall{}, err
	}
	raw, err := amount.ToRaw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}

	parsed, err := ERC4626ABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	data, err := packCall(v.protocol, KindVault, parsed, "deposit", raw, req.OnBehalfOf)
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: vault.Address, Data: data, AmountRaw: raw, Method: "deposit"}, nil
}

// EncodeWithdraw packs withdraw(assets, receiver, owner) for an exact
// amount. A whole-position exit packs redeem(shares, receiver, owner) with
// 2^256-1 shares instead: withdraw would read the sentinel as an asset
// amount.
func (v *StandardVault) EncodeWithdraw(req WithdrawRequest) (model.EncodedCall, error) {
	vault, err := v.resolve(req.Chain, req.Market, req.Symbol)
	if err != nil {
		return model.EncodedCall{}, err
	}
	w, err := amount.ParseWithdraw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}
	owner := req.Owner
	if owner == (common.Address{}) {
		owner = req.Recipient
	}

	parsed, err := ERC4626ABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	method := "withdraw"
	if w.Max {
		method = "redeem"
	}
	raw := w.Encoded()
	data, err := packCall(v.protocol, KindVault, parsed, method, raw, req.Recipient, owner)
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: vault.Address, Data: data, AmountRaw: raw, Method: method}, nil
}
