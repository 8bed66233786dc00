package venue

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
)

// IsolatedMarket encodes calls for a protocol that deploys one market
// contract per base asset. The market contract doubles as the receipt token.
type IsolatedMarket struct {
	protocol      string
	markets       map[model.Chain]map[string]common.Address
	defaultMarket map[model.Chain]string
}

func NewIsolatedMarket(protocol string, tables Tables) *IsolatedMarket {
	return &IsolatedMarket{
		protocol:      protocol,
		markets:       tables.Markets,
		defaultMarket: tables.DefaultMarket,
	}
}

func (m *IsolatedMarket) Protocol() string { return m.protocol }

func (m *IsolatedMarket) Kind() Kind { return KindIsolatedMarket }

func (m *IsolatedMarket) Chains() []model.Chain { return chainsOf(m.markets) }

// ResolvePool maps a base-asset symbol to its market. An empty symbol
// selects the chain's default market. Market names such as "cUSDCv3" are
// accepted as well.
func (m *IsolatedMarket) ResolvePool(chain model.Chain, symbol string) (common.Address, bool) {
	markets, ok := m.markets[chain]
	if !ok {
		return common.Address{}, false
	}
	key := model.Key(symbol)
	if key == "" {
		key = model.Key(m.defaultMarket[chain])
	}
	if addr, ok := markets[key]; ok {
		return addr, true
	}
	if base := marketBase(symbol); base != "" {
		addr, ok := markets[base]
		return addr, ok
	}
	return common.Address{}, false
}

func (m *IsolatedMarket) ResolveReceiptToken(asset string, chain model.Chain) (common.Address, bool) {
	if strings.TrimSpace(asset) == "" {
		return common.Address{}, false
	}
	return m.ResolvePool(chain, asset)
}

// market picks the explicitly named market, then the market whose base is
// the request asset, then the chain default.
func (m *IsolatedMarket) market(chain model.Chain, market, symbol string) (common.Address, error) {
	if strings.TrimSpace(market) != "" {
		if addr, ok := m.ResolvePool(chain, market); ok {
			return addr, nil
		}
		return common.Address{}, unavailable(m.protocol, chain, market)
	}
	if strings.TrimSpace(symbol) != "" {
		if addr, ok := m.markets[chain][model.Key(symbol)]; ok {
			return addr, nil
		}
	}
	if addr, ok := m.ResolvePool(chain, ""); ok {
		return addr, nil
	}
	return common.Address{}, unavailable(m.protocol, chain, "")
}

// EncodeSupply packs supply(asset, amount).
func (m *IsolatedMarket) EncodeSupply(req SupplyRequest) (model.EncodedCall, error) {
	pool, err := m.market(req.Chain, req.Market, req.Symbol)
	if err != nil {
		return model.EncodedCall{}, err
	}
	raw, err := amount.ToRaw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}

	parsed, err := CometABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	data, err := packCall(m.protocol, KindIsolatedMarket, parsed, "supply", req.Asset, raw)
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: pool, Data: data, AmountRaw: raw, Method: "supply"}, nil
}

// EncodeWithdraw packs withdraw(asset, amount). The market sends funds to
// the caller, so no recipient word is encoded.
func (m *IsolatedMarket) EncodeWithdraw(req WithdrawRequest) (model.EncodedCall, error) {
	pool, err := m.market(req.Chain, req.Market, req.Symbol)
	if err != nil {
		return model.EncodedCall{}, err
	}
	w, err := amount.ParseWithdraw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}
	raw := w.Encoded()

	parsed, err := CometABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	data, err := packCall(m.protocol, KindIsolatedMarket, parsed, "withdraw", req.Asset, raw)
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: pool, Data: data, AmountRaw: raw, Method: "withdraw"}, nil
}

func marketBase(name string) string {
	key := model.Key(name)
	if len(key) < 4 || !strings.HasPrefix(key, "C") {
		return ""
	}
	key = strings.TrimPrefix(key, "C")
	key = strings.TrimSuffix(key, "V3")
	return key
}
