package venue

import (
	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
)

// FixedPool encodes calls for a lending protocol with one pool contract per
// chain that accepts every listed asset.
type FixedPool struct {
	protocol string
	pools    map[model.Chain]common.Address
	receipts map[model.Chain]map[string]common.Address
}

func NewFixedPool(protocol string, tables Tables) *FixedPool {
	return &FixedPool{
		protocol: protocol,
		pools:    tables.Pools,
		receipts: tables.Receipts,
	}
}

func (p *FixedPool) Protocol() string { return p.protocol }

func (p *FixedPool) Kind() Kind { return KindFixedPool }

func (p *FixedPool) Chains() []model.Chain { return chainsOf(p.pools) }

// ResolvePool ignores the symbol: the pool is the same for every asset.
func (p *FixedPool) ResolvePool(chain model.Chain, _ string) (common.Address, bool) {
	addr, ok := p.pools[chain]
	return addr, ok
}

func (p *FixedPool) ResolveReceiptToken(asset string, chain model.Chain) (common.Address, bool) {
	addr, ok := p.receipts[chain][model.Key(asset)]
	return addr, ok
}

// EncodeSupply packs supply(asset, amount, onBehalfOf, referralCode=0).
func (p *FixedPool) EncodeSupply(req SupplyRequest) (model.EncodedCall, error) {
	pool, ok := p.ResolvePool(req.Chain, req.Symbol)
	if !ok {
		return model.EncodedCall{}, unavailable(p.protocol, req.Chain, "")
	}
	raw, err := amount.ToRaw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}

	parsed, err := AavePoolABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	data, err := packCall(p.protocol, KindFixedPool, parsed, "supply", req.Asset, raw, req.OnBehalfOf, uint16(0))
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: pool, Data: data, AmountRaw: raw, Method: "supply"}, nil
}

// EncodeWithdraw packs withdraw(asset, amount, to). A whole-position exit
// passes 2^256-1, which the pool reads as the full balance.
func (p *FixedPool) EncodeWithdraw(req WithdrawRequest) (model.EncodedCall, error) {
	pool, ok := p.ResolvePool(req.Chain, req.Symbol)
	if !ok {
		return model.EncodedCall{}, unavailable(p.protocol, req.Chain, "")
	}
	w, err := amount.ParseWithdraw(req.Amount, req.Decimals)
	if err != nil {
		return model.EncodedCall{}, err
	}
	raw := w.Encoded()

	parsed, err := AavePoolABI()
	if err != nil {
		return model.EncodedCall{}, err
	}
	data, err := packCall(p.protocol, KindFixedPool, parsed, "withdraw", req.Asset, raw, req.Recipient)
	if err != nil {
		return model.EncodedCall{}, err
	}
	return model.EncodedCall{To: pool, Data: data, AmountRaw: raw, Method: "withdraw"}, nil
}
