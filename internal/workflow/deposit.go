package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
	"yieldpilot/internal/venue"
)

// DepositRequest supplies Amount of Asset to Protocol on Chain. Market
// optionally names a specific market or vault.
type DepositRequest struct {
	Owner    common.Address
	Protocol string
	Chain    model.Chain
	Asset    string
	Market   string
	Amount   string
	Execute  bool
}

// WithdrawRequest exits a position. Amount accepts "max" and "all".
// Recipient defaults to Owner.
type WithdrawRequest struct {
	Owner     common.Address
	Recipient common.Address
	Protocol  string
	Chain     model.Chain
	Asset     string
	Market    string
	Amount    string
	Execute   bool
}

type preparedDeposit struct {
	adapter venue.Adapter
	asset   model.Asset
	raw     *big.Int
	call    model.EncodedCall
}

// Deposit previews or executes a supply into a yield venue. The venue
// pool is approved for the exact amount.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (res *model.WorkflowResult, err error) {
	res = newResult(model.IntentDeposit, req.Chain)
	defer func() { s.finish(ctx, req.Owner, res, err) }()

	s.logger.Info("deposit requested",
		zap.String("protocol", req.Protocol),
		zap.String("chain", req.Chain.String()),
		zap.String("asset", req.Asset),
		zap.Bool("execute", req.Execute),
	)

	d, err := s.prepareDeposit(ctx, res, req)
	if err != nil || d == nil {
		return res, err
	}
	if !s.checkBalance(ctx, res, d.asset, req.Owner, d.raw) {
		return res, nil
	}
	s.quoteDeposit(ctx, res, d)
	if !req.Execute {
		return res, nil
	}

	state, err := s.approval(ctx, d.asset, req.Owner, d.call.To, d.raw)
	if err != nil {
		return res, err
	}
	if state.Needed {
		return res, s.submitApproval(ctx, res, d.asset, req.Owner, state, d.raw)
	}
	res.Approval = state
	return res, s.execute(ctx, res, d.call.Method, model.Tx{
		Chain: req.Chain,
		From:  req.Owner,
		To:    d.call.To,
		Data:  d.call.Data,
	})
}

// prepareDeposit validates req and encodes the supply call. A nil result
// with a nil error means res was rejected.
func (s *Service) prepareDeposit(ctx context.Context, res *model.WorkflowResult, req DepositRequest) (*preparedDeposit, error) {
	if !supportedChain(res, req.Chain) {
		return nil, nil
	}
	adapter, err := s.deps.Registry.AdapterOn(req.Protocol, req.Chain)
	if err != nil {
		res.Reject(model.RejectVenueUnavailable, err.Error())
		return nil, nil
	}
	res.Protocol = adapter.Protocol()

	asset, ok, err := s.resolveAsset(ctx, res, req.Chain, req.Asset)
	if err != nil || !ok {
		return nil, err
	}
	res.Asset = &asset
	if asset.Native {
		res.Reject(model.RejectNativeUnsupported, fmt.Sprintf("%s takes ERC-20 tokens; wrap %s first", adapter.Protocol(), asset.Symbol))
		return nil, nil
	}

	raw, err := amount.ToRaw(req.Amount, asset.Decimals)
	if err != nil {
		rejectAmount(res, req.Amount, err)
		return nil, nil
	}
	if raw.Sign() == 0 {
		res.Reject(model.RejectZeroAmount, "deposit amount must be greater than zero")
		return nil, nil
	}
	res.Amount = amount.Format(raw, asset.Decimals)
	res.AmountRaw = raw.String()

	call, err := adapter.EncodeSupply(venue.SupplyRequest{
		Chain:      req.Chain,
		Asset:      asset.Address,
		Symbol:     asset.Symbol,
		Market:     req.Market,
		Amount:     req.Amount,
		Decimals:   asset.Decimals,
		OnBehalfOf: req.Owner,
	})
	if err != nil {
		if rejectEncode(res, err) {
			return nil, nil
		}
		return nil, err
	}
	return &preparedDeposit{adapter: adapter, asset: asset, raw: raw, call: call}, nil
}

// quoteDeposit attaches the calldata and, when a yield feed is wired, the
// venue's current APY.
func (s *Service) quoteDeposit(ctx context.Context, res *model.WorkflowResult, d *preparedDeposit) {
	call := d.call
	res.Call = &call
	if res.APY == nil && s.deps.Yields != nil {
		opps, failures := s.deps.Yields.Scan(ctx, d.asset.Symbol, []model.Chain{d.asset.Chain})
		for _, f := range failures {
			s.logger.Warn("yield lookup failed", zap.String("chain", f.Chain.String()), zap.Error(f.Err))
		}
		res.APY = apyOf(opps, d.adapter.Protocol())
		if res.APY == nil {
			res.Warn(fmt.Sprintf("no APY figure for %s %s on %s", d.adapter.Protocol(), d.asset.Symbol, d.asset.Chain))
		}
	}
	res.Enter(model.StateQuoted)
	res.Status = model.StatusQuoted
}

// rejectEncode turns input-shaped encode failures into rejections. Invariant
// violations are not input errors and are returned to the caller.
func rejectEncode(res *model.WorkflowResult, err error) bool {
	switch {
	case errors.Is(err, venue.ErrEncodeInvariant):
		return false
	case errors.Is(err, venue.ErrVenueUnavailable), errors.Is(err, venue.ErrAssetMismatch):
		res.Reject(model.RejectVenueUnavailable, err.Error())
		return true
	}
	return false
}

// Withdraw previews or executes an exit from a yield venue. The owner
// redeems its own position, so no approval is involved.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (res *model.WorkflowResult, err error) {
	res = newResult(model.IntentWithdraw, req.Chain)
	defer func() { s.finish(ctx, req.Owner, res, err) }()

	s.logger.Info("withdraw requested",
		zap.String("protocol", req.Protocol),
		zap.String("chain", req.Chain.String()),
		zap.String("asset", req.Asset),
		zap.Bool("execute", req.Execute),
	)

	if !supportedChain(res, req.Chain) {
		return res, nil
	}
	adapter, err := s.deps.Registry.AdapterOn(req.Protocol, req.Chain)
	if err != nil {
		return res.Reject(model.RejectVenueUnavailable, err.Error()), nil
	}
	res.Protocol = adapter.Protocol()

	asset, ok, err := s.resolveAsset(ctx, res, req.Chain, req.Asset)
	if err != nil || !ok {
		return res, err
	}
	res.Asset = &asset
	if asset.Native {
		return res.Reject(model.RejectNativeUnsupported, fmt.Sprintf("%s positions are held in ERC-20 tokens", adapter.Protocol())), nil
	}

	w, err := amount.ParseWithdraw(req.Amount, asset.Decimals)
	if err != nil {
		return rejectAmount(res, req.Amount, err), nil
	}
	if !w.Max && w.Raw.Sign() == 0 {
		return res.Reject(model.RejectZeroAmount, "withdraw amount must be greater than zero"), nil
	}
	if w.Max {
		res.Amount = "max"
	} else {
		res.Amount = amount.Format(w.Raw, asset.Decimals)
	}
	res.AmountRaw = w.Encoded().String()

	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = req.Owner
	}
	call, err := adapter.EncodeWithdraw(venue.WithdrawRequest{
		Chain:     req.Chain,
		Asset:     asset.Address,
		Symbol:    asset.Symbol,
		Market:    req.Market,
		Amount:    req.Amount,
		Decimals:  asset.Decimals,
		Recipient: recipient,
		Owner:     req.Owner,
	})
	if err != nil {
		if rejectEncode(res, err) {
			return res, nil
		}
		return res, err
	}

	if !s.checkPosition(ctx, res, adapter, asset, req.Owner, w) {
		return res, nil
	}
	res.Call = &call
	res.Enter(model.StateQuoted)
	res.Status = model.StatusQuoted
	if !req.Execute {
		return res, nil
	}
	return res, s.execute(ctx, res, call.Method, model.Tx{
		Chain: req.Chain,
		From:  req.Owner,
		To:    call.To,
		Data:  call.Data,
	})
}

// checkPosition compares an exact withdraw with the receipt-token balance.
// Vault shares are not denominated in the asset, and a whole-position exit
// needs no comparison.
func (s *Service) checkPosition(ctx context.Context, res *model.WorkflowResult, adapter venue.Adapter, asset model.Asset, owner common.Address, w amount.Withdrawal) bool {
	if w.Max {
		return true
	}
	if adapter.Kind() == venue.KindVault {
		res.Warn("vault positions are held in shares; withdrawable amount not verified")
		return true
	}
	receipt, ok := adapter.ResolveReceiptToken(asset.Symbol, asset.Chain)
	if !ok {
		res.Warn(fmt.Sprintf("no receipt token known for %s on %s; position not verified", asset.Symbol, asset.Chain))
		return true
	}
	position := model.Asset{
		Chain:    asset.Chain,
		Symbol:   asset.Symbol,
		Address:  receipt,
		Decimals: asset.Decimals,
	}
	return s.checkBalance(ctx, res, position, owner, w.Raw)
}
