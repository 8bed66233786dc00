package workflow

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
	"yieldpilot/internal/quote"
)

// SwapRequest exchanges Amount of From for To on one chain.
type SwapRequest struct {
	Owner       common.Address
	Recipient   common.Address
	Chain       model.Chain
	From        string
	To          string
	Amount      string
	SlippageBps int
	Execute     bool
}

// BridgeRequest moves Amount of From on FromChain to To on ToChain. To
// defaults to From.
type BridgeRequest struct {
	Owner       common.Address
	Recipient   common.Address
	FromChain   model.Chain
	ToChain     model.Chain
	From        string
	To          string
	Amount      string
	SlippageBps int
	Execute     bool
}

type routeRequest struct {
	intent      model.Intent
	owner       common.Address
	recipient   common.Address
	fromChain   model.Chain
	toChain     model.Chain
	from        string
	to          string
	amount      string
	slippageBps int
	execute     bool
}

// Swap previews or executes a same-chain swap through the best router.
func (s *Service) Swap(ctx context.Context, req SwapRequest) (*model.WorkflowResult, error) {
	return s.route(ctx, routeRequest{
		intent:      model.IntentSwap,
		owner:       req.Owner,
		recipient:   req.Recipient,
		fromChain:   req.Chain,
		toChain:     req.Chain,
		from:        req.From,
		to:          req.To,
		amount:      req.Amount,
		slippageBps: req.SlippageBps,
		execute:     req.Execute,
	})
}

// Bridge previews or executes a cross-chain transfer.
func (s *Service) Bridge(ctx context.Context, req BridgeRequest) (*model.WorkflowResult, error) {
	to := req.To
	if to == "" {
		to = req.From
	}
	return s.route(ctx, routeRequest{
		intent:      model.IntentBridge,
		owner:       req.Owner,
		recipient:   req.Recipient,
		fromChain:   req.FromChain,
		toChain:     req.ToChain,
		from:        req.From,
		to:          to,
		amount:      req.Amount,
		slippageBps: req.SlippageBps,
		execute:     req.Execute,
	})
}

// route runs the shared swap and bridge sequence. Routers are one-shot
// spenders and are approved for 2^256-1.
func (s *Service) route(ctx context.Context, req routeRequest) (res *model.WorkflowResult, err error) {
	res = newResult(req.intent, req.fromChain)
	if req.intent == model.IntentBridge {
		res.ToChain = req.toChain
	}
	defer func() { s.finish(ctx, req.owner, res, err) }()

	s.logger.Info("route requested",
		zap.String("intent", string(req.intent)),
		zap.String("from_chain", req.fromChain.String()),
		zap.String("to_chain", req.toChain.String()),
		zap.String("from", req.from),
		zap.String("to", req.to),
		zap.Bool("execute", req.execute),
	)

	if !supportedChain(res, req.fromChain) || !supportedChain(res, req.toChain) {
		return res, nil
	}
	if req.intent == model.IntentBridge && req.fromChain == req.toChain {
		return res.Reject(model.RejectSameChain, "source and destination chain are the same; use swap instead"), nil
	}

	from, ok, err := s.resolveAsset(ctx, res, req.fromChain, req.from)
	if err != nil || !ok {
		return res, err
	}
	to, ok, err := s.resolveAsset(ctx, res, req.toChain, req.to)
	if err != nil || !ok {
		return res, err
	}
	res.Asset = &from
	if from.SameAs(to) {
		return res.Reject(model.RejectSameAsset, fmt.Sprintf(
			"%s to %s on %s is not a swap; use bridge to change chains or deposit to earn yield",
			from.Symbol, to.Symbol, from.Chain,
		)), nil
	}

	raw, err := amount.ToRaw(req.amount, from.Decimals)
	if err != nil {
		return rejectAmount(res, req.amount, err), nil
	}
	if raw.Sign() == 0 {
		return res.Reject(model.RejectZeroAmount, fmt.Sprintf("%s amount must be greater than zero", req.intent)), nil
	}
	res.Amount = amount.Format(raw, from.Decimals)
	res.AmountRaw = raw.String()

	if !s.checkBalance(ctx, res, from, req.owner, raw) {
		return res, nil
	}
	if s.deps.Quotes == nil {
		return res, fmt.Errorf("%s: no quote service configured", req.intent)
	}

	recipient := req.recipient
	if recipient == (common.Address{}) {
		recipient = req.owner
	}
	slippage := req.slippageBps
	if slippage <= 0 {
		slippage = s.deps.SlippageBps
	}
	q, err := s.deps.Quotes.Quote(ctx, quote.Request{
		From:        from,
		To:          to,
		AmountRaw:   raw,
		Sender:      req.owner,
		Recipient:   recipient,
		SlippageBps: slippage,
	})
	if err != nil {
		return res, fmt.Errorf("%s %s to %s: %w", req.intent, from.Symbol, to.Symbol, err)
	}
	res.Quote = &q
	res.Protocol = q.Provider
	res.Enter(model.StateQuoted)
	res.Status = model.StatusQuoted
	if !req.execute {
		return res, nil
	}
	if q.Tx == nil {
		return res, fmt.Errorf("%s quote from %s carries no transaction", req.intent, q.Provider)
	}

	if !from.Native {
		spender := q.ApprovalAddress
		if spender == (common.Address{}) {
			spender = q.Tx.To
		}
		state, err := s.approval(ctx, from, req.owner, spender, raw)
		if err != nil {
			return res, err
		}
		if state.Needed {
			res.Warn(fmt.Sprintf("granting unlimited %s allowance to router %s", from.Symbol, spender.Hex()))
			return res, s.submitApproval(ctx, res, from, req.owner, state, amount.MaxUint256())
		}
		res.Approval = state
	}

	value := q.Tx.Value
	if value == nil {
		value = new(big.Int)
	}
	return res, s.execute(ctx, res, string(req.intent), model.Tx{
		Chain: from.Chain,
		From:  req.owner,
		To:    q.Tx.To,
		Value: value,
		Data:  q.Tx.Data,
	})
}
