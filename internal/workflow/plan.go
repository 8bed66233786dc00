package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/chain"
	"yieldpilot/internal/model"
)

// PlanRequest looks for the best place to deposit Amount of Asset.
type PlanRequest struct {
	Owner  common.Address
	Asset  string
	Amount string
	Chains []model.Chain
}

type chainBalance struct {
	asset   model.Asset
	balance *big.Int
	err     error
}

// Plan ranks venues for an asset across chains and previews a deposit into
// the best one the owner can fund. It never writes.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (res *model.WorkflowResult, err error) {
	res = newResult(model.IntentPlan, "")
	defer func() { s.finish(ctx, req.Owner, res, err) }()

	chains := req.Chains
	if len(chains) == 0 {
		chains = s.deps.Chains
	}
	s.logger.Info("plan requested", zap.String("asset", req.Asset), zap.Int("chains", len(chains)))

	for _, c := range chains {
		if !supportedChain(res, c) {
			return res, nil
		}
	}
	scaled, err := amount.ToRaw(req.Amount, 18)
	if err != nil {
		return rejectAmount(res, req.Amount, err), nil
	}
	if scaled.Sign() == 0 {
		return res.Reject(model.RejectZeroAmount, "deposit amount must be greater than zero"), nil
	}
	if s.deps.Yields == nil {
		return res, errors.New("plan: no yield source configured")
	}

	opps, failures := s.deps.Yields.Scan(ctx, req.Asset, chains)
	for _, f := range failures {
		res.Warn(fmt.Sprintf("skipped %s: %v", f.Chain, f.Err))
	}
	candidates := opps[:0:0]
	for _, opp := range opps {
		if s.deps.Registry.Supports(opp.Protocol, opp.Chain) {
			candidates = append(candidates, opp)
		}
	}
	res.Opportunities = candidates
	if len(candidates) == 0 {
		return res.Reject(model.RejectNoOpportunity, fmt.Sprintf("no supported venue found for %s", req.Asset)), nil
	}

	balances := s.balances(ctx, req.Owner, req.Asset, candidates)

	var last *model.Rejection
	for _, opp := range candidates {
		b, ok := balances[opp.Chain]
		if !ok {
			continue
		}
		trial := newResult(model.IntentPlan, opp.Chain)
		d, err := s.prepareCandidate(ctx, trial, req, opp)
		if err != nil {
			return res, err
		}
		if d == nil {
			last = trial.Rejection
			continue
		}
		if !s.compareBalance(trial, d.asset, d.raw, b.balance, b.err) {
			last = trial.Rejection
			continue
		}

		apy := opp.APY
		trial.APY = &apy
		s.quoteDeposit(ctx, trial, d)
		trial.Opportunities = candidates
		trial.Warnings = append(res.Warnings, trial.Warnings...)
		res = trial
		return res, nil
	}

	if last == nil {
		return res.Reject(model.RejectNoOpportunity, fmt.Sprintf("%s is not held on any chain with a supported venue", req.Asset)), nil
	}
	res.Reject(last.Code, last.Message)
	res.Rejection.Shortfall = last.Shortfall
	return res, nil
}

// prepareCandidate encodes a deposit into opp, falling back to the default
// market when the feed names one the venue tables do not know.
func (s *Service) prepareCandidate(ctx context.Context, trial *model.WorkflowResult, req PlanRequest, opp model.Opportunity) (*preparedDeposit, error) {
	dreq := DepositRequest{
		Owner:    req.Owner,
		Protocol: opp.Protocol,
		Chain:    opp.Chain,
		Asset:    req.Asset,
		Market:   opp.Market,
		Amount:   req.Amount,
	}
	d, err := s.prepareDeposit(ctx, trial, dreq)
	if err != nil || d != nil || opp.Market == "" || trial.Rejection == nil || trial.Rejection.Code != model.RejectVenueUnavailable {
		return d, err
	}
	*trial = *newResult(model.IntentPlan, opp.Chain)
	dreq.Market = ""
	return s.prepareDeposit(ctx, trial, dreq)
}

// balances resolves the asset and reads the owner's balance on every
// candidate chain at once. Chains where the asset is unknown are left out.
func (s *Service) balances(ctx context.Context, owner common.Address, input string, candidates []model.Opportunity) map[model.Chain]chainBalance {
	seen := make(map[model.Chain]bool)
	var (
		mu  sync.Mutex
		out = make(map[model.Chain]chainBalance)
		g   errgroup.Group
	)
	for _, opp := range candidates {
		c := opp.Chain
		if seen[c] {
			continue
		}
		seen[c] = true
		g.Go(func() error {
			asset, err := s.deps.Assets.Resolve(ctx, c, input)
			if err != nil {
				if !errors.Is(err, chain.ErrUnknownAsset) {
					s.logger.Warn("resolve asset failed", zap.String("chain", c.String()), zap.Error(err))
				}
				return nil
			}
			balance, err := s.deps.Reader.Balance(ctx, asset, owner)
			mu.Lock()
			out[c] = chainBalance{asset: asset, balance: balance, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
