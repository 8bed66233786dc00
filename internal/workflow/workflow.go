// Package workflow sequences balance checks, quotes, approvals and
// submissions for every intent that moves value through a contract.
//
// An invocation holds no state after it returns. A caller that receives
// StatusApprovalSubmitted re-invokes the same intent once the approval
// confirms; the second run re-reads the allowance and goes straight to
// execution.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/chain"
	"yieldpilot/internal/model"
	"yieldpilot/internal/quote"
	"yieldpilot/internal/signer"
	"yieldpilot/internal/venue"
	"yieldpilot/internal/yield"
)

// AssetResolver turns user input into a token on one chain.
type AssetResolver interface {
	Resolve(ctx context.Context, chain model.Chain, input string) (model.Asset, error)
}

// BalanceReader reads live balances and allowances in raw units.
type BalanceReader interface {
	Balance(ctx context.Context, asset model.Asset, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, asset model.Asset, owner, spender common.Address) (*big.Int, error)
}

// Quoter prices a swap or bridge.
type Quoter interface {
	Quote(ctx context.Context, req quote.Request) (model.Quote, error)
}

// OpportunityScanner ranks yield venues for an asset across chains.
type OpportunityScanner interface {
	Scan(ctx context.Context, asset string, chains []model.Chain) ([]model.Opportunity, []yield.Failure)
}

// Journal stores finished invocations.
type Journal interface {
	Append(ctx context.Context, entry model.JournalEntry) error
}

// Publisher announces finished invocations.
type Publisher interface {
	Publish(ctx context.Context, entry model.JournalEntry) error
}

// Metrics counts outcomes.
type Metrics interface {
	ObserveResult(intent, status string)
	ObserveSubmission(kind, result string)
}

// Deps wires a Service. Registry, Assets, Reader and Signer are required;
// the rest may be nil.
type Deps struct {
	Registry  *venue.Registry
	Assets    AssetResolver
	Reader    BalanceReader
	Quotes    Quoter
	Yields    OpportunityScanner
	Signer    signer.Signer
	Journal   Journal
	Publisher Publisher
	Metrics   Metrics
	Logger    *zap.Logger

	// Chains is scanned by Plan when a request names none.
	Chains      []model.Chain
	SlippageBps int
}

// Service runs the five intents.
type Service struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(deps.Chains) == 0 {
		deps.Chains = model.Chains()
	}
	if deps.SlippageBps <= 0 {
		deps.SlippageBps = 50
	}
	return &Service{deps: deps, logger: logger}
}

func newResult(intent model.Intent, c model.Chain) *model.WorkflowResult {
	res := &model.WorkflowResult{Intent: intent, Chain: c}
	res.Enter(model.StateValidating)
	return res
}

// finish journals, publishes and counts one invocation. Sink failures are
// logged and never change the result.
func (s *Service) finish(ctx context.Context, owner common.Address, res *model.WorkflowResult, err error) {
	entry := model.JournalEntry{
		ID:         uuid.NewString(),
		Owner:      owner.Hex(),
		Result:     *res,
		RecordedAt: time.Now().UTC(),
	}
	fields := []zap.Field{
		zap.String("intent", string(res.Intent)),
		zap.String("status", string(res.Status)),
		zap.String("chain", res.Chain.String()),
		zap.String("entry_id", entry.ID),
	}
	if err != nil {
		entry.Err = err.Error()
		s.logger.Error("workflow failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("workflow finished", fields...)
	}

	if s.deps.Metrics != nil {
		status := string(res.Status)
		if err != nil {
			status = "error"
		}
		s.deps.Metrics.ObserveResult(string(res.Intent), status)
	}
	if s.deps.Journal != nil {
		if jerr := s.deps.Journal.Append(ctx, entry); jerr != nil {
			s.logger.Warn("journal append failed", zap.String("entry_id", entry.ID), zap.Error(jerr))
		}
	}
	if s.deps.Publisher != nil {
		if perr := s.deps.Publisher.Publish(ctx, entry); perr != nil {
			s.logger.Warn("publish result failed", zap.String("entry_id", entry.ID), zap.Error(perr))
		}
	}
}

// rejectAmount maps codec errors to rejection codes.
func rejectAmount(res *model.WorkflowResult, input string, err error) *model.WorkflowResult {
	code := model.RejectNotANumber
	switch {
	case errors.Is(err, amount.ErrEmptyAmount):
		code = model.RejectEmptyAmount
	case errors.Is(err, amount.ErrNegative):
		code = model.RejectNegativeAmount
	case errors.Is(err, amount.ErrNonFinite):
		code = model.RejectNonFiniteAmount
	case errors.Is(err, amount.ErrOutOfRange):
		code = model.RejectAmountOutOfRange
	}
	return res.Reject(code, fmt.Sprintf("invalid amount %q: %v", input, err))
}

// resolveAsset rejects unknown assets and returns any other failure.
func (s *Service) resolveAsset(ctx context.Context, res *model.WorkflowResult, c model.Chain, input string) (model.Asset, bool, error) {
	asset, err := s.deps.Assets.Resolve(ctx, c, input)
	if err == nil {
		return asset, true, nil
	}
	if errors.Is(err, chain.ErrUnknownAsset) {
		res.Reject(model.RejectUnknownAsset, err.Error())
		return model.Asset{}, false, nil
	}
	return model.Asset{}, false, fmt.Errorf("resolve %s on %s: %w", input, c, err)
}

func supportedChain(res *model.WorkflowResult, c model.Chain) bool {
	if c.ID() != 0 {
		return true
	}
	res.Reject(model.RejectUnsupportedChain, fmt.Sprintf("unsupported chain %q", c))
	return false
}

// checkBalance reads the owner's balance of asset and compares it with
// required. A failed read degrades to a warning; a short balance rejects.
func (s *Service) checkBalance(ctx context.Context, res *model.WorkflowResult, asset model.Asset, owner common.Address, required *big.Int) bool {
	balance, err := s.deps.Reader.Balance(ctx, asset, owner)
	return s.compareBalance(res, asset, required, balance, err)
}

func (s *Service) compareBalance(res *model.WorkflowResult, asset model.Asset, required, balance *big.Int, err error) bool {
	if err != nil {
		s.logger.Warn("balance read failed",
			zap.String("chain", asset.Chain.String()),
			zap.String("asset", asset.Symbol),
			zap.Error(err),
		)
		res.Warn(fmt.Sprintf("could not verify balance of %s on %s", asset.Symbol, asset.Chain))
		return true
	}
	res.Balance = amount.Format(balance, asset.Decimals)
	if balance.Cmp(required) < 0 {
		shortfall := new(big.Int).Sub(required, balance)
		res.Reject(model.RejectInsufficientBalance, fmt.Sprintf(
			"balance %s %s is below requested %s",
			res.Balance, asset.Symbol, amount.Format(required, asset.Decimals),
		))
		res.Rejection.Shortfall = amount.Format(shortfall, asset.Decimals)
		return false
	}
	res.Enter(model.StateBalanceChecked)
	return true
}

// approval reads the live allowance and reports whether spending required
// needs a new approval first.
func (s *Service) approval(ctx context.Context, asset model.Asset, owner, spender common.Address, required *big.Int) (*model.ApprovalState, error) {
	allowance, err := s.deps.Reader.Allowance(ctx, asset, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("read allowance of %s for %s on %s: %w", asset.Symbol, spender.Hex(), asset.Chain, err)
	}
	return &model.ApprovalState{
		Needed:    allowance.Cmp(required) < 0,
		Spender:   spender,
		Allowance: allowance,
	}, nil
}

// submitApproval sends approve(spender, amount) and moves res into the
// approval-submitted state.
func (s *Service) submitApproval(ctx context.Context, res *model.WorkflowResult, asset model.Asset, owner common.Address, state *model.ApprovalState, approve *big.Int) error {
	state.Amount = new(big.Int).Set(approve)
	state.Unlimited = amount.IsMaxUint256(approve)
	res.Approval = state
	res.Enter(model.StateApprovalRequired)

	call, err := chain.EncodeApprove(asset.Address, state.Spender, approve)
	if err != nil {
		return fmt.Errorf("%w: %v", venue.ErrEncodeInvariant, err)
	}
	sub, err := s.submit(ctx, "approve", model.Tx{
		Chain: asset.Chain,
		From:  owner,
		To:    call.To,
		Value: new(big.Int),
		Data:  call.Data,
	})
	if err != nil {
		return fmt.Errorf("approve %s for %s on %s: %w", asset.Symbol, state.Spender.Hex(), asset.Chain, err)
	}
	res.Enter(model.StateApprovalSubmitted)
	res.Status = model.StatusApprovalSubmitted
	res.TxHash = sub.TxHash
	return nil
}

// execute sends the value-moving call.
func (s *Service) execute(ctx context.Context, res *model.WorkflowResult, kind string, tx model.Tx) error {
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	sub, err := s.submit(ctx, kind, tx)
	if err != nil {
		return fmt.Errorf("%s via %s on %s: %w", kind, tx.To.Hex(), tx.Chain, err)
	}
	res.Enter(model.StateExecuted)
	res.Status = model.StatusExecuted
	res.TxHash = sub.TxHash
	return nil
}

func (s *Service) submit(ctx context.Context, kind string, tx model.Tx) (model.Submission, error) {
	if err := checkTx(tx); err != nil {
		s.observeSubmission(kind, "invalid")
		return model.Submission{}, err
	}
	sub, err := s.deps.Signer.Submit(ctx, tx)
	if err != nil {
		s.observeSubmission(kind, "error")
		return model.Submission{}, err
	}
	s.observeSubmission(kind, "ok")
	s.logger.Info("transaction submitted",
		zap.String("kind", kind),
		zap.String("chain", tx.Chain.String()),
		zap.String("to", tx.To.Hex()),
		zap.String("tx_hash", sub.TxHash),
	)
	return sub, nil
}

func (s *Service) observeSubmission(kind, result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSubmission(kind, result)
	}
}

// checkTx refuses payloads that could not be a contract call.
func checkTx(tx model.Tx) error {
	if tx.To == (common.Address{}) {
		return fmt.Errorf("%w: empty destination", venue.ErrEncodeInvariant)
	}
	if len(tx.Data) < 4 {
		return fmt.Errorf("%w: calldata shorter than a selector", venue.ErrEncodeInvariant)
	}
	if tx.Chain.ID() == 0 {
		return fmt.Errorf("%w: unknown chain %q", venue.ErrEncodeInvariant, tx.Chain)
	}
	return nil
}

func apyOf(opps []model.Opportunity, protocol string) *decimal.Decimal {
	for _, opp := range opps {
		if opp.Protocol == protocol {
			apy := opp.APY
			return &apy
		}
	}
	return nil
}
