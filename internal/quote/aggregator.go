// Package quote asks routing services for swap and bridge routes and keeps
// the best one.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldpilot/internal/model"
)

// Request is priced against exactly AmountRaw of From.
type Request struct {
	From        model.Asset
	To          model.Asset
	AmountRaw   *big.Int
	Sender      common.Address
	Recipient   common.Address
	SlippageBps int
}

// CrossChain reports whether the request moves value between chains.
func (r Request) CrossChain() bool {
	return r.From.Chain != r.To.Chain
}

// Source is one upstream routing service.
type Source interface {
	Name() string
	Supports(req Request) bool
	Quote(ctx context.Context, req Request) (model.Quote, error)
}

// Recorder receives per-source outcomes.
type Recorder interface {
	ObserveQuote(source, result string)
}

// Aggregator queries every supporting source concurrently and keeps the
// quote with the best net receivable amount.
type Aggregator struct {
	sources  []Source
	timeout  time.Duration
	logger   *zap.Logger
	recorder Recorder
}

func NewAggregator(sources []Source, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Aggregator{sources: sources, timeout: timeout, logger: logger}
}

// WithRecorder attaches a metrics recorder.
func (a *Aggregator) WithRecorder(recorder Recorder) *Aggregator {
	a.recorder = recorder
	return a
}

type outcome struct {
	quote model.Quote
	err   error
}

// Quote returns the best route for req.
func (a *Aggregator) Quote(ctx context.Context, req Request) (model.Quote, error) {
	if req.From.SameAs(req.To) {
		return model.Quote{}, &Error{Kind: UnsupportedPair, Detail: fmt.Sprintf("%s to itself on %s", req.From.Symbol, req.From.Chain)}
	}
	if req.AmountRaw == nil || req.AmountRaw.Sign() <= 0 {
		return model.Quote{}, &Error{Kind: UnsupportedPair, Detail: "amount must be positive"}
	}

	sources := make([]Source, 0, len(a.sources))
	for _, src := range a.sources {
		if src.Supports(req) {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return model.Quote{}, &Error{Kind: UnsupportedPair, Detail: fmt.Sprintf("no service routes %s/%s to %s/%s", req.From.Symbol, req.From.Chain, req.To.Symbol, req.To.Chain)}
	}

	outcomes := make([]outcome, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			q, err := src.Quote(qctx, req)
			if err == nil {
				err = checkPricedAgainst(q, req)
			}
			if err != nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%s timed out after %s: %w", src.Name(), a.timeout, err)
			}
			outcomes[i] = outcome{quote: q, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		best     *model.Quote
		causes   []error
		noRoutes int
	)
	for i, out := range outcomes {
		name := sources[i].Name()
		if out.err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", name, out.err))
			result := "unavailable"
			if errors.Is(out.err, ErrNoRoute) {
				noRoutes++
				result = "no_route"
			}
			a.observe(name, result)
			a.logger.Warn("quote source failed", zap.String("source", name), zap.String("result", result), zap.Error(out.err))
			continue
		}
		a.observe(name, "ok")
		q := out.quote
		if best == nil || better(q, *best) {
			best = &q
		}
	}

	if best == nil {
		if noRoutes > 0 {
			return model.Quote{}, &Error{Kind: NoRouteFound, Causes: causes}
		}
		return model.Quote{}, &Error{Kind: AllServicesUnavailable, Causes: causes}
	}

	a.logger.Info("quote selected",
		zap.String("provider", best.Provider),
		zap.String("to_amount_min", best.NetReceivable().String()),
		zap.String("gas_usd", best.GasCostUSD.String()),
		zap.Int("candidates", len(sources)-len(causes)),
	)
	return *best, nil
}

func (a *Aggregator) observe(source, result string) {
	if a.recorder != nil {
		a.recorder.ObserveQuote(source, result)
	}
}

// better prefers the larger net receivable amount, then the cheaper gas.
func better(q, than model.Quote) bool {
	switch q.NetReceivable().Cmp(than.NetReceivable()) {
	case 1:
		return true
	case -1:
		return false
	}
	return q.GasCostUSD.LessThan(than.GasCostUSD)
}

func checkPricedAgainst(q model.Quote, req Request) error {
	if q.FromAmountRaw == nil || q.FromAmountRaw.Cmp(req.AmountRaw) != 0 {
		return fmt.Errorf("%w: priced %v, requested %s", ErrNoRoute, q.FromAmountRaw, req.AmountRaw)
	}
	if q.NetReceivable().Sign() <= 0 {
		return fmt.Errorf("%w: zero output", ErrNoRoute)
	}
	return nil
}
