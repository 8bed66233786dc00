package yield

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldpilot/internal/model"
)

// Failure records a chain that could not be queried.
type Failure struct {
	Chain model.Chain
	Err   error
}

// Scanner queries several chains at once. A chain that fails is dropped
// from the result and reported in the failure list.
type Scanner struct {
	source Source
	limit  int
	logger *zap.Logger
}

func NewScanner(source Source, limit int, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 4
	}
	return &Scanner{source: source, limit: limit, logger: logger}
}

// Scan returns the ranked union of opportunities across chains.
func (s *Scanner) Scan(ctx context.Context, asset string, chains []model.Chain) ([]model.Opportunity, []Failure) {
	var (
		mu       sync.Mutex
		all      []model.Opportunity
		failures []Failure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, chain := range chains {
		chain := chain
		g.Go(func() error {
			opps, err := s.source.Opportunities(gctx, asset, chain)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("yield scan failed", zap.String("chain", chain.String()), zap.String("asset", asset), zap.Error(err))
				failures = append(failures, Failure{Chain: chain, Err: err})
				return nil
			}
			all = append(all, opps...)
			return nil
		})
	}
	_ = g.Wait()

	Rank(all)
	sort.Slice(failures, func(i, j int) bool { return failures[i].Chain < failures[j].Chain })
	return all, failures
}

// Rank orders opportunities by APY, then by pool size, both descending.
func Rank(opps []model.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if c := opps[i].APY.Cmp(opps[j].APY); c != 0 {
			return c > 0
		}
		return opps[i].TVLUSD.GreaterThan(opps[j].TVLUSD)
	})
}
