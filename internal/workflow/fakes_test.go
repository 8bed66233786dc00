package workflow

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/chain"
	"yieldpilot/internal/model"
	"yieldpilot/internal/quote"
	"yieldpilot/internal/signer"
	"yieldpilot/internal/venue"
	"yieldpilot/internal/yield"
)

var (
	owner      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	router     = common.HexToAddress("0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE")
	baseUSDC   = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	baseWETH   = common.HexToAddress("0x4200000000000000000000000000000000000006")
	baseAUSDC  = common.HexToAddress("0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB")
	ethUSDC    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	approveSel = "095ea7b3"
)

type fakeReader struct {
	mu             sync.Mutex
	balances       map[common.Address]*big.Int
	allowance      *big.Int
	balanceErr     error
	allowanceErr   error
	allowanceReads int
}

func newFakeReader() *fakeReader {
	return &fakeReader{balances: make(map[common.Address]*big.Int), allowance: new(big.Int)}
}

func (r *fakeReader) Balance(_ context.Context, asset model.Asset, _ common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balanceErr != nil {
		return nil, r.balanceErr
	}
	if bal, ok := r.balances[asset.Address]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (r *fakeReader) Allowance(_ context.Context, _ model.Asset, _, _ common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowanceReads++
	if r.allowanceErr != nil {
		return nil, r.allowanceErr
	}
	return new(big.Int).Set(r.allowance), nil
}

type stubQuoter struct {
	calls int
	quote model.Quote
	err   error
}

func (q *stubQuoter) Quote(_ context.Context, req quote.Request) (model.Quote, error) {
	q.calls++
	if q.err != nil {
		return model.Quote{}, q.err
	}
	out := q.quote
	out.From = req.From
	out.To = req.To
	out.FromAmountRaw = req.AmountRaw
	return out, nil
}

type stubScanner struct {
	opps     []model.Opportunity
	failures []yield.Failure
}

func (s *stubScanner) Scan(_ context.Context, _ string, chains []model.Chain) ([]model.Opportunity, []yield.Failure) {
	want := make(map[model.Chain]bool, len(chains))
	for _, c := range chains {
		want[c] = true
	}
	var out []model.Opportunity
	for _, opp := range s.opps {
		if want[opp.Chain] {
			out = append(out, opp)
		}
	}
	return out, s.failures
}

type memJournal struct {
	mu      sync.Mutex
	entries []model.JournalEntry
}

func (j *memJournal) Append(_ context.Context, entry model.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

type countingMetrics struct {
	mu          sync.Mutex
	results     map[string]int
	submissions map[string]int
}

func (m *countingMetrics) ObserveResult(intent, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[string]int)
	}
	m.results[intent+"/"+status]++
}

func (m *countingMetrics) ObserveSubmission(kind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submissions == nil {
		m.submissions = make(map[string]int)
	}
	m.submissions[kind+"/"+result]++
}

type harness struct {
	svc     *Service
	reader  *fakeReader
	quoter  *stubQuoter
	scanner *stubScanner
	signer  *signer.Fake
	journal *memJournal
	metrics *countingMetrics
}

func newHarness() *harness {
	h := &harness{
		reader: newFakeReader(),
		quoter: &stubQuoter{quote: model.Quote{
			ID:              "q-1",
			Provider:        "lifi",
			ToAmountRaw:     big.NewInt(30_000_000_000_000_000),
			ToAmountMinRaw:  big.NewInt(29_850_000_000_000_000),
			ApprovalAddress: router,
			Tx: &model.EncodedCall{
				To:    router,
				Data:  common.FromHex("0x4666fc80" + "00"),
				Value: new(big.Int),
			},
		}},
		scanner: &stubScanner{},
		signer:  signer.NewFake(),
		journal: &memJournal{},
		metrics: &countingMetrics{},
	}
	h.svc = New(Deps{
		Registry: venue.DefaultRegistry(venue.DefaultTables()),
		Assets:   chain.NewResolver(nil),
		Reader:   h.reader,
		Quotes:   h.quoter,
		Yields:   h.scanner,
		Signer:   h.signer,
		Journal:  h.journal,
		Metrics:  h.metrics,
	})
	return h
}

func (h *harness) fund(token common.Address, raw int64) {
	h.reader.balances[token] = big.NewInt(raw)
}

func (h *harness) approvals() int {
	n := 0
	for _, tx := range h.signer.Submitted() {
		if len(tx.Data) >= 4 && common.Bytes2Hex(tx.Data[:4]) == approveSel {
			n++
		}
	}
	return n
}
