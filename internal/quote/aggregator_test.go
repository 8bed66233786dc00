package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yieldpilot/internal/model"
)

var (
	usdcEth = model.Asset{Chain: model.Ethereum, Symbol: "USDC", Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Decimals: 6}
	wethEth = model.Asset{Chain: model.Ethereum, Symbol: "WETH", Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Decimals: 18}
	usdcArb = model.Asset{Chain: model.Arbitrum, Symbol: "USDC", Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Decimals: 6}
	sender  = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestAggregatorPicksBestNet(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", quote: stubQuote("a", 990, 1000, "2")},
		&stubSource{name: "b", quote: stubQuote("b", 995, 996, "5")},
	}, time.Second, zap.NewNop())

	q, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)
	require.Equal(t, "b", q.Provider)
}

func TestAggregatorTieBreaksOnGas(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", quote: stubQuote("a", 990, 1000, "3.5")},
		&stubSource{name: "b", quote: stubQuote("b", 990, 1000, "1.25")},
	}, time.Second, nil)

	q, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)
	require.Equal(t, "b", q.Provider)
}

func TestAggregatorPartialFailure(t *testing.T) {
	recorder := &stubRecorder{}
	a := NewAggregator([]Source{
		&stubSource{name: "down", err: errors.New("connection refused")},
		&stubSource{name: "up", quote: stubQuote("up", 10, 11, "1")},
	}, time.Second, nil).WithRecorder(recorder)

	q, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)
	require.Equal(t, "up", q.Provider)
	require.ElementsMatch(t, []string{"down:unavailable", "up:ok"}, recorder.events)
}

func TestAggregatorNoRoute(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", err: fmt.Errorf("%w: illiquid", ErrNoRoute)},
		&stubSource{name: "b", err: errors.New("timeout")},
	}, time.Second, nil)

	_, err := a.Quote(context.Background(), swapRequest())
	require.True(t, IsKind(err, NoRouteFound), "got %v", err)
	require.ErrorIs(t, err, ErrNoRoute)
}

func TestAggregatorAllUnavailable(t *testing.T) {
	a := NewAggregator([]Source{
		&stubSource{name: "a", err: errors.New("502")},
		&stubSource{name: "b", err: errors.New("dns")},
	}, time.Second, nil)

	_, err := a.Quote(context.Background(), swapRequest())
	require.True(t, IsKind(err, AllServicesUnavailable), "got %v", err)
}

func TestAggregatorTimeout(t *testing.T) {
	a := NewAggregator([]Source{&stubSource{name: "slow", block: true}}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := a.Quote(context.Background(), swapRequest())
	require.True(t, IsKind(err, AllServicesUnavailable), "got %v", err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestAggregatorSamePairNoCalls(t *testing.T) {
	src := &stubSource{name: "a", quote: stubQuote("a", 1, 1, "0")}
	a := NewAggregator([]Source{src}, time.Second, nil)

	req := swapRequest()
	req.To = req.From
	_, err := a.Quote(context.Background(), req)
	require.True(t, IsKind(err, UnsupportedPair), "got %v", err)
	require.Zero(t, src.callCount())
}

func TestAggregatorNoSupportingSource(t *testing.T) {
	a := NewAggregator([]Source{NewDeBridge(testHTTPConfig("http://127.0.0.1:1"))}, time.Second, nil)

	_, err := a.Quote(context.Background(), swapRequest())
	require.True(t, IsKind(err, UnsupportedPair), "got %v", err)
}

func TestAggregatorRejectsRepricedQuote(t *testing.T) {
	q := stubQuote("a", 10, 10, "0")
	q.FromAmountRaw = big.NewInt(1)
	a := NewAggregator([]Source{&stubSource{name: "a", quote: q}}, time.Second, nil)

	_, err := a.Quote(context.Background(), swapRequest())
	require.True(t, IsKind(err, NoRouteFound), "got %v", err)
}

func swapRequest() Request {
	return Request{
		From:        usdcEth,
		To:          wethEth,
		AmountRaw:   big.NewInt(100_000_000),
		Sender:      sender,
		Recipient:   sender,
		SlippageBps: 50,
	}
}

func stubQuote(provider string, minOut, out int64, gasUSD string) model.Quote {
	return model.Quote{
		Provider:       provider,
		From:           usdcEth,
		To:             wethEth,
		FromAmountRaw:  big.NewInt(100_000_000),
		ToAmountRaw:    big.NewInt(out),
		ToAmountMinRaw: big.NewInt(minOut),
		GasCostUSD:     decimal.RequireFromString(gasUSD),
	}
}

type stubSource struct {
	name  string
	quote model.Quote
	err   error
	block bool

	mu    sync.Mutex
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Supports(Request) bool { return true }

func (s *stubSource) Quote(ctx context.Context, _ Request) (model.Quote, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return model.Quote{}, ctx.Err()
	}
	return s.quote, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *stubRecorder) ObserveQuote(source, result string) {
	r.mu.Lock()
	r.events = append(r.events, source+":"+result)
	r.mu.Unlock()
}
