package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/httpjson"
	"yieldpilot/internal/model"
)

const DefaultLiFiURL = "https://li.quest/v1"

// LiFi queries the LiFi /quote endpoint. It routes same-chain swaps and
// cross-chain transfers.
type LiFi struct {
	client *httpjson.Client
	now    func() time.Time
}

func NewLiFi(cfg httpjson.Config) *LiFi {
	cfg.Service = "LiFi"
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLiFiURL
	}
	return &LiFi{client: httpjson.New(cfg), now: time.Now}
}

type lifiToken struct {
	Address  string `json:"address"`
	ChainID  int    `json:"chainId"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	PriceUSD string `json:"priceUSD"`
}

type lifiCost struct {
	Amount    string    `json:"amount"`
	AmountUSD string    `json:"amountUSD"`
	Token     lifiToken `json:"token"`
}

type lifiQuoteResponse struct {
	ID     string `json:"id"`
	Tool   string `json:"tool"`
	Action struct {
		FromToken  lifiToken `json:"fromToken"`
		ToToken    lifiToken `json:"toToken"`
		FromAmount string    `json:"fromAmount"`
	} `json:"action"`
	Estimate struct {
		FromAmount        string     `json:"fromAmount"`
		ToAmount          string     `json:"toAmount"`
		ToAmountMin       string     `json:"toAmountMin"`
		FromAmountUSD     string     `json:"fromAmountUSD"`
		ToAmountUSD       string     `json:"toAmountUSD"`
		ApprovalAddress   string     `json:"approvalAddress"`
		ExecutionDuration float64    `json:"executionDuration"`
		FeeCosts          []lifiCost `json:"feeCosts"`
		GasCosts          []lifiCost `json:"gasCosts"`
	} `json:"estimate"`
	TransactionRequest *struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"transactionRequest"`
}

func (l *LiFi) Name() string { return "lifi" }

func (l *LiFi) Supports(req Request) bool {
	return req.From.Chain.ID() != 0 && req.To.Chain.ID() != 0
}

func (l *LiFi) Quote(ctx context.Context, req Request) (model.Quote, error) {
	params := url.Values{}
	params.Set("fromChain", strconv.FormatUint(req.From.Chain.ID(), 10))
	params.Set("toChain", strconv.FormatUint(req.To.Chain.ID(), 10))
	params.Set("fromToken", tokenParam(req.From))
	params.Set("toToken", tokenParam(req.To))
	params.Set("fromAmount", req.AmountRaw.String())
	params.Set("fromAddress", req.Sender.Hex())
	if req.Recipient != (common.Address{}) && req.Recipient != req.Sender {
		params.Set("toAddress", req.Recipient.Hex())
	}
	if req.SlippageBps > 0 {
		params.Set("slippage", decimal.New(int64(req.SlippageBps), -4).String())
	}

	var resp lifiQuoteResponse
	if err := l.client.Get(ctx, "/quote", params, &resp); err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) && (statusErr.Status == http.StatusNotFound || statusErr.Status == http.StatusBadRequest || statusErr.Status == http.StatusUnprocessableEntity) {
			return model.Quote{}, fmt.Errorf("%w: %s", ErrNoRoute, statusErr.Body)
		}
		return model.Quote{}, err
	}
	return l.normalize(req, resp)
}

func (l *LiFi) normalize(req Request, resp lifiQuoteResponse) (model.Quote, error) {
	fromRaw := parseRawOptional(resp.Estimate.FromAmount)
	if fromRaw == nil {
		fromRaw = parseRawOptional(resp.Action.FromAmount)
	}
	toRaw, err := parseRaw("toAmount", resp.Estimate.ToAmount)
	if err != nil {
		return model.Quote{}, err
	}
	minRaw := parseRawOptional(resp.Estimate.ToAmountMin)
	if minRaw == nil {
		minRaw = applySlippage(toRaw, req.SlippageBps)
	}

	from := withDecimals(req.From, resp.Action.FromToken)
	to := withDecimals(req.To, resp.Action.ToToken)

	fromUSD := parseUSD(resp.Estimate.FromAmountUSD)
	if fromUSD.IsZero() {
		fromUSD = usdValue(fromRaw, from.Decimals, resp.Action.FromToken.PriceUSD)
	}
	toUSD := parseUSD(resp.Estimate.ToAmountUSD)
	if toUSD.IsZero() {
		toUSD = usdValue(toRaw, to.Decimals, resp.Action.ToToken.PriceUSD)
	}

	gasUSD := decimal.Zero
	for _, cost := range resp.Estimate.GasCosts {
		gasUSD = gasUSD.Add(parseUSD(cost.AmountUSD))
	}

	approval := addressOrZero(resp.Estimate.ApprovalAddress)
	q := model.Quote{
		ID:               uuid.NewString(),
		Provider:         l.Name(),
		Tool:             resp.Tool,
		From:             from,
		To:               to,
		FromAmountRaw:    fromRaw,
		FromAmount:       amount.FromRaw(fromRaw, from.Decimals),
		FromAmountUSD:    fromUSD,
		ToAmountRaw:      toRaw,
		ToAmount:         amount.FromRaw(toRaw, to.Decimals),
		ToAmountUSD:      toUSD,
		ToAmountMinRaw:   minRaw,
		ToAmountMin:      amount.FromRaw(minRaw, to.Decimals),
		PriceImpactPct:   priceImpact(fromUSD, toUSD),
		GasCostUSD:       gasUSD,
		Duration:         time.Duration(resp.Estimate.ExecutionDuration * float64(time.Second)),
		ApprovalRequired: !req.From.Native && approval != (common.Address{}),
		ApprovalAddress:  approval,
		FetchedAt:        l.now().UTC(),
	}
	if tx := resp.TransactionRequest; tx != nil && addressOrZero(tx.To) != (common.Address{}) {
		data, err := decodeHex(tx.Data)
		if err != nil {
			return model.Quote{}, fmt.Errorf("lifi transaction data: %w", err)
		}
		q.Tx = &model.EncodedCall{
			To:        addressOrZero(tx.To),
			Data:      data,
			Value:     parseHexRaw(tx.Value),
			AmountRaw: fromRaw,
			Method:    "lifi:" + resp.Tool,
		}
	}
	return q, nil
}

func withDecimals(asset model.Asset, token lifiToken) model.Asset {
	if asset.Symbol == "" && token.Symbol != "" {
		asset.Symbol = token.Symbol
	}
	if asset.Decimals == 0 && token.Decimals > 0 && token.Decimals <= 255 {
		asset.Decimals = uint8(token.Decimals)
	}
	return asset
}
