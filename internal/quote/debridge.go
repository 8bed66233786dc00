package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
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

const DefaultDeBridgeURL = "https://dln.debridge.finance/v1.0"

// DeBridge queries the DLN create-tx endpoint, which prices the order and
// returns the transaction in one call. It only routes cross-chain.
type DeBridge struct {
	client *httpjson.Client
	now    func() time.Time
}

func NewDeBridge(cfg httpjson.Config) *DeBridge {
	cfg.Service = "deBridge"
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeBridgeURL
	}
	return &DeBridge{client: httpjson.New(cfg), now: time.Now}
}

type dlnToken struct {
	Address             string  `json:"address"`
	Symbol              string  `json:"symbol"`
	Decimals            int     `json:"decimals"`
	Amount              string  `json:"amount"`
	RecommendedAmount   string  `json:"recommendedAmount"`
	ApproximateUsdValue float64 `json:"approximateUsdValue"`
}

type dlnOrderResponse struct {
	OrderID    string `json:"orderId"`
	Estimation struct {
		SrcChainTokenIn     dlnToken `json:"srcChainTokenIn"`
		DstChainTokenOut    dlnToken `json:"dstChainTokenOut"`
		DstChainTokenOutMin *struct {
			Amount string `json:"amount"`
		} `json:"dstChainTokenOutMin,omitempty"`
		RecommendedSlippage float64 `json:"recommendedSlippage"`
		CostsDetails        []struct {
			Chain   string `json:"chain"`
			Type    string `json:"type"`
			Payload struct {
				USDAmount string `json:"usdAmount"`
			} `json:"payload"`
		} `json:"costsDetails"`
	} `json:"estimation"`
	USDPriceImpact *float64 `json:"usdPriceImpact"`
	Tx             struct {
		To              string `json:"to"`
		Data            string `json:"data"`
		Value           string `json:"value"`
		AllowanceTarget string `json:"allowanceTarget"`
	} `json:"tx"`
	Order struct {
		ApproximateFulfillmentDelay int `json:"approximateFulfillmentDelay"`
	} `json:"order"`
}

func (d *DeBridge) Name() string { return "debridge" }

func (d *DeBridge) Supports(req Request) bool {
	return req.CrossChain() && req.From.Chain.ID() != 0 && req.To.Chain.ID() != 0
}

func (d *DeBridge) Quote(ctx context.Context, req Request) (model.Quote, error) {
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = req.Sender
	}

	params := url.Values{}
	params.Set("srcChainId", strconv.FormatUint(req.From.Chain.ID(), 10))
	params.Set("srcChainTokenIn", tokenParam(req.From))
	params.Set("srcChainTokenInAmount", req.AmountRaw.String())
	params.Set("dstChainId", strconv.FormatUint(req.To.Chain.ID(), 10))
	params.Set("dstChainTokenOut", tokenParam(req.To))
	params.Set("dstChainTokenOutAmount", "auto")
	params.Set("dstChainTokenOutRecipient", recipient.Hex())
	params.Set("srcChainOrderAuthorityAddress", req.Sender.Hex())
	params.Set("dstChainOrderAuthorityAddress", recipient.Hex())
	if req.SlippageBps > 0 {
		params.Set("slippage", decimal.New(int64(req.SlippageBps), -2).String())
	}

	var resp dlnOrderResponse
	if err := d.client.Get(ctx, "/dln/order/create-tx", params, &resp); err != nil {
		var statusErr *httpjson.StatusError
		if errors.As(err, &statusErr) && (statusErr.Status == http.StatusBadRequest || statusErr.Status == http.StatusNotFound) {
			return model.Quote{}, fmt.Errorf("%w: %s", ErrNoRoute, statusErr.Body)
		}
		return model.Quote{}, err
	}
	return d.normalize(req, resp)
}

func (d *DeBridge) normalize(req Request, resp dlnOrderResponse) (model.Quote, error) {
	est := resp.Estimation
	fromRaw, err := parseRaw("srcChainTokenIn.amount", est.SrcChainTokenIn.Amount)
	if err != nil {
		return model.Quote{}, err
	}
	outField, outValue := "dstChainTokenOut.recommendedAmount", est.DstChainTokenOut.RecommendedAmount
	if outValue == "" {
		outField, outValue = "dstChainTokenOut.amount", est.DstChainTokenOut.Amount
	}
	toRaw, err := parseRaw(outField, outValue)
	if err != nil {
		return model.Quote{}, err
	}

	var minRaw *big.Int
	if est.DstChainTokenOutMin != nil {
		minRaw = parseRawOptional(est.DstChainTokenOutMin.Amount)
	}
	if minRaw == nil {
		minRaw = applySlippage(toRaw, req.SlippageBps)
	}

	from := req.From
	if from.Decimals == 0 && est.SrcChainTokenIn.Decimals > 0 && est.SrcChainTokenIn.Decimals <= 255 {
		from.Decimals = uint8(est.SrcChainTokenIn.Decimals)
	}
	to := req.To
	if to.Decimals == 0 && est.DstChainTokenOut.Decimals > 0 && est.DstChainTokenOut.Decimals <= 255 {
		to.Decimals = uint8(est.DstChainTokenOut.Decimals)
	}

	fromUSD := decimal.NewFromFloat(est.SrcChainTokenIn.ApproximateUsdValue).Round(6)
	toUSD := decimal.NewFromFloat(est.DstChainTokenOut.ApproximateUsdValue).Round(6)
	impact := priceImpact(fromUSD, toUSD)
	if resp.USDPriceImpact != nil {
		impact = decimal.NewFromFloat(math.Abs(*resp.USDPriceImpact)).Round(4)
	}

	costUSD := decimal.Zero
	for _, cost := range est.CostsDetails {
		costUSD = costUSD.Add(parseUSD(cost.Payload.USDAmount))
	}

	txTo := addressOrZero(resp.Tx.To)
	if txTo == (common.Address{}) {
		return model.Quote{}, fmt.Errorf("%w: order has no transaction", ErrNoRoute)
	}
	data, err := decodeHex(resp.Tx.Data)
	if err != nil {
		return model.Quote{}, fmt.Errorf("debridge transaction data: %w", err)
	}
	spender := addressOrZero(resp.Tx.AllowanceTarget)
	if spender == (common.Address{}) {
		spender = txTo
	}

	id := resp.OrderID
	if id == "" {
		id = uuid.NewString()
	}
	return model.Quote{
		ID:               id,
		Provider:         d.Name(),
		Tool:             "dln",
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
		PriceImpactPct:   impact,
		GasCostUSD:       costUSD,
		Duration:         time.Duration(resp.Order.ApproximateFulfillmentDelay) * time.Second,
		ApprovalRequired: !req.From.Native,
		ApprovalAddress:  spender,
		Tx: &model.EncodedCall{
			To:        txTo,
			Data:      data,
			Value:     parseHexRaw(resp.Tx.Value),
			AmountRaw: fromRaw,
			Method:    "dln:createOrder",
		},
		FetchedAt: d.now().UTC(),
	}, nil
}
