// Package api serves the five workflow intents over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yieldpilot/internal/chain"
	"yieldpilot/internal/model"
	"yieldpilot/internal/quote"
	"yieldpilot/internal/signer"
	"yieldpilot/internal/storage"
	"yieldpilot/internal/venue"
	"yieldpilot/internal/workflow"
)

// Workflow is the set of entry points the API exposes.
type Workflow interface {
	Plan(ctx context.Context, req workflow.PlanRequest) (*model.WorkflowResult, error)
	Deposit(ctx context.Context, req workflow.DepositRequest) (*model.WorkflowResult, error)
	Withdraw(ctx context.Context, req workflow.WithdrawRequest) (*model.WorkflowResult, error)
	Swap(ctx context.Context, req workflow.SwapRequest) (*model.WorkflowResult, error)
	Bridge(ctx context.Context, req workflow.BridgeRequest) (*model.WorkflowResult, error)
}

// Options configures the router. Owner is used when a request names none.
type Options struct {
	Owner   common.Address
	History storage.History
	Metrics http.Handler
	Logger  *zap.Logger
}

type handler struct {
	wf      Workflow
	owner   common.Address
	history storage.History
	logger  *zap.Logger
}

func NewRouter(wf Workflow, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{wf: wf, owner: opts.Owner, history: opts.History, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := r.Group("/v1")
	v1.POST("/plan", h.plan)
	v1.POST("/deposit", h.deposit)
	v1.POST("/withdraw", h.withdraw)
	v1.POST("/swap", h.swap)
	v1.POST("/bridge", h.bridge)
	if opts.History != nil {
		v1.GET("/history", h.recent)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

type planBody struct {
	Owner  string   `json:"owner"`
	Asset  string   `json:"asset" binding:"required"`
	Amount string   `json:"amount"`
	Chains []string `json:"chains"`
}

type depositBody struct {
	Owner    string `json:"owner"`
	Protocol string `json:"protocol" binding:"required"`
	Chain    string `json:"chain" binding:"required"`
	Asset    string `json:"asset" binding:"required"`
	Market   string `json:"market"`
	Amount   string `json:"amount"`
	Execute  bool   `json:"execute"`
}

type withdrawBody struct {
	depositBody
	Recipient string `json:"recipient"`
}

type swapBody struct {
	Owner       string `json:"owner"`
	Recipient   string `json:"recipient"`
	Chain       string `json:"chain" binding:"required"`
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
	Execute     bool   `json:"execute"`
}

type bridgeBody struct {
	Owner       string `json:"owner"`
	Recipient   string `json:"recipient"`
	FromChain   string `json:"fromChain" binding:"required"`
	ToChain     string `json:"toChain" binding:"required"`
	From        string `json:"from" binding:"required"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
	Execute     bool   `json:"execute"`
}

func (h *handler) plan(c *gin.Context) {
	var body planBody
	if !bind(c, &body) {
		return
	}
	owner, ok := h.address(c, body.Owner, h.owner)
	if !ok {
		return
	}
	chains := make([]model.Chain, 0, len(body.Chains))
	for _, name := range body.Chains {
		chains = append(chains, model.LookupChain(name))
	}
	res, err := h.wf.Plan(c.Request.Context(), workflow.PlanRequest{
		Owner:  owner,
		Asset:  body.Asset,
		Amount: body.Amount,
		Chains: chains,
	})
	h.respond(c, res, err)
}

func (h *handler) deposit(c *gin.Context) {
	var body depositBody
	if !bind(c, &body) {
		return
	}
	owner, ok := h.address(c, body.Owner, h.owner)
	if !ok {
		return
	}
	res, err := h.wf.Deposit(c.Request.Context(), workflow.DepositRequest{
		Owner:    owner,
		Protocol: body.Protocol,
		Chain:    model.LookupChain(body.Chain),
		Asset:    body.Asset,
		Market:   body.Market,
		Amount:   body.Amount,
		Execute:  body.Execute,
	})
	h.respond(c, res, err)
}

func (h *handler) withdraw(c *gin.Context) {
	var body withdrawBody
	if !bind(c, &body) {
		return
	}
	owner, ok := h.address(c, body.Owner, h.owner)
	if !ok {
		return
	}
	recipient, ok := h.address(c, body.Recipient, owner)
	if !ok {
		return
	}
	res, err := h.wf.Withdraw(c.Request.Context(), workflow.WithdrawRequest{
		Owner:     owner,
		Recipient: recipient,
		Protocol:  body.Protocol,
		Chain:     model.LookupChain(body.Chain),
		Asset:     body.Asset,
		Market:    body.Market,
		Amount:    body.Amount,
		Execute:   body.Execute,
	})
	h.respond(c, res, err)
}

func (h *handler) swap(c *gin.Context) {
	var body swapBody
	if !bind(c, &body) {
		return
	}
	owner, ok := h.address(c, body.Owner, h.owner)
	if !ok {
		return
	}
	recipient, ok := h.address(c, body.Recipient, owner)
	if !ok {
		return
	}
	res, err := h.wf.Swap(c.Request.Context(), workflow.SwapRequest{
		Owner:       owner,
		Recipient:   recipient,
		Chain:       model.LookupChain(body.Chain),
		From:        body.From,
		To:          body.To,
		Amount:      body.Amount,
		SlippageBps: body.SlippageBps,
		Execute:     body.Execute,
	})
	h.respond(c, res, err)
}

func (h *handler) bridge(c *gin.Context) {
	var body bridgeBody
	if !bind(c, &body) {
		return
	}
	owner, ok := h.address(c, body.Owner, h.owner)
	if !ok {
		return
	}
	recipient, ok := h.address(c, body.Recipient, owner)
	if !ok {
		return
	}
	res, err := h.wf.Bridge(c.Request.Context(), workflow.BridgeRequest{
		Owner:       owner,
		Recipient:   recipient,
		FromChain:   model.LookupChain(body.FromChain),
		ToChain:     model.LookupChain(body.ToChain),
		From:        body.From,
		To:          body.To,
		Amount:      body.Amount,
		SlippageBps: body.SlippageBps,
		Execute:     body.Execute,
	})
	h.respond(c, res, err)
}

func (h *handler) recent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := h.history.Recent(c.Request.Context(), c.Query("owner"), limit)
	if err != nil {
		h.logger.Error("read journal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func bind(c *gin.Context, body interface{}) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// address parses input, falling back to def when input is empty. A missing
// owner is a client error.
func (h *handler) address(c *gin.Context, input string, def common.Address) (common.Address, bool) {
	if input == "" {
		if def == (common.Address{}) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner address is required"})
			return common.Address{}, false
		}
		return def, true
	}
	addr, err := chain.ParseAddress(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return common.Address{}, false
	}
	return addr, true
}

// respond writes the result. Rejections are ordinary results; errors carry
// the partial result alongside the message.
func (h *handler) respond(c *gin.Context, res *model.WorkflowResult, err error) {
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "result": res})
}

func statusFor(err error) int {
	var qe *quote.Error
	switch {
	case errors.As(err, &qe):
		if qe.Kind == quote.AllServicesUnavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, venue.ErrEncodeInvariant):
		return http.StatusInternalServerError
	case errors.Is(err, signer.ErrRejected):
		return http.StatusBadGateway
	case errors.Is(err, signer.ErrSubmitTimed), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
