package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intent names a workflow entry point.
type Intent string

const (
	IntentPlan     Intent = "plan"
	IntentDeposit  Intent = "deposit"
	IntentWithdraw Intent = "withdraw"
	IntentSwap     Intent = "swap"
	IntentBridge   Intent = "bridge"
)

// Status is the terminal variant of a workflow invocation.
type Status string

const (
	StatusQuoted            Status = "quoted"
	StatusApprovalSubmitted Status = "approval_submitted"
	StatusExecuted          Status = "executed"
	StatusRejected          Status = "rejected"
)

// State is a step of the approval-gated workflow.
type State string

const (
	StateValidating        State = "validating"
	StateBalanceChecked    State = "balance_checked"
	StateQuoted            State = "quoted"
	StateApprovalRequired  State = "approval_required"
	StateApprovalSubmitted State = "approval_submitted"
	StateExecuted          State = "executed"
	StateRejected          State = "rejected"
)

// Rejection codes.
const (
	RejectEmptyAmount         = "empty_amount"
	RejectNotANumber          = "not_a_number"
	RejectNegativeAmount      = "negative_amount"
	RejectNonFiniteAmount     = "non_finite_amount"
	RejectAmountOutOfRange    = "amount_out_of_range"
	RejectZeroAmount          = "zero_amount"
	RejectVenueUnavailable    = "venue_unavailable"
	RejectUnsupportedChain    = "unsupported_chain"
	RejectUnknownAsset        = "unknown_asset"
	RejectNativeUnsupported   = "native_unsupported"
	RejectSameAsset           = "same_asset"
	RejectSameChain           = "same_chain"
	RejectInsufficientBalance = "insufficient_balance"
	RejectNoOpportunity       = "no_opportunity"
)

// Rejection explains why a workflow stopped before any write.
type Rejection struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Shortfall string `json:"shortfall,omitempty"`
}

// WorkflowResult is returned by every entry point.
type WorkflowResult struct {
	Intent   Intent  `json:"intent"`
	Status   Status  `json:"status"`
	Trail    []State `json:"trail"`
	Protocol string  `json:"protocol,omitempty"`
	Chain    Chain   `json:"chain,omitempty"`
	ToChain  Chain   `json:"toChain,omitempty"`

	Asset     *Asset `json:"asset,omitempty"`
	Amount    string `json:"amount,omitempty"`
	AmountRaw string `json:"amountRaw,omitempty"`
	Balance   string `json:"balance,omitempty"`

	Call     *EncodedCall     `json:"call,omitempty"`
	Quote    *Quote           `json:"quote,omitempty"`
	Approval *ApprovalState   `json:"approval,omitempty"`
	APY      *decimal.Decimal `json:"apy,omitempty"`

	Opportunities []Opportunity `json:"opportunities,omitempty"`

	TxHash    string     `json:"txHash,omitempty"`
	Rejection *Rejection `json:"rejection,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Enter appends a state to the trail.
func (r *WorkflowResult) Enter(state State) {
	r.Trail = append(r.Trail, state)
}

// Warn records a user-facing warning.
func (r *WorkflowResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Reject moves the result into the rejected variant.
func (r *WorkflowResult) Reject(code, msg string) *WorkflowResult {
	r.Enter(StateRejected)
	r.Status = StatusRejected
	r.Rejection = &Rejection{Code: code, Message: msg}
	return r
}

// JournalEntry is one audited workflow invocation.
type JournalEntry struct {
	ID         string         `json:"id"`
	Owner      string         `json:"owner"`
	Result     WorkflowResult `json:"result"`
	Err        string         `json:"error,omitempty"`
	RecordedAt time.Time      `json:"recordedAt"`
}
