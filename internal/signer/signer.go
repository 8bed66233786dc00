// Package signer hands finished calldata to the custody service that signs
// and broadcasts it.
package signer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"yieldpilot/internal/httpjson"
	"yieldpilot/internal/model"
)

var (
	ErrRejected    = errors.New("signer rejected transaction")
	ErrSubmitTimed = errors.New("signer did not answer before the deadline")
)

// Signer signs and broadcasts one transaction.
type Signer interface {
	Submit(ctx context.Context, tx model.Tx) (model.Submission, error)
}

type submitRequest struct {
	ChainID uint64 `json:"chainId"`
	From    string `json:"from"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"txHash"`
	Error   string `json:"error,omitempty"`
}

// Remote talks to a signing service over HTTP.
type Remote struct {
	client *httpjson.Client
}

// NewRemote builds a client for the signing service at baseURL. token is
// sent as a bearer credential when set.
func NewRemote(baseURL, token string, timeout time.Duration) *Remote {
	headers := map[string]string{"X-Service-Name": "yieldpilot"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Remote{client: httpjson.New(httpjson.Config{
		Service: "signer",
		BaseURL: baseURL,
		Timeout: timeout,
		Headers: headers,
	})}
}

func (r *Remote) Submit(ctx context.Context, tx model.Tx) (model.Submission, error) {
	value := "0"
	if tx.Value != nil {
		value = tx.Value.String()
	}
	req := submitRequest{
		ChainID: tx.Chain.ID(),
		From:    tx.From.Hex(),
		To:      tx.To.Hex(),
		Value:   value,
		Data:    tx.Data.String(),
	}

	var resp submitResponse
	if err := r.client.Post(ctx, "/v1/transactions", req, &resp); err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return model.Submission{}, fmt.Errorf("%w: %v", ErrSubmitTimed, err)
		}
		return model.Submission{}, err
	}
	if !resp.Success {
		return model.Submission{}, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
	}
	if strings.TrimSpace(resp.TxHash) == "" {
		return model.Submission{}, fmt.Errorf("%w: empty transaction hash", ErrRejected)
	}
	return model.Submission{TxHash: resp.TxHash}, nil
}

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("no signer configured; set signer-url to execute")

// Unconfigured refuses every submission. Previews never reach it.
type Unconfigured struct{}

func (Unconfigured) Submit(context.Context, model.Tx) (model.Submission, error) {
	return model.Submission{}, ErrNotConfigured
}
