package signer

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldpilot/internal/model"
)

func TestRemoteSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req submitRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(8453), req.ChainID)
		assert.Equal(t, "0x095ea7b3", req.Data)
		assert.Equal(t, "0", req.Value)
		_, _ = w.Write([]byte(`{"success":true,"txHash":"0xabc"}`))
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "tok", time.Second)
	sub, err := remote.Submit(context.Background(), testTx())
	require.NoError(t, err)
	require.Equal(t, "0xabc", sub.TxHash)
}

func TestRemoteRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"policy denied"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "", time.Second).Submit(context.Background(), testTx())
	require.ErrorIs(t, err, ErrRejected)
	require.Contains(t, err.Error(), "policy denied")
}

func TestRemoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewRemote(srv.URL, "", time.Minute).Submit(ctx, testTx())
	require.ErrorIs(t, err, ErrSubmitTimed)
}

func TestFakeDeterministic(t *testing.T) {
	a, b := NewFake(), NewFake()
	subA, err := a.Submit(context.Background(), testTx())
	require.NoError(t, err)
	subB, err := b.Submit(context.Background(), testTx())
	require.NoError(t, err)
	require.Equal(t, subA.TxHash, subB.TxHash)
	require.Len(t, a.Submitted(), 1)

	a.Err = errors.New("offline")
	_, err = a.Submit(context.Background(), testTx())
	require.Error(t, err)
	require.Len(t, a.Submitted(), 1)
}

func testTx() model.Tx {
	return model.Tx{
		Chain: model.Base,
		From:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:    common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		Value: big.NewInt(0),
		Data:  []byte{0x09, 0x5e, 0xa7, 0xb3},
	}
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Submit(context.Background(), testTx())
	require.ErrorIs(t, err, ErrNotConfigured)
}
