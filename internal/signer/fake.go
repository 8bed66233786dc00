package signer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"yieldpilot/internal/model"
)

// Fake records submissions and returns deterministic hashes.
type Fake struct {
	mu  sync.Mutex
	txs []model.Tx
	Err error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Submit(_ context.Context, tx model.Tx) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return model.Submission{}, f.Err
	}
	f.txs = append(f.txs, tx)

	h := sha256.New()
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(len(f.txs)))
	h.Write(seq[:])
	h.Write([]byte(fmt.Sprintf("%d:%s:", tx.Chain.ID(), tx.To.Hex())))
	h.Write(tx.Data)
	return model.Submission{TxHash: hexutil.Encode(h.Sum(nil))}, nil
}

// Submitted returns a copy of every recorded transaction.
func (f *Fake) Submitted() []model.Tx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Tx(nil), f.txs...)
}
