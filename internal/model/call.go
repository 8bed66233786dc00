package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodedCall is a finished contract call ready for signing.
type EncodedCall struct {
	To        common.Address `json:"to"`
	Data      hexutil.Bytes  `json:"data"`
	Value     *big.Int       `json:"value,omitempty"`
	AmountRaw *big.Int       `json:"amountRaw"`
	Method    string         `json:"method"`
}

// Selector returns the 4-byte function selector, or nil for short calldata.
func (c EncodedCall) Selector() []byte {
	if len(c.Data) < 4 {
		return nil
	}
	return c.Data[:4]
}

// Tx is the payload handed to the signing service.
type Tx struct {
	Chain Chain          `json:"chain"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

// Submission is the handle returned by the signing service.
type Submission struct {
	TxHash string `json:"txHash"`
}
