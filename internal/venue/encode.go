package venue

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
)

// Kind groups adapters by how they resolve pools and exit positions.
type Kind string

const (
	KindFixedPool      Kind = "fixed-pool"
	KindIsolatedMarket Kind = "isolated-market"
	KindVault          Kind = "vault"
)

// SupplyRequest describes a deposit into a venue.
type SupplyRequest struct {
	Chain      model.Chain
	Asset      common.Address
	Symbol     string
	Market     string
	Amount     string
	Decimals   uint8
	OnBehalfOf common.Address
}

// WithdrawRequest describes an exit from a venue. Amount also accepts
// "max" and "all".
type WithdrawRequest struct {
	Chain     model.Chain
	Asset     common.Address
	Symbol    string
	Market    string
	Amount    string
	Decimals  uint8
	Recipient common.Address
	Owner     common.Address
}

// Adapter turns a request into exact calldata for one protocol.
type Adapter interface {
	Protocol() string
	Kind() Kind
	Chains() []model.Chain
	ResolvePool(chain model.Chain, symbol string) (common.Address, bool)
	ResolveReceiptToken(asset string, chain model.Chain) (common.Address, bool)
	EncodeSupply(req SupplyRequest) (model.EncodedCall, error)
	EncodeWithdraw(req WithdrawRequest) (model.EncodedCall, error)
}

// Known selectors, checked against every packed call.
var selectors = map[string]string{
	"fixed-pool.supply":        "617ba037",
	"fixed-pool.withdraw":      "69328dec",
	"isolated-market.supply":   "f2b9fdb8",
	"isolated-market.withdraw": "f3fef3a3",
	"vault.deposit":            "6e553f65",
	"vault.withdraw":           "b460af94",
	"vault.redeem":             "ba087652",
}

// Selector returns the expected 4-byte selector for a kind and method.
func Selector(kind Kind, method string) ([]byte, bool) {
	text, ok := selectors[string(kind)+"."+method]
	if !ok {
		return nil, false
	}
	sel, err := hex.DecodeString(text)
	if err != nil {
		return nil, false
	}
	return sel, true
}

func packCall(protocol string, kind Kind, parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	m, ok := parsed.Methods[method]
	if !ok {
		return nil, &InvariantError{Protocol: protocol, Method: method, Reason: "missing from abi"}
	}
	for i, arg := range args {
		if v, ok := arg.(*big.Int); ok && !amount.Fits256(v) {
			return nil, &InvariantError{Protocol: protocol, Method: method, Reason: fmt.Sprintf("argument %d does not fit in uint256", i)}
		}
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if err := checkCalldata(protocol, kind, m, data, len(args)); err != nil {
		return nil, err
	}
	return data, nil
}

// checkCalldata verifies calldata is selector plus exactly words 32-byte
// parameters and that the selector matches the known one for the method.
func checkCalldata(protocol string, kind Kind, m abi.Method, data []byte, words int) error {
	if want := 4 + 32*words; len(data) != want {
		return &InvariantError{
			Protocol: protocol,
			Method:   m.Name,
			Reason:   fmt.Sprintf("calldata length %d, want %d", len(data), want),
		}
	}
	want, ok := Selector(kind, m.Name)
	if !ok {
		return &InvariantError{Protocol: protocol, Method: m.Name, Reason: "no known selector"}
	}
	if !bytes.Equal(data[:4], want) || !bytes.Equal(m.ID, want) {
		return &InvariantError{
			Protocol: protocol,
			Method:   m.Name,
			Reason:   fmt.Sprintf("selector %x, want %x", data[:4], want),
		}
	}
	return nil
}
