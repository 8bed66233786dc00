package chain

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/model"
)

const erc20ABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "owner", "type": "address"}, {"internalType": "address", "name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "spender", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var approveSelector = []byte{0x09, 0x5e, 0xa7, 0xb3}

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error

	erc20ABIBytes32     abi.ABI
	erc20ABIBytes32Once sync.Once
	erc20ABIBytes32Err  error
)

// ERC20ABI returns the parsed token ABI fragment.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func erc20ABIBytes32Instance() (abi.ABI, error) {
	erc20ABIBytes32Once.Do(func() {
		erc20ABIBytes32, erc20ABIBytes32Err = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
	})
	return erc20ABIBytes32, erc20ABIBytes32Err
}

// EncodeApprove packs approve(spender, amount) against token.
func EncodeApprove(token, spender common.Address, amount *big.Int) (model.EncodedCall, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return model.EncodedCall{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return model.EncodedCall{}, fmt.Errorf("approve amount %v does not fit in uint256", amount)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return model.EncodedCall{}, fmt.Errorf("pack approve: %w", err)
	}
	if len(data) != 4+2*32 || !bytes.Equal(data[:4], approveSelector) {
		return model.EncodedCall{}, fmt.Errorf("approve calldata failed self-check: %x", data)
	}
	return model.EncodedCall{
		To:        token,
		Data:      data,
		AmountRaw: new(big.Int).Set(amount),
		Method:    "approve",
	}, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return narrowUint8(uint64(v))
	case uint32:
		return narrowUint8(uint64(v))
	case uint64:
		return narrowUint8(v)
	case *big.Int:
		if !v.IsUint64() {
			return 0, fmt.Errorf("decimals %s out of range", v)
		}
		return narrowUint8(v.Uint64())
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func narrowUint8(v uint64) (uint8, error) {
	if v > 255 {
		return 0, fmt.Errorf("decimals %d out of range", v)
	}
	return uint8(v), nil
}
