package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldpilot/internal/model"
)

// FetchTokenMeta loads decimals and symbol via ERC-20 calls. Tokens that
// return symbol as bytes32 are handled.
func FetchTokenMeta(ctx context.Context, backend Backend, token common.Address, logger *zap.Logger) (model.Asset, error) {
	asset := model.Asset{Address: token}
	if backend == nil {
		return asset, fmt.Errorf("chain backend is nil")
	}

	parsed, err := ERC20ABI()
	if err != nil {
		return asset, fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return asset, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, backend, token, parsed, "decimals")
	if err != nil {
		return asset, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return asset, err
	}
	asset.Decimals = decimals

	if values, err := call(ctx, backend, token, parsed, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			asset.Symbol = symbol
		}
	} else if values, err := call(ctx, backend, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			asset.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return asset, nil
}
