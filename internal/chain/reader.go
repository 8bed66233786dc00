package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
	"yieldpilot/internal/retry"
)

var (
	ErrNoBackend   = errors.New("no rpc configured for chain")
	ErrReadTimeout = errors.New("chain read timed out")
)

// ReaderConfig tunes retries and the per-read deadline.
type ReaderConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Reader answers balance and allowance questions across chains. It holds
// no cache: every call goes to the node.
type Reader struct {
	backends map[model.Chain]Backend
	cfg      ReaderConfig
	logger   *zap.Logger
}

func NewReader(backends map[model.Chain]Backend, cfg ReaderConfig, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Reader{backends: backends, cfg: cfg, logger: logger}
}

// Backends converts dialed clients into reader backends.
func Backends(clients map[model.Chain]*Client) map[model.Chain]Backend {
	out := make(map[model.Chain]Backend, len(clients))
	for chain, client := range clients {
		out[chain] = client
	}
	return out
}

func (r *Reader) backend(chain model.Chain) (Backend, error) {
	backend, ok := r.backends[chain]
	if !ok || backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBackend, chain)
	}
	return backend, nil
}

// Balance returns the raw balance of owner in asset.
func (r *Reader) Balance(ctx context.Context, asset model.Asset, owner common.Address) (*big.Int, error) {
	backend, err := r.backend(asset.Chain)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	err = r.do(ctx, "balance", func(ctx context.Context) error {
		if asset.Native {
			bal, err := backend.BalanceAt(ctx, owner, nil)
			if err != nil {
				return fmt.Errorf("native balance: %w", err)
			}
			balance = bal
			return nil
		}
		bal, err := callUint(ctx, backend, asset.Address, "balanceOf", owner)
		if err != nil {
			return err
		}
		balance = bal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// Allowance returns how much spender may move from owner. Native assets
// need no allowance and report 2^256-1.
func (r *Reader) Allowance(ctx context.Context, asset model.Asset, owner, spender common.Address) (*big.Int, error) {
	if asset.Native {
		return amount.MaxUint256(), nil
	}
	backend, err := r.backend(asset.Chain)
	if err != nil {
		return nil, err
	}

	var allowance *big.Int
	err = r.do(ctx, "allowance", func(ctx context.Context) error {
		val, err := callUint(ctx, backend, asset.Address, "allowance", owner, spender)
		if err != nil {
			return err
		}
		allowance = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allowance, nil
}

// TokenMeta reads decimals and symbol for an ERC-20 token.
func (r *Reader) TokenMeta(ctx context.Context, chain model.Chain, token common.Address) (model.Asset, error) {
	backend, err := r.backend(chain)
	if err != nil {
		return model.Asset{}, err
	}
	var asset model.Asset
	err = r.do(ctx, "token meta", func(ctx context.Context) error {
		meta, err := FetchTokenMeta(ctx, backend, token, r.logger)
		if err != nil {
			return err
		}
		asset = meta
		return nil
	})
	if err != nil {
		return model.Asset{}, err
	}
	asset.Chain = chain
	return asset, nil
}

func (r *Reader) do(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, fn)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrReadTimeout, op, r.cfg.Timeout)
	}
	return err
}

func callUint(ctx context.Context, backend Backend, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := call(ctx, backend, token, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s return size %d", method, len(values))
	}
	return asBigInt(values[0])
}

func call(ctx context.Context, backend Backend, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
