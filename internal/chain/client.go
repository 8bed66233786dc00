package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"yieldpilot/internal/model"
)

// Backend is the subset of an RPC client the reader needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client wraps go-ethereum RPC for one chain.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

var dialClient = NewClient

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// BalanceAt returns the native balance of account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.ethClient.BalanceAt(ctx, account, blockNumber)
}

// Dial connects to every configured chain and verifies each endpoint
// reports the expected chain id. Chains that fail are logged and skipped.
func Dial(ctx context.Context, urls map[model.Chain]string, logger *zap.Logger) (map[model.Chain]*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clients := make(map[model.Chain]*Client, len(urls))
	for chain, url := range urls {
		client, err := dialClient(ctx, url)
		if err != nil {
			logger.Warn("rpc dial failed", zap.String("chain", chain.String()), zap.Error(err))
			continue
		}
		id, err := client.GetChainID(ctx)
		if err != nil {
			client.Close()
			logger.Warn("rpc chain id failed", zap.String("chain", chain.String()), zap.Error(err))
			continue
		}
		if id.Uint64() != chain.ID() {
			client.Close()
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("rpc for %s reports chain id %s", chain, id)
		}
		clients[chain] = client
	}
	return clients, nil
}
