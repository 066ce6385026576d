package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

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

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// TraceAction is the call part of a parity-style trace.
type TraceAction struct {
	CallType string          `json:"callType"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Input    hexutil.Bytes   `json:"input"`
	Value    *hexutil.Big    `json:"value"`
}

// Trace is one entry of a trace_filter response.
type Trace struct {
	Action              TraceAction  `json:"action"`
	BlockNumber         uint64       `json:"blockNumber"`
	BlockHash           common.Hash  `json:"blockHash"`
	TransactionHash     *common.Hash `json:"transactionHash"`
	TransactionPosition *uint64      `json:"transactionPosition"`
	TraceAddress        []uint64     `json:"traceAddress"`
	Subtraces           uint64       `json:"subtraces"`
	Type                string       `json:"type"`
	Error               string       `json:"error,omitempty"`
}

type traceFilterParams struct {
	FromBlock hexutil.Uint64   `json:"fromBlock"`
	ToBlock   hexutil.Uint64   `json:"toBlock"`
	ToAddress []common.Address `json:"toAddress,omitempty"`
}

// TraceFilter returns call traces in the given range whose callee is one of
// addresses. Requires a node exposing the trace namespace.
func (c *Client) TraceFilter(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address) ([]Trace, error) {
	var traces []Trace
	params := traceFilterParams{
		FromBlock: hexutil.Uint64(fromBlock),
		ToBlock:   hexutil.Uint64(toBlock),
		ToAddress: addresses,
	}
	if err := c.rpcClient.CallContext(ctx, &traces, "trace_filter", params); err != nil {
		return nil, err
	}
	return traces, nil
}
