package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps a go-ethereum JSON-RPC client and speaks the ledger's
// read-only call methods.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{rpcClient: rpcClient}, nil
}

// NewClientFromRPC wraps an existing RPC client.
func NewClientFromRPC(rpcClient *rpc.Client) *Client {
	return &Client{rpcClient: rpcClient}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id felt as reported by the node.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := c.rpcClient.CallContext(ctx, &id, "starknet_chainId"); err != nil {
		return "", &CallError{EntryPoint: "starknet_chainId", Attempts: 1, Err: err}
	}
	return id, nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	if err := c.rpcClient.CallContext(ctx, &number, "starknet_blockNumber"); err != nil {
		return 0, &CallError{EntryPoint: "starknet_blockNumber", Attempts: 1, Err: err}
	}
	return number, nil
}

// Call executes a contract call against the given block.
func (c *Client) Call(ctx context.Context, call FunctionCall, block BlockID) ([]*big.Int, error) {
	var raw []string
	if err := c.rpcClient.CallContext(ctx, &raw, "starknet_call", call, block); err != nil {
		return nil, callError(call, 1, err)
	}
	values, err := parseFelts(raw)
	if err != nil {
		return nil, callError(call, 1, err)
	}
	return values, nil
}

// CallBatch sends every call in a single JSON-RPC batch.
func (c *Client) CallBatch(ctx context.Context, calls []FunctionCall, block BlockID) ([][]*big.Int, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	raws := make([][]string, len(calls))
	elems := make([]rpc.BatchElem, len(calls))
	for i, call := range calls {
		elems[i] = rpc.BatchElem{
			Method: "starknet_call",
			Args:   []interface{}{call, block},
			Result: &raws[i],
		}
	}

	if err := c.rpcClient.BatchCallContext(ctx, elems); err != nil {
		return nil, &CallError{EntryPoint: fmt.Sprintf("batch[%d]", len(calls)), Attempts: 1, Err: err}
	}

	out := make([][]*big.Int, len(calls))
	for i, elem := range elems {
		if elem.Error != nil {
			return nil, callError(calls[i], 1, elem.Error)
		}
		values, err := parseFelts(raws[i])
		if err != nil {
			return nil, callError(calls[i], 1, err)
		}
		out[i] = values
	}
	return out, nil
}

func parseFelts(raw []string) ([]*big.Int, error) {
	values := make([]*big.Int, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimPrefix(strings.TrimPrefix(item, "0x"), "0X")
		if item == "" {
			item = "0"
		}
		v, ok := new(big.Int).SetString(item, 16)
		if !ok {
			return nil, fmt.Errorf("decode felt %q", item)
		}
		values = append(values, v)
	}
	return values, nil
}
