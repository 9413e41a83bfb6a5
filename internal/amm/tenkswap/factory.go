package tenkswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/model"
)

const (
	entryAllPairsLength = "allPairsLength"
	entryAllPairs       = "allPairs"
)

type Factory struct {
	address common.Hash
	fee     uint32
	opts    amm.Options
	cache   *amm.DecimalsCache
}

func NewFactory(address common.Hash, fee uint32, opts amm.Options) *Factory {
	return &Factory{
		address: address,
		fee:     fee,
		opts:    opts.Normalized(),
		cache:   amm.NewDecimalsCache(),
	}
}

func (f *Factory) Kind() amm.Kind       { return Kind }
func (f *Factory) Address() common.Hash { return f.address }
func (f *Factory) Fee() uint32          { return f.fee }

func (f *Factory) Record() model.FactoryRecord {
	return model.FactoryRecord{Kind: string(Kind), Address: chain.AddressHex(f.address), Fee: f.fee}
}

// DiscoverPoolAddresses reads allPairsLength, then allPairs(i) for every
// index. The indexed reads are grouped into pages of the factory's batch size.
func (f *Factory) DiscoverPoolAddresses(ctx context.Context, c chain.Caller, block chain.BlockID) ([]common.Hash, error) {
	values, err := c.Call(ctx, chain.NewCall(f.address, entryAllPairsLength), block)
	if err != nil {
		return nil, err
	}
	if len(values) < 1 || !values[0].IsUint64() {
		return nil, fmt.Errorf("%w: allPairsLength returned %v", amm.ErrMalformedResponse, values)
	}
	count := values[0].Uint64()
	if count == 0 {
		return nil, nil
	}

	calls := make([]chain.FunctionCall, count)
	for i := uint64(0); i < count; i++ {
		calls[i] = chain.NewCall(f.address, entryAllPairs, new(big.Int).SetUint64(i))
	}
	results, err := amm.CallMany(ctx, c, calls, block, f.opts)
	if err != nil {
		return nil, err
	}

	addresses := make([]common.Hash, 0, count)
	for i, result := range results {
		if len(result) < 1 {
			return nil, fmt.Errorf("%w: allPairs(%d) returned no value", amm.ErrMalformedResponse, i)
		}
		addresses = append(addresses, common.BigToHash(result[0]))
	}
	return addresses, nil
}

func (f *Factory) HydrateAll(ctx context.Context, c chain.Caller, addresses []common.Hash, block chain.BlockID) ([]amm.Pool, error) {
	pairs, err := amm.HydrateMany(ctx, c, addresses, block, DecodeReserves, f.fee, f.opts, f.cache)
	if err != nil {
		return nil, err
	}
	pools := make([]amm.Pool, len(pairs))
	for i, pair := range pairs {
		pools[i] = NewPool(pair)
	}
	return pools, nil
}

func (f *Factory) RefreshMany(ctx context.Context, c chain.Caller, pools []amm.Pool, block chain.BlockID) error {
	return Refresh(ctx, c, pools, block, f.opts)
}

// Refresh updates the reserves of a set of 10kSwap pools.
func Refresh(ctx context.Context, c chain.Caller, pools []amm.Pool, block chain.BlockID, opts amm.Options) error {
	return amm.RefreshPools(ctx, c, Kind, pools, block, DecodeReserves, opts)
}
