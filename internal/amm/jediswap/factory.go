package jediswap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/model"
)

const entryGetAllPairs = "get_all_pairs"

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

// DiscoverPoolAddresses lists every pair with a single get_all_pairs call.
// The result is a length-prefixed array, so slot 0 holds the count and not
// a pool.
func (f *Factory) DiscoverPoolAddresses(ctx context.Context, c chain.Caller, block chain.BlockID) ([]common.Hash, error) {
	values, err := c.Call(ctx, chain.NewCall(f.address, entryGetAllPairs), block)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	count := values[0]
	if !count.IsUint64() || count.Uint64() != uint64(len(values)-1) {
		return nil, fmt.Errorf("%w: get_all_pairs length %s with %d entries", amm.ErrMalformedResponse, count, len(values)-1)
	}

	addresses := make([]common.Hash, 0, len(values)-1)
	for _, v := range values[1:] {
		addresses = append(addresses, common.BigToHash(v))
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

// Refresh updates the reserves of a set of JediSwap pools. A pool of any
// other kind fails the whole set with amm.ErrIncongruentSet.
func Refresh(ctx context.Context, c chain.Caller, pools []amm.Pool, block chain.BlockID, opts amm.Options) error {
	return amm.RefreshPools(ctx, c, Kind, pools, block, DecodeReserves, opts)
}
