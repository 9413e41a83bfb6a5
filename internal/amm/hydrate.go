package amm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/chain"
)

const (
	entryToken0   = "token0"
	entryToken1   = "token1"
	entryDecimals = "decimals"
)

// DecimalsCache caches token decimals by address.
type DecimalsCache struct {
	mu   sync.RWMutex
	data map[common.Hash]uint8
}

func NewDecimalsCache() *DecimalsCache {
	return &DecimalsCache{data: make(map[common.Hash]uint8)}
}

func (c *DecimalsCache) Get(token common.Hash) (uint8, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.RLock()
	decimals, ok := c.data[token]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *DecimalsCache) Set(token common.Hash, decimals uint8) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.data[token] = decimals
	c.mu.Unlock()
}

// Hydrate reads a pool's metadata one call at a time: token0, token1, the
// decimals of each token, then the reserves.
func Hydrate(ctx context.Context, c chain.Caller, address common.Hash, block chain.BlockID, decode ReservesDecoder, fee uint32, cache *DecimalsCache) (Pair, error) {
	token0, err := callAddress(ctx, c, chain.NewCall(address, entryToken0), block)
	if err != nil {
		return Pair{}, err
	}
	token1, err := callAddress(ctx, c, chain.NewCall(address, entryToken1), block)
	if err != nil {
		return Pair{}, err
	}

	var decimals [2]uint8
	for i, token := range []common.Hash{token0, token1} {
		if cached, ok := cache.Get(token); ok {
			decimals[i] = cached
			continue
		}
		values, err := c.Call(ctx, chain.NewCall(token, entryDecimals), block)
		if err != nil {
			return Pair{}, err
		}
		d, err := decodeDecimals(token, values)
		if err != nil {
			return Pair{}, err
		}
		cache.Set(token, d)
		decimals[i] = d
	}

	reserves, err := FetchReserves(ctx, c, address, block, decode)
	if err != nil {
		return Pair{}, err
	}

	return NewPair(address, [2]common.Hash{token0, token1}, decimals, reserves, fee), nil
}

// HydrateMany hydrates every address and returns the pairs in the same
// order. A BatchCaller gets two kinds of batched round trips: one for
// token0/token1/get_reserves of every pool, one for the decimals of tokens
// not already cached. Other callers run Hydrate per pool in parallel.
func HydrateMany(ctx context.Context, c chain.Caller, addresses []common.Hash, block chain.BlockID, decode ReservesDecoder, fee uint32, opts Options, cache *DecimalsCache) ([]Pair, error) {
	if cache == nil {
		cache = NewDecimalsCache()
	}
	if len(addresses) == 0 {
		return nil, nil
	}
	if _, ok := c.(chain.BatchCaller); ok {
		return hydrateBatched(ctx, c, addresses, block, decode, fee, opts, cache)
	}

	opts = opts.Normalized()
	out := make([]Pair, len(addresses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			pair, err := Hydrate(gctx, c, address, block, decode, fee, cache)
			if err != nil {
				return fmt.Errorf("hydrate pool %s: %w", chain.AddressHex(address), err)
			}
			out[i] = pair
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func hydrateBatched(ctx context.Context, c chain.Caller, addresses []common.Hash, block chain.BlockID, decode ReservesDecoder, fee uint32, opts Options, cache *DecimalsCache) ([]Pair, error) {
	calls := make([]chain.FunctionCall, 0, 3*len(addresses))
	for _, address := range addresses {
		calls = append(calls,
			chain.NewCall(address, entryToken0),
			chain.NewCall(address, entryToken1),
			ReservesCall(address),
		)
	}
	results, err := CallMany(ctx, c, calls, block, opts)
	if err != nil {
		return nil, err
	}

	tokens := make([][2]common.Hash, len(addresses))
	reserves := make([]Reserves, len(addresses))
	var missing []common.Hash
	seen := make(map[common.Hash]bool)
	for i, address := range addresses {
		base := 3 * i
		for side := 0; side < 2; side++ {
			token, err := decodeAddress(calls[base+side], results[base+side])
			if err != nil {
				return nil, err
			}
			tokens[i][side] = token
			if _, ok := cache.Get(token); !ok && !seen[token] {
				seen[token] = true
				missing = append(missing, token)
			}
		}
		r, err := decode(results[base+2])
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", chain.AddressHex(address), err)
		}
		reserves[i] = r
	}

	if len(missing) > 0 {
		decimalCalls := make([]chain.FunctionCall, len(missing))
		for i, token := range missing {
			decimalCalls[i] = chain.NewCall(token, entryDecimals)
		}
		decimalResults, err := CallMany(ctx, c, decimalCalls, block, opts)
		if err != nil {
			return nil, err
		}
		for i, token := range missing {
			d, err := decodeDecimals(token, decimalResults[i])
			if err != nil {
				return nil, err
			}
			cache.Set(token, d)
		}
	}

	out := make([]Pair, len(addresses))
	for i, address := range addresses {
		d0, _ := cache.Get(tokens[i][0])
		d1, _ := cache.Get(tokens[i][1])
		out[i] = NewPair(address, tokens[i], [2]uint8{d0, d1}, reserves[i], fee)
	}
	return out, nil
}

func callAddress(ctx context.Context, c chain.Caller, call chain.FunctionCall, block chain.BlockID) (common.Hash, error) {
	values, err := c.Call(ctx, call, block)
	if err != nil {
		return common.Hash{}, err
	}
	return decodeAddress(call, values)
}

func decodeAddress(call chain.FunctionCall, values []*big.Int) (common.Hash, error) {
	if len(values) < 1 || values[0] == nil {
		return common.Hash{}, fmt.Errorf("%w: %s on %s returned no value", ErrMalformedResponse, call.EntryPoint, chain.AddressHex(call.ContractAddress))
	}
	return common.BigToHash(values[0]), nil
}

func decodeDecimals(token common.Hash, values []*big.Int) (uint8, error) {
	if len(values) < 1 || values[0] == nil {
		return 0, fmt.Errorf("%w: decimals on %s returned no value", ErrMalformedResponse, chain.AddressHex(token))
	}
	if !values[0].IsUint64() || values[0].Uint64() > 255 {
		return 0, fmt.Errorf("%w: decimals %s on %s out of range", ErrMalformedResponse, values[0], chain.AddressHex(token))
	}
	return uint8(values[0].Uint64()), nil
}
