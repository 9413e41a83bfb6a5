package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/chain"
)

const entryGetReserves = "get_reserves"

// ReservesDecoder turns a get_reserves result into Reserves.
type ReservesDecoder func(values []*big.Int) (Reserves, error)

// ReservesCall builds the get_reserves read for a pool.
func ReservesCall(pool common.Hash) chain.FunctionCall {
	return chain.NewCall(pool, entryGetReserves)
}

// CallMany executes calls and returns their results in call order. A
// BatchCaller receives pages of at most opts.BatchSize calls; any other
// Caller is driven with at most opts.Concurrency calls in flight.
func CallMany(ctx context.Context, c chain.Caller, calls []chain.FunctionCall, block chain.BlockID, opts Options) ([][]*big.Int, error) {
	opts = opts.Normalized()
	out := make([][]*big.Int, len(calls))
	if len(calls) == 0 {
		return out, nil
	}

	if batch, ok := c.(chain.BatchCaller); ok {
		pages, err := SplitRange(0, uint64(len(calls)-1), uint64(opts.BatchSize))
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			results, err := batch.CallBatch(ctx, calls[page.From:page.To+1], block)
			if err != nil {
				return nil, err
			}
			if len(results) != page.Len() {
				return nil, fmt.Errorf("%w: batch returned %d results for %d calls", ErrMalformedResponse, len(results), page.Len())
			}
			copy(out[page.From:], results)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			values, err := c.Call(gctx, call, block)
			if err != nil {
				return err
			}
			out[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchReserves reads and decodes one pool's reserves.
func FetchReserves(ctx context.Context, c chain.Caller, pool common.Hash, block chain.BlockID, decode ReservesDecoder) (Reserves, error) {
	values, err := c.Call(ctx, ReservesCall(pool), block)
	if err != nil {
		return Reserves{}, err
	}
	reserves, err := decode(values)
	if err != nil {
		return Reserves{}, fmt.Errorf("pool %s: %w", chain.AddressHex(pool), err)
	}
	return reserves, nil
}

// FetchReservesMany reads the reserves of every pool, in order.
func FetchReservesMany(ctx context.Context, c chain.Caller, pools []common.Hash, block chain.BlockID, decode ReservesDecoder, opts Options) ([]Reserves, error) {
	calls := make([]chain.FunctionCall, len(pools))
	for i, pool := range pools {
		calls[i] = ReservesCall(pool)
	}
	results, err := CallMany(ctx, c, calls, block, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Reserves, len(pools))
	for i, values := range results {
		reserves, err := decode(values)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", chain.AddressHex(pools[i]), err)
		}
		out[i] = reserves
	}
	return out, nil
}

type reserveSetter interface {
	SetReserves(Reserves)
}

// RefreshPools refreshes a homogeneous set of pools of the given kind. Every
// pool's reserves are fetched before any pool is updated, so an error leaves
// all of them untouched.
func RefreshPools(ctx context.Context, c chain.Caller, kind Kind, pools []Pool, block chain.BlockID, decode ReservesDecoder, opts Options) error {
	if err := CheckCongruent(kind, pools); err != nil {
		return err
	}
	setters := make([]reserveSetter, len(pools))
	addresses := make([]common.Hash, len(pools))
	for i, p := range pools {
		setter, ok := p.(reserveSetter)
		if !ok {
			return fmt.Errorf("pool %s does not support in-place refresh", chain.AddressHex(p.Address()))
		}
		setters[i] = setter
		addresses[i] = p.Address()
	}

	reserves, err := FetchReservesMany(ctx, c, addresses, block, decode, opts)
	if err != nil {
		return err
	}
	for i, setter := range setters {
		setter.SetReserves(reserves[i])
	}
	return nil
}
