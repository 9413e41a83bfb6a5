// Package tenkswap implements the 10kSwap exchange variant.
package tenkswap

import (
	"context"
	"fmt"
	"math/big"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/model"
)

const Kind amm.Kind = "tenkswap"

// DefaultFee is the swap fee charged by 10kSwap pools, in basis points.
const DefaultFee uint32 = 30

type Pool struct {
	amm.Pair
}

func NewPool(pair amm.Pair) *Pool {
	return &Pool{Pair: pair}
}

func PoolFromRecord(rec model.PoolRecord) (amm.Pool, error) {
	pair, err := amm.PairFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return NewPool(pair), nil
}

func (p *Pool) Kind() amm.Kind { return Kind }

func (p *Pool) RefreshReserves(ctx context.Context, c chain.Caller, block chain.BlockID) (amm.Reserves, error) {
	reserves, err := amm.FetchReserves(ctx, c, p.Address(), block, DecodeReserves)
	if err != nil {
		return amm.Reserves{}, err
	}
	p.SetReserves(reserves)
	return reserves, nil
}

func (p *Pool) Record() model.PoolRecord { return p.RecordAs(Kind) }

func (p *Pool) Clone() amm.Pool { return NewPool(p.Copy()) }

// DecodeReserves reads get_reserves as [r0, r1, ts] with one felt per reserve.
func DecodeReserves(values []*big.Int) (amm.Reserves, error) {
	if len(values) < 2 {
		return amm.Reserves{}, fmt.Errorf("%w: get_reserves returned %d values, want 2", amm.ErrMalformedResponse, len(values))
	}
	return amm.Reserves{A: values[0], B: values[1]}, nil
}
