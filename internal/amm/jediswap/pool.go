// Package jediswap implements the JediSwap exchange variant.
package jediswap

import (
	"context"
	"fmt"
	"math/big"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/model"
)

const Kind amm.Kind = "jediswap"

// DefaultFee is the swap fee charged by JediSwap pools, in basis points.
const DefaultFee uint32 = 30

type Pool struct {
	amm.Pair
}

func NewPool(pair amm.Pair) *Pool {
	return &Pool{Pair: pair}
}

// PoolFromRecord rebuilds a pool from its checkpoint record.
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

// DecodeReserves reads get_reserves as two u256 values followed by the
// last update timestamp: [r0.low, r0.high, r1.low, r1.high, ts].
func DecodeReserves(values []*big.Int) (amm.Reserves, error) {
	if len(values) < 4 {
		return amm.Reserves{}, fmt.Errorf("%w: get_reserves returned %d values, want 4", amm.ErrMalformedResponse, len(values))
	}
	return amm.Reserves{
		A: chain.U256(values[0], values[1]),
		B: chain.U256(values[2], values[3]),
	}, nil
}
