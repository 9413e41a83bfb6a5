package amm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/chain"
	"arbScope/internal/model"
)

type testPool struct {
	Pair
	kind Kind
}

func (p *testPool) Kind() Kind { return p.kind }

func (p *testPool) RefreshReserves(ctx context.Context, c chain.Caller, block chain.BlockID) (Reserves, error) {
	r, err := FetchReserves(ctx, c, p.Address(), block, decodeFelts)
	if err != nil {
		return Reserves{}, err
	}
	p.SetReserves(r)
	return r, nil
}

func (p *testPool) Record() model.PoolRecord { return p.RecordAs(p.kind) }

func (p *testPool) Clone() Pool { return &testPool{Pair: p.Copy(), kind: p.kind} }

func decodeFelts(values []*big.Int) (Reserves, error) {
	if len(values) < 2 {
		return Reserves{}, fmt.Errorf("%w: got %d values", ErrMalformedResponse, len(values))
	}
	return Reserves{A: values[0], B: values[1]}, nil
}

func addr(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func ints(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func newTestPool(kind Kind, address int64, reserveA, reserveB int64, fee uint32) *testPool {
	return &testPool{
		Pair: NewPair(addr(address), [2]common.Hash{addr(1), addr(2)}, [2]uint8{18, 6},
			Reserves{A: big.NewInt(reserveA), B: big.NewInt(reserveB)}, fee),
		kind: kind,
	}
}
