package jediswap

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/chain/chaintest"
)

func addr(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func TestDecodeReservesCombinesU256(t *testing.T) {
	low := big.NewInt(5)
	high := big.NewInt(1)
	got, err := DecodeReserves([]*big.Int{low, high, big.NewInt(9), big.NewInt(0), big.NewInt(1700000000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(5))
	if got.A.Cmp(want) != 0 || got.B.Int64() != 9 {
		t.Fatalf("unexpected reserves: %s/%s", got.A, got.B)
	}

	if _, err := DecodeReserves([]*big.Int{low, high}); !errors.Is(err, amm.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestDiscoverSkipsLengthPrefix(t *testing.T) {
	ledger := chaintest.New(10)
	factory := NewFactory(addr(1000), DefaultFee, amm.Options{})
	ledger.Set(factory.Address(), "get_all_pairs", nil, big.NewInt(2), addr(10).Big(), addr(11).Big())

	got, err := factory.DiscoverPoolAddresses(context.Background(), ledger, chain.Latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []common.Hash{addr(10), addr(11)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("addresses mismatch: %v != %v", got, want)
	}
}

func TestDiscoverEmptyFactory(t *testing.T) {
	ledger := chaintest.New(10)
	factory := NewFactory(addr(1000), DefaultFee, amm.Options{})
	ledger.Set(factory.Address(), "get_all_pairs", nil, big.NewInt(0))

	got, err := factory.DiscoverPoolAddresses(context.Background(), ledger, chain.Latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no pools, got %v", got)
	}
}

func TestDiscoverRejectsBadLength(t *testing.T) {
	ledger := chaintest.New(10)
	factory := NewFactory(addr(1000), DefaultFee, amm.Options{})
	ledger.Set(factory.Address(), "get_all_pairs", nil, big.NewInt(3), addr(10).Big())

	if _, err := factory.DiscoverPoolAddresses(context.Background(), ledger, chain.Latest); !errors.Is(err, amm.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func scriptPool(ledger *chaintest.Ledger, pool common.Hash, r0, r1 int64) {
	ledger.Set(pool, "token0", nil, addr(1).Big())
	ledger.Set(pool, "token1", nil, addr(2).Big())
	ledger.Set(pool, "get_reserves", nil, big.NewInt(r0), big.NewInt(0), big.NewInt(r1), big.NewInt(0), big.NewInt(1))
}

func TestHydrateAllAndRefresh(t *testing.T) {
	ledger := chaintest.New(10)
	ledger.Set(addr(1), "decimals", nil, big.NewInt(18))
	ledger.Set(addr(2), "decimals", nil, big.NewInt(6))
	scriptPool(ledger, addr(10), 1000, 2000)

	factory := NewFactory(addr(1000), 25, amm.Options{})
	pools, err := factory.HydrateAll(context.Background(), ledger, []common.Hash{addr(10)}, chain.Latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 1 || pools[0].Kind() != Kind || pools[0].Fee() != 25 {
		t.Fatalf("unexpected pools: %+v", pools)
	}
	if pools[0].Decimals() != [2]uint8{18, 6} {
		t.Fatalf("unexpected decimals: %v", pools[0].Decimals())
	}

	scriptPool(ledger, addr(10), 3000, 4000)
	if err := factory.RefreshMany(context.Background(), ledger, pools, chain.Latest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pools[0].Reserves().A.Int64() != 3000 || pools[0].Reserves().B.Int64() != 4000 {
		t.Fatalf("reserves not refreshed: %v", pools[0].Reserves())
	}

	scriptPool(ledger, addr(10), 5, 6)
	r, err := pools[0].RefreshReserves(context.Background(), chaintest.Sequential(ledger), chain.Latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.A.Int64() != 5 || pools[0].Reserves().B.Int64() != 6 {
		t.Fatalf("single refresh mismatch: %v", pools[0].Reserves())
	}
}

func TestPoolRecordRoundTrip(t *testing.T) {
	pair := amm.NewPair(addr(10), [2]common.Hash{addr(1), addr(2)}, [2]uint8{18, 6},
		amm.Reserves{A: big.NewInt(11), B: big.NewInt(22)}, DefaultFee)
	rec := NewPool(pair).Record()
	if rec.Kind != string(Kind) {
		t.Fatalf("unexpected kind: %s", rec.Kind)
	}

	restored, err := PoolFromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(restored.Record(), rec) {
		t.Fatalf("record mismatch: %+v != %+v", restored.Record(), rec)
	}

	clone := restored.Clone()
	clone.(*Pool).SetReserves(amm.Reserves{A: big.NewInt(1), B: big.NewInt(1)})
	if restored.Reserves().A.Int64() != 11 {
		t.Fatalf("clone shares state with original")
	}
}
