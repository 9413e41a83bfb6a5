package exchange

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/amm/jediswap"
	"arbScope/internal/amm/tenkswap"
	"arbScope/internal/chain"
	"arbScope/internal/chain/chaintest"
)

func addr(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func pair(address int64, a, b int64) amm.Pair {
	return amm.NewPair(addr(address), [2]common.Hash{addr(1), addr(2)}, [2]uint8{18, 18},
		amm.Reserves{A: big.NewInt(a), B: big.NewInt(b)}, 30)
}

func TestRefreshManyRejectsMixedVariants(t *testing.T) {
	ledger := chaintest.New(10)
	jedi := jediswap.NewPool(pair(10, 1, 2))
	tenk := tenkswap.NewPool(pair(20, 3, 4))
	ledger.Set(jedi.Address(), "get_reserves", nil, big.NewInt(9), big.NewInt(0), big.NewInt(9), big.NewInt(0), big.NewInt(1))
	ledger.Set(tenk.Address(), "get_reserves", nil, big.NewInt(9), big.NewInt(9), big.NewInt(1))

	err := RefreshMany(context.Background(), ledger, []amm.Pool{jedi, tenk}, chain.Latest, amm.Options{})
	if !errors.Is(err, amm.ErrIncongruentSet) {
		t.Fatalf("expected incongruent set, got %v", err)
	}
	if ledger.Calls() != 0 {
		t.Fatalf("expected no ledger traffic, got %d calls", ledger.Calls())
	}
	if jedi.Reserves().A.Int64() != 1 || tenk.Reserves().A.Int64() != 3 {
		t.Fatalf("partial update: %v %v", jedi.Reserves(), tenk.Reserves())
	}

	// The variant refreshers enforce the same rule when called directly.
	if err := jediswap.Refresh(context.Background(), ledger, []amm.Pool{jedi, tenk}, chain.Latest, amm.Options{}); !errors.Is(err, amm.ErrIncongruentSet) {
		t.Fatalf("expected incongruent set from variant, got %v", err)
	}
}

func TestRefreshManyDispatchesByKind(t *testing.T) {
	ledger := chaintest.New(10)
	tenk := tenkswap.NewPool(pair(20, 3, 4))
	ledger.Set(tenk.Address(), "get_reserves", nil, big.NewInt(30), big.NewInt(40), big.NewInt(1))

	if err := RefreshMany(context.Background(), ledger, []amm.Pool{tenk}, chain.Latest, amm.Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenk.Reserves().A.Int64() != 30 || tenk.Reserves().B.Int64() != 40 {
		t.Fatalf("unexpected reserves: %v", tenk.Reserves())
	}
	if err := RefreshMany(context.Background(), ledger, nil, chain.Latest, amm.Options{}); err != nil {
		t.Fatalf("empty refresh should succeed: %v", err)
	}
}

func TestPartitions(t *testing.T) {
	pools := []amm.Pool{
		tenkswap.NewPool(pair(20, 1, 1)),
		jediswap.NewPool(pair(10, 1, 1)),
		tenkswap.NewPool(pair(21, 1, 1)),
	}
	parts := Partitions(pools)
	if len(parts) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(parts))
	}
	if parts[0].Kind != jediswap.Kind || len(parts[0].Pools) != 1 {
		t.Fatalf("unexpected first partition: %+v", parts[0])
	}
	if parts[1].Kind != tenkswap.Kind || parts[1].Pools[0].Address() != addr(20) || parts[1].Pools[1].Address() != addr(21) {
		t.Fatalf("unexpected second partition: %+v", parts[1])
	}
}

func TestDedupByAddress(t *testing.T) {
	first := jediswap.NewPool(pair(10, 1, 1))
	// Identity is the address, even across variants.
	dup := tenkswap.NewPool(pair(10, 5, 5))
	other := tenkswap.NewPool(pair(11, 1, 1))

	if !Equal(first, dup) || Equal(first, other) {
		t.Fatalf("unexpected equality")
	}
	got := Dedup([]amm.Pool{first, dup, other})
	if len(got) != 2 || got[0] != amm.Pool(first) || got[1] != amm.Pool(other) {
		t.Fatalf("unexpected dedup result: %v", got)
	}
}

func TestParseFactory(t *testing.T) {
	f, err := ParseFactory("jediswap:0xdad4", amm.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind() != jediswap.Kind || f.Fee() != jediswap.DefaultFee || f.Address() != common.BigToHash(big.NewInt(0xdad4)) {
		t.Fatalf("unexpected factory: %+v", f.Record())
	}

	f, err = ParseFactory("TenkSwap:0x1c0a:25", amm.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind() != tenkswap.Kind || f.Fee() != 25 {
		t.Fatalf("unexpected factory: %+v", f.Record())
	}

	bad := []string{"jediswap", "uniswap:0x1", "jediswap:xyz", "jediswap:0x1:10000", "jediswap:0x1:30:extra"}
	for _, input := range bad {
		if _, err := ParseFactory(input, amm.Options{}); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	f, err := NewFactory(tenkswap.Kind, addr(2000), 30, amm.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := FactoryFromRecord(f.Record(), amm.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Record() != f.Record() {
		t.Fatalf("factory mismatch: %+v != %+v", back.Record(), f.Record())
	}

	rec := jediswap.NewPool(pair(10, 7, 8)).Record()
	pool, err := PoolFromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Kind() != jediswap.Kind || pool.Record() != rec {
		t.Fatalf("pool mismatch: %+v != %+v", pool.Record(), rec)
	}

	rec.Kind = "uniswap"
	if _, err := PoolFromRecord(rec); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 2 || kinds[0] != jediswap.Kind || kinds[1] != tenkswap.Kind {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
}
