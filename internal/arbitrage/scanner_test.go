package arbitrage

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

var (
	t0 = addr(1)
	t1 = addr(2)
)

func addr(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func tenkPool(address int64, tokens [2]common.Hash, a, b int64) *tenkswap.Pool {
	return tenkswap.NewPool(amm.NewPair(addr(address), tokens, [2]uint8{18, 18},
		amm.Reserves{A: big.NewInt(a), B: big.NewInt(b)}, 0))
}

func TestFindOpportunityNoArbitrage(t *testing.T) {
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	y := tenkPool(11, [2]common.Hash{t1, t0}, 2000, 1000)

	opp, err := NewScanner(nil, Config{Block: 42}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.AmountMid.Int64() != 181 || opp.AmountOut.Int64() != 82 {
		t.Fatalf("unexpected amounts: mid=%s out=%s", opp.AmountMid, opp.AmountOut)
	}
	if opp.IsProfitable || opp.Profit.Int64() != -18 {
		t.Fatalf("expected no opportunity: %+v", opp)
	}
	if opp.TokenIn != t0 || opp.TokenMid != t1 || opp.Block != 42 {
		t.Fatalf("unexpected metadata: %+v", opp)
	}
}

func TestFindOpportunityProfitable(t *testing.T) {
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	y := tenkPool(11, [2]common.Hash{t1, t0}, 1000, 3000)

	opp, err := NewScanner(nil, Config{}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opp.IsProfitable || opp.AmountOut.Int64() != 459 || opp.Profit.Int64() != 359 {
		t.Fatalf("expected opportunity: %+v", opp)
	}
	if opp.ID.String() == "" || opp.PoolIn != x.Address() || opp.PoolOut != y.Address() {
		t.Fatalf("unexpected identity: %+v", opp)
	}
}

func TestFindOpportunityOrdersTokens(t *testing.T) {
	// x lists the pair high-first; the probe still enters as the lower token.
	x := tenkPool(10, [2]common.Hash{t1, t0}, 2000, 1000)
	y := tenkPool(11, [2]common.Hash{t1, t0}, 1000, 3000)

	opp, err := NewScanner(nil, Config{}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.TokenIn != t0 || opp.AmountMid.Int64() != 181 || opp.AmountOut.Int64() != 459 {
		t.Fatalf("unexpected result: %+v", opp)
	}
}

func TestFindOpportunityPairMismatch(t *testing.T) {
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	y := tenkPool(11, [2]common.Hash{t0, addr(3)}, 1000, 3000)

	_, err := NewScanner(nil, Config{}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if !errors.Is(err, amm.ErrPairMismatch) {
		t.Fatalf("expected pair mismatch, got %v", err)
	}
}

func TestFindOpportunityRejectsBadProbe(t *testing.T) {
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	y := tenkPool(11, [2]common.Hash{t1, t0}, 1000, 3000)
	s := NewScanner(nil, Config{}, nil, nil)
	if _, err := s.FindOpportunity(context.Background(), x, y, nil); err == nil {
		t.Fatalf("expected error for nil probe")
	}
	if _, err := s.FindOpportunity(context.Background(), x, y, big.NewInt(0)); err == nil {
		t.Fatalf("expected error for zero probe")
	}
}

func TestFindOpportunityRefreshesFirst(t *testing.T) {
	ledger := chaintest.New(77)
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	// Stale reserves say no arbitrage; the chain says otherwise.
	y := tenkPool(11, [2]common.Hash{t1, t0}, 2000, 1000)
	ledger.Set(x.Address(), "get_reserves", nil, big.NewInt(1000), big.NewInt(2000), big.NewInt(1))
	ledger.Set(y.Address(), "get_reserves", nil, big.NewInt(1000), big.NewInt(3000), big.NewInt(1))

	opp, err := NewScanner(ledger, Config{Refresh: true}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opp.IsProfitable || opp.Block != 77 {
		t.Fatalf("expected refreshed opportunity at block 77: %+v", opp)
	}
}

func TestFindOpportunityLedgerFailureIsDistinct(t *testing.T) {
	ledger := chaintest.New(77)
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000)
	y := jediswap.NewPool(amm.NewPair(addr(11), [2]common.Hash{t1, t0}, [2]uint8{18, 18},
		amm.Reserves{A: big.NewInt(1000), B: big.NewInt(3000)}, 0))
	ledger.Set(x.Address(), "get_reserves", nil, big.NewInt(1000), big.NewInt(2000), big.NewInt(1))
	ledger.Fail(y.Address(), "get_reserves", 1)

	_, err := NewScanner(ledger, Config{Refresh: true}, nil, nil).FindOpportunity(context.Background(), x, y, big.NewInt(100))
	if !errors.Is(err, chain.ErrRPCFailure) {
		t.Fatalf("expected rpc failure, got %v", err)
	}
}

func TestScanGroupsByPair(t *testing.T) {
	pools := []amm.Pool{
		tenkPool(10, [2]common.Hash{t0, t1}, 1000, 2000),
		tenkPool(11, [2]common.Hash{t1, t0}, 1000, 3000),
		// Alone on its pair: never evaluated.
		tenkPool(12, [2]common.Hash{t0, addr(3)}, 1, 1000000),
	}

	found, err := NewScanner(nil, Config{}, nil, nil).Scan(context.Background(), pools, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one opportunity, got %d", len(found))
	}
	if found[0].PoolIn != addr(10) || found[0].PoolOut != addr(11) {
		t.Fatalf("unexpected route: %+v", found[0])
	}
}

func TestScanRefreshesCandidatesOnce(t *testing.T) {
	ledger := chaintest.New(5)
	x := tenkPool(10, [2]common.Hash{t0, t1}, 1, 1)
	y := tenkPool(11, [2]common.Hash{t1, t0}, 1, 1)
	ledger.Set(x.Address(), "get_reserves", nil, big.NewInt(1000), big.NewInt(2000), big.NewInt(1))
	ledger.Set(y.Address(), "get_reserves", nil, big.NewInt(1000), big.NewInt(3000), big.NewInt(1))

	found, err := NewScanner(ledger, Config{Refresh: true}, nil, nil).Scan(context.Background(), []amm.Pool{x, y}, big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 || found[0].Block != 5 {
		t.Fatalf("unexpected result: %+v", found)
	}
	if ledger.Batches() != 1 || ledger.Calls() != 2 {
		t.Fatalf("expected one batched refresh, got batches=%d calls=%d", ledger.Batches(), ledger.Calls())
	}
}
