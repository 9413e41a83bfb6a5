package amm

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSimulateSwapOrientation(t *testing.T) {
	p := newTestPool("test", 10, 1000, 2000, 0)

	out, err := p.SimulateSwap(addr(1), big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Int64() != 181 {
		t.Fatalf("a->b mismatch: %s", out)
	}

	out, err = p.SimulateSwap(addr(2), big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 100*1000/(2000+100)
	if out.Int64() != 47 {
		t.Fatalf("b->a mismatch: %s", out)
	}
}

func TestSimulateSwapUnknownToken(t *testing.T) {
	p := newTestPool("test", 10, 1000, 2000, 30)
	if _, err := p.SimulateSwap(addr(3), big.NewInt(1)); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
	if _, err := p.Price(addr(3)); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected unknown token from price, got %v", err)
	}
}

func TestSimulateSwapZeroReserve(t *testing.T) {
	p := newTestPool("test", 10, 0, 2000, 30)
	out, err := p.SimulateSwap(addr(1), big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Sign() != 0 {
		t.Fatalf("expected zero output, got %s", out)
	}
}

func TestSimulateSwapMutAppliesTrade(t *testing.T) {
	p := newTestPool("test", 10, 1000, 2000, 0)
	snapshot := p.Clone()

	out, err := p.SimulateSwapMut(addr(1), big.NewInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Int64() != 181 {
		t.Fatalf("unexpected output: %s", out)
	}
	r := p.Reserves()
	if r.A.Int64() != 1100 || r.B.Int64() != 1819 {
		t.Fatalf("unexpected reserves after swap: %s/%s", r.A, r.B)
	}

	orig := snapshot.Reserves()
	if orig.A.Int64() != 1000 || orig.B.Int64() != 2000 {
		t.Fatalf("clone shares reserves: %s/%s", orig.A, orig.B)
	}
}

func TestReservesAreCopied(t *testing.T) {
	p := newTestPool("test", 10, 1000, 2000, 0)
	r := p.Reserves()
	r.A.SetInt64(1)
	if p.Reserves().A.Int64() != 1000 {
		t.Fatalf("reserves leaked internal state")
	}
}

func TestPriceScalesDecimals(t *testing.T) {
	// 1000 units of an 18-decimal token against 2000 units of a 6-decimal token.
	a := new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	b := big.NewInt(2000 * 1_000_000)
	p := newTestPool("test", 10, 0, 0, 30)
	p.SetReserves(Reserves{A: a, B: b})

	price, err := p.Price(addr(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(price-2) > 1e-12 {
		t.Fatalf("unexpected price: %v", price)
	}
	price, err = p.Price(addr(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(price-0.5) > 1e-12 {
		t.Fatalf("unexpected inverse price: %v", price)
	}
}

func TestPairRecordRoundTrip(t *testing.T) {
	p := newTestPool("test", 10, 0, 0, 30)
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)
	p.SetReserves(Reserves{A: huge, B: big.NewInt(7)})

	rec := p.Record()
	if rec.Kind != "test" || rec.ReserveA != huge.String() || rec.Address != "0xa" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	pair, err := PairFromRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back := (&testPool{Pair: pair, kind: "test"}).Record()
	if !reflect.DeepEqual(rec, back) {
		t.Fatalf("record mismatch: %+v != %+v", rec, back)
	}
}

func TestPairFromRecordRejectsBadInput(t *testing.T) {
	rec := newTestPool("test", 10, 1, 1, 30).Record()

	bad := rec
	bad.ReserveA = "-5"
	if _, err := PairFromRecord(bad); err == nil {
		t.Fatalf("expected error for negative reserve")
	}
	bad = rec
	bad.TokenB = "zz"
	if _, err := PairFromRecord(bad); err == nil {
		t.Fatalf("expected error for bad token")
	}
	bad = rec
	bad.Fee = 10000
	if _, err := PairFromRecord(bad); err == nil {
		t.Fatalf("expected error for fee out of range")
	}
}

func TestSamePair(t *testing.T) {
	if !SamePair([2]common.Hash{addr(1), addr(2)}, [2]common.Hash{addr(2), addr(1)}) {
		t.Fatalf("expected reversed pair to match")
	}
	if SamePair([2]common.Hash{addr(1), addr(2)}, [2]common.Hash{addr(1), addr(3)}) {
		t.Fatalf("expected different pairs to differ")
	}
}
