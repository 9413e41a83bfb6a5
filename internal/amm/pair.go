package amm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/chain"
	"arbScope/internal/model"
	"arbScope/internal/swapmath"
)

// Pair is the state every constant-product pool carries. Exchange variants
// embed it and add their own reserve decoding.
type Pair struct {
	address  common.Hash
	tokens   [2]common.Hash
	decimals [2]uint8
	reserves Reserves
	fee      uint32
}

func NewPair(address common.Hash, tokens [2]common.Hash, decimals [2]uint8, reserves Reserves, fee uint32) Pair {
	return Pair{
		address:  address,
		tokens:   tokens,
		decimals: decimals,
		reserves: reserves.Copy(),
		fee:      fee,
	}
}

// PairFromRecord rebuilds a Pair from its persisted form.
func PairFromRecord(rec model.PoolRecord) (Pair, error) {
	address, err := chain.ParseAddress(rec.Address)
	if err != nil {
		return Pair{}, fmt.Errorf("pool address: %w", err)
	}
	tokenA, err := chain.ParseAddress(rec.TokenA)
	if err != nil {
		return Pair{}, fmt.Errorf("pool %s token_a: %w", rec.Address, err)
	}
	tokenB, err := chain.ParseAddress(rec.TokenB)
	if err != nil {
		return Pair{}, fmt.Errorf("pool %s token_b: %w", rec.Address, err)
	}
	reserveA, err := parseReserve(rec.ReserveA)
	if err != nil {
		return Pair{}, fmt.Errorf("pool %s reserve_a: %w", rec.Address, err)
	}
	reserveB, err := parseReserve(rec.ReserveB)
	if err != nil {
		return Pair{}, fmt.Errorf("pool %s reserve_b: %w", rec.Address, err)
	}
	if rec.Fee >= swapmath.FeeDenominator {
		return Pair{}, fmt.Errorf("pool %s: %w: %d", rec.Address, swapmath.ErrInvalidFee, rec.Fee)
	}
	return Pair{
		address:  address,
		tokens:   [2]common.Hash{tokenA, tokenB},
		decimals: [2]uint8{rec.DecimalsA, rec.DecimalsB},
		reserves: Reserves{A: reserveA, B: reserveB},
		fee:      rec.Fee,
	}, nil
}

func parseReserve(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid reserve %q", s)
	}
	return v, nil
}

func (p *Pair) Address() common.Hash   { return p.address }
func (p *Pair) Tokens() [2]common.Hash { return p.tokens }
func (p *Pair) Decimals() [2]uint8     { return p.decimals }
func (p *Pair) Fee() uint32            { return p.fee }
func (p *Pair) Reserves() Reserves     { return p.reserves.Copy() }

// SetReserves replaces both reserves together.
func (p *Pair) SetReserves(r Reserves) {
	p.reserves = r.Copy()
}

// Copy returns an independent Pair.
func (p *Pair) Copy() Pair {
	out := *p
	out.reserves = p.reserves.Copy()
	return out
}

// side returns the index of token in the pair.
func (p *Pair) side(token common.Hash) (int, error) {
	switch token {
	case p.tokens[0]:
		return 0, nil
	case p.tokens[1]:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %s in pool %s", ErrUnknownToken, chain.AddressHex(token), chain.AddressHex(p.address))
	}
}

func (p *Pair) reserve(i int) *big.Int {
	if i == 0 {
		return p.reserves.A
	}
	return p.reserves.B
}

// SimulateSwap quotes amountIn of tokenIn against the current reserves.
func (p *Pair) SimulateSwap(tokenIn common.Hash, amountIn *big.Int) (*big.Int, error) {
	in, err := p.side(tokenIn)
	if err != nil {
		return nil, err
	}
	return swapmath.QuoteOut(amountIn, p.reserve(in), p.reserve(1-in), p.fee)
}

// SimulateSwapMut quotes the swap and applies it to the local reserves.
func (p *Pair) SimulateSwapMut(tokenIn common.Hash, amountIn *big.Int) (*big.Int, error) {
	in, err := p.side(tokenIn)
	if err != nil {
		return nil, err
	}
	out, err := swapmath.QuoteOut(amountIn, p.reserve(in), p.reserve(1-in), p.fee)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 {
		return out, nil
	}

	newIn := new(big.Int).Add(p.reserve(in), amountIn)
	newOut := new(big.Int).Sub(p.reserve(1-in), out)
	if in == 0 {
		p.reserves = Reserves{A: newIn, B: newOut}
	} else {
		p.reserves = Reserves{A: newOut, B: newIn}
	}
	return out, nil
}

// Price returns the spot price of base in units of the other token,
// scaled by both tokens' decimals. It returns zero when base has no reserve.
func (p *Pair) Price(base common.Hash) (float64, error) {
	b, err := p.side(base)
	if err != nil {
		return 0, err
	}
	q := 1 - b
	rb, rq := p.reserve(b), p.reserve(q)
	if rb == nil || rb.Sign() == 0 || rq == nil {
		return 0, nil
	}

	num := new(big.Float).SetPrec(256).SetInt(rq)
	num.Mul(num, pow10Float(p.decimals[b]))
	den := new(big.Float).SetPrec(256).SetInt(rb)
	den.Mul(den, pow10Float(p.decimals[q]))
	price, _ := num.Quo(num, den).Float64()
	return price, nil
}

func pow10Float(decimals uint8) *big.Float {
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).SetPrec(256).SetInt(v)
}

// RecordAs renders the Pair as a persisted record tagged with kind.
func (p *Pair) RecordAs(kind Kind) model.PoolRecord {
	return model.PoolRecord{
		Kind:      string(kind),
		Address:   chain.AddressHex(p.address),
		TokenA:    chain.AddressHex(p.tokens[0]),
		TokenB:    chain.AddressHex(p.tokens[1]),
		DecimalsA: p.decimals[0],
		DecimalsB: p.decimals[1],
		ReserveA:  cloneInt(p.reserves.A).String(),
		ReserveB:  cloneInt(p.reserves.B).String(),
		Fee:       p.fee,
	}
}
