// Package swapmath implements the constant-product output formula with the
// fee taken from the input leg.
package swapmath

import (
	"errors"
	"fmt"
	"math/big"
)

// FeeDenominator is the basis-point scale.
const FeeDenominator = 10000

var (
	// ErrOverflow is returned when an operand does not fit in 256 bits.
	ErrOverflow = errors.New("swapmath: operand exceeds 256 bits")
	// ErrInvalidFee is returned for fees outside [0, 10000).
	ErrInvalidFee = errors.New("swapmath: fee out of range")
	// ErrNegative is returned for negative operands.
	ErrNegative = errors.New("swapmath: negative operand")
)

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	feeDenom   = big.NewInt(FeeDenominator)
)

// QuoteOut returns the output amount for swapping amountIn against a pool
// holding reserveIn/reserveOut:
//
//	inAfterFee = amountIn * (10000 - feeBps) / 10000
//	out        = inAfterFee * reserveOut / (reserveIn + inAfterFee)
//
// Every division floors. Intermediate products are computed at arbitrary
// precision, so inAfterFee*reserveOut may exceed 256 bits safely. A zero
// amount or a zero reserve yields zero.
func QuoteOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint32) (*big.Int, error) {
	if feeBps >= FeeDenominator {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBps)
	}
	for _, v := range []*big.Int{amountIn, reserveIn, reserveOut} {
		if err := checkOperand(v); err != nil {
			return nil, err
		}
	}
	if isZero(amountIn) || isZero(reserveIn) || isZero(reserveOut) {
		return new(big.Int), nil
	}

	inAfterFee := new(big.Int).Mul(amountIn, big.NewInt(int64(FeeDenominator-feeBps)))
	inAfterFee.Quo(inAfterFee, feeDenom)

	numerator := new(big.Int).Mul(inAfterFee, reserveOut)
	denominator := new(big.Int).Add(reserveIn, inAfterFee)
	return numerator.Quo(numerator, denominator), nil
}

// QuoteIn returns the smallest input that yields at least amountOut. It
// returns ErrOverflow when amountOut cannot be bought from the pool.
func QuoteIn(amountOut, reserveIn, reserveOut *big.Int, feeBps uint32) (*big.Int, error) {
	if feeBps >= FeeDenominator {
		return nil, fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBps)
	}
	for _, v := range []*big.Int{amountOut, reserveIn, reserveOut} {
		if err := checkOperand(v); err != nil {
			return nil, err
		}
	}
	if isZero(amountOut) {
		return new(big.Int), nil
	}
	if isZero(reserveIn) || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: output %s not available from reserve %s", ErrOverflow, amountOut, reserveOut)
	}

	// inAfterFee >= amountOut*reserveIn / (reserveOut-amountOut), rounded up.
	num := new(big.Int).Mul(amountOut, reserveIn)
	den := new(big.Int).Sub(reserveOut, amountOut)
	inAfterFee := ceilDiv(num, den)

	// amountIn*(10000-fee)/10000 >= inAfterFee, rounded up.
	amountIn := ceilDiv(new(big.Int).Mul(inAfterFee, feeDenom), big.NewInt(int64(FeeDenominator-feeBps)))
	if amountIn.Cmp(maxUint256) > 0 {
		return nil, ErrOverflow
	}
	return amountIn, nil
}

// Bound returns amountIn*reserveOut/reserveIn, the fee-free marginal-price
// output no quote can exceed. It returns zero for a zero reserveIn.
func Bound(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if isZero(reserveIn) {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amountIn, reserveOut)
	return out.Quo(out, reserveIn)
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func checkOperand(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNegative, v)
	}
	if v.Cmp(maxUint256) > 0 {
		return fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return nil
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
