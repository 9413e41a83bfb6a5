// Package amm holds the pool and factory abstractions shared by every
// supported constant-product exchange.
package amm

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/chain"
	"arbScope/internal/model"
)

// Kind names an exchange variant.
type Kind string

var (
	// ErrUnknownToken is returned when a swap names a token the pool does not hold.
	ErrUnknownToken = errors.New("token not in pool")
	// ErrIncongruentSet is returned when a batch refresh mixes exchange variants.
	ErrIncongruentSet = errors.New("pool set mixes exchange variants")
	// ErrPairMismatch is returned when two pools do not serve the same token pair.
	ErrPairMismatch = errors.New("pools do not share a token pair")
	// ErrMalformedResponse is returned when a ledger result cannot be decoded.
	ErrMalformedResponse = errors.New("malformed ledger response")
)

// Reserves are the two balances observed at one refresh.
type Reserves struct {
	A *big.Int
	B *big.Int
}

// Copy returns reserves that share no memory with r.
func (r Reserves) Copy() Reserves {
	return Reserves{A: cloneInt(r.A), B: cloneInt(r.B)}
}

// Valid reports whether both sides hold liquidity.
func (r Reserves) Valid() bool {
	return r.A != nil && r.B != nil && r.A.Sign() > 0 && r.B.Sign() > 0
}

// Pool is one exchange pool holding a fixed token pair.
type Pool interface {
	Kind() Kind
	Address() common.Hash
	Tokens() [2]common.Hash
	Decimals() [2]uint8
	Reserves() Reserves
	Fee() uint32

	SimulateSwap(tokenIn common.Hash, amountIn *big.Int) (*big.Int, error)
	SimulateSwapMut(tokenIn common.Hash, amountIn *big.Int) (*big.Int, error)
	Price(base common.Hash) (float64, error)

	RefreshReserves(ctx context.Context, c chain.Caller, block chain.BlockID) (Reserves, error)
	Record() model.PoolRecord
	Clone() Pool
}

// Factory enumerates and hydrates the pools of one exchange.
type Factory interface {
	Kind() Kind
	Address() common.Hash
	Fee() uint32

	DiscoverPoolAddresses(ctx context.Context, c chain.Caller, block chain.BlockID) ([]common.Hash, error)
	HydrateAll(ctx context.Context, c chain.Caller, addresses []common.Hash, block chain.BlockID) ([]Pool, error)
	RefreshMany(ctx context.Context, c chain.Caller, pools []Pool, block chain.BlockID) error
	Record() model.FactoryRecord
}

// Options tune how many reads are grouped or run in parallel.
type Options struct {
	// BatchSize caps the calls per CallBatch round trip.
	BatchSize int
	// Concurrency caps parallel calls when the ledger cannot batch.
	Concurrency int
}

var DefaultOptions = Options{BatchSize: 50, Concurrency: 8}

func (o Options) Normalized() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultOptions.BatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultOptions.Concurrency
	}
	return o
}

// SamePair reports whether two token pairs hold the same unordered tokens.
func SamePair(a, b [2]common.Hash) bool {
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}

// CheckCongruent returns ErrIncongruentSet unless every pool is of kind.
func CheckCongruent(kind Kind, pools []Pool) error {
	for _, p := range pools {
		if p.Kind() != kind {
			return &IncongruentError{Want: kind, Got: p.Kind(), Pool: p.Address()}
		}
	}
	return nil
}

// IncongruentError names the first pool that broke a homogeneous set.
type IncongruentError struct {
	Want Kind
	Got  Kind
	Pool common.Hash
}

func (e *IncongruentError) Error() string {
	return "pool " + chain.AddressHex(e.Pool) + " is " + string(e.Got) + ", batch is " + string(e.Want)
}

func (e *IncongruentError) Unwrap() error { return ErrIncongruentSet }

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
