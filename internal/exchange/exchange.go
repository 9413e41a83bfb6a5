// Package exchange is the closed registry of supported exchange variants.
// Adding an exchange means adding one entry to the variants table.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/amm"
	"arbScope/internal/amm/jediswap"
	"arbScope/internal/amm/tenkswap"
	"arbScope/internal/chain"
	"arbScope/internal/model"
)

// ErrUnknownKind is returned for a variant name with no registry entry.
var ErrUnknownKind = errors.New("unknown exchange kind")

// Variant wires one exchange implementation into the registry.
type Variant struct {
	Kind           amm.Kind
	DefaultFee     uint32
	NewFactory     func(address common.Hash, fee uint32, opts amm.Options) amm.Factory
	PoolFromRecord func(rec model.PoolRecord) (amm.Pool, error)
	Refresh        func(ctx context.Context, c chain.Caller, pools []amm.Pool, block chain.BlockID, opts amm.Options) error
}

var variants = map[amm.Kind]Variant{
	jediswap.Kind: {
		Kind:       jediswap.Kind,
		DefaultFee: jediswap.DefaultFee,
		NewFactory: func(address common.Hash, fee uint32, opts amm.Options) amm.Factory {
			return jediswap.NewFactory(address, fee, opts)
		},
		PoolFromRecord: jediswap.PoolFromRecord,
		Refresh:        jediswap.Refresh,
	},
	tenkswap.Kind: {
		Kind:       tenkswap.Kind,
		DefaultFee: tenkswap.DefaultFee,
		NewFactory: func(address common.Hash, fee uint32, opts amm.Options) amm.Factory {
			return tenkswap.NewFactory(address, fee, opts)
		},
		PoolFromRecord: tenkswap.PoolFromRecord,
		Refresh:        tenkswap.Refresh,
	},
}

// Kinds lists the registered variants in name order.
func Kinds() []amm.Kind {
	kinds := make([]amm.Kind, 0, len(variants))
	for kind := range variants {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Lookup returns the registry entry for kind.
func Lookup(kind amm.Kind) (Variant, error) {
	v, ok := variants[kind]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return v, nil
}

func NewFactory(kind amm.Kind, address common.Hash, fee uint32, opts amm.Options) (amm.Factory, error) {
	v, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	return v.NewFactory(address, fee, opts), nil
}

// ParseFactory parses "kind:address[:fee_bps]". The variant's default fee
// applies when fee_bps is omitted.
func ParseFactory(input string, opts amm.Options) (amm.Factory, error) {
	parts := strings.Split(strings.TrimSpace(input), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid factory %q: want kind:address[:fee_bps]", input)
	}
	v, err := Lookup(amm.Kind(strings.ToLower(parts[0])))
	if err != nil {
		return nil, err
	}
	address, err := chain.ParseAddress(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid factory %q: %w", input, err)
	}
	fee := v.DefaultFee
	if len(parts) == 3 {
		parsed, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil || parsed >= 10000 {
			return nil, fmt.Errorf("invalid factory %q: fee must be in [0, 10000) bps", input)
		}
		fee = uint32(parsed)
	}
	return v.NewFactory(address, fee, opts), nil
}

func FactoryFromRecord(rec model.FactoryRecord, opts amm.Options) (amm.Factory, error) {
	address, err := chain.ParseAddress(rec.Address)
	if err != nil {
		return nil, fmt.Errorf("factory address: %w", err)
	}
	return NewFactory(amm.Kind(rec.Kind), address, rec.Fee, opts)
}

func PoolFromRecord(rec model.PoolRecord) (amm.Pool, error) {
	v, err := Lookup(amm.Kind(rec.Kind))
	if err != nil {
		return nil, err
	}
	return v.PoolFromRecord(rec)
}

// Partition is a homogeneous slice of pools.
type Partition struct {
	Kind  amm.Kind
	Pools []amm.Pool
}

// Partitions splits pools by kind. Partitions are ordered by kind and keep
// the input order of their pools.
func Partitions(pools []amm.Pool) []Partition {
	byKind := make(map[amm.Kind][]amm.Pool)
	for _, p := range pools {
		byKind[p.Kind()] = append(byKind[p.Kind()], p)
	}
	out := make([]Partition, 0, len(byKind))
	for kind, group := range byKind {
		out = append(out, Partition{Kind: kind, Pools: group})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// RefreshMany refreshes a homogeneous pool set through its variant. A set
// mixing variants fails with amm.ErrIncongruentSet before any ledger call.
func RefreshMany(ctx context.Context, c chain.Caller, pools []amm.Pool, block chain.BlockID, opts amm.Options) error {
	if len(pools) == 0 {
		return nil
	}
	kind := pools[0].Kind()
	if err := amm.CheckCongruent(kind, pools); err != nil {
		return err
	}
	v, err := Lookup(kind)
	if err != nil {
		return err
	}
	return v.Refresh(ctx, c, pools, block, opts)
}

// Equal reports whether two pools are the same registry entry.
func Equal(a, b amm.Pool) bool {
	return a.Address() == b.Address()
}

// Dedup drops pools whose address was already seen, keeping the first.
func Dedup(pools []amm.Pool) []amm.Pool {
	seen := make(map[common.Hash]struct{}, len(pools))
	out := make([]amm.Pool, 0, len(pools))
	for _, p := range pools {
		if _, ok := seen[p.Address()]; ok {
			continue
		}
		seen[p.Address()] = struct{}{}
		out = append(out, p)
	}
	return out
}

// DedupFactories drops factories whose address was already seen.
func DedupFactories(factories []amm.Factory) []amm.Factory {
	seen := make(map[common.Hash]struct{}, len(factories))
	out := make([]amm.Factory, 0, len(factories))
	for _, f := range factories {
		if _, ok := seen[f.Address()]; ok {
			continue
		}
		seen[f.Address()] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Index maps pools by address.
func Index(pools []amm.Pool) map[common.Hash]amm.Pool {
	out := make(map[common.Hash]amm.Pool, len(pools))
	for _, p := range pools {
		out[p.Address()] = p
	}
	return out
}
