// Package arbitrage looks for profitable two-pool round trips.
package arbitrage

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/exchange"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
)

// Opportunity is the outcome of one round trip: probe tokenIn through
// PoolIn, then swap the proceeds back through PoolOut.
type Opportunity struct {
	ID           uuid.UUID
	PoolIn       common.Hash
	PoolOut      common.Hash
	TokenIn      common.Hash
	TokenMid     common.Hash
	AmountIn     *big.Int
	AmountMid    *big.Int
	AmountOut    *big.Int
	Profit       *big.Int
	IsProfitable bool
	Block        uint64
	FoundAt      time.Time
}

func (o Opportunity) Record() model.OpportunityRecord {
	return model.OpportunityRecord{
		ID:           o.ID.String(),
		PoolIn:       chain.AddressHex(o.PoolIn),
		PoolOut:      chain.AddressHex(o.PoolOut),
		TokenIn:      chain.AddressHex(o.TokenIn),
		TokenMid:     chain.AddressHex(o.TokenMid),
		AmountIn:     o.AmountIn.String(),
		AmountMid:    o.AmountMid.String(),
		AmountOut:    o.AmountOut.String(),
		Profit:       o.Profit.String(),
		IsProfitable: o.IsProfitable,
		Block:        o.Block,
		FoundAt:      o.FoundAt.UTC().Format(time.RFC3339Nano),
	}
}

// Config controls a Scanner.
type Config struct {
	// Refresh re-reads the reserves of every pool involved right before
	// simulating, all at the same head block.
	Refresh bool
	// Block is reported on opportunities when Refresh is off, normally the
	// block the pools were synchronized through.
	Block uint64
	// Options tune the batched refresh.
	Options amm.Options
}

type Scanner struct {
	ledger  chain.Caller
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewScanner builds a Scanner. ledger may be nil when cfg.Refresh is false.
func NewScanner(ledger chain.Caller, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{ledger: ledger, cfg: cfg, logger: logger, metrics: m, now: time.Now}
}

// FindOpportunity simulates probe of the lower-addressed shared token
// through x and the proceeds back through y. The pools must serve the same
// token pair.
func (s *Scanner) FindOpportunity(ctx context.Context, x, y amm.Pool, probe *big.Int) (Opportunity, error) {
	if err := checkProbe(probe); err != nil {
		return Opportunity{}, err
	}
	if !amm.SamePair(x.Tokens(), y.Tokens()) {
		return Opportunity{}, fmt.Errorf("%w: %s and %s", amm.ErrPairMismatch, chain.AddressHex(x.Address()), chain.AddressHex(y.Address()))
	}
	block := s.cfg.Block
	if s.cfg.Refresh {
		head, err := s.refresh(ctx, []amm.Pool{x, y})
		if err != nil {
			return Opportunity{}, err
		}
		block = head
	}
	return s.evaluate(x, y, probe, block)
}

// Scan evaluates every ordered pair of distinct pools that share a token
// pair and returns the profitable round trips.
func (s *Scanner) Scan(ctx context.Context, pools []amm.Pool, probe *big.Int) ([]Opportunity, error) {
	if err := checkProbe(probe); err != nil {
		return nil, err
	}
	groups := groupByPair(pools)

	block := s.cfg.Block
	if s.cfg.Refresh {
		var candidates []amm.Pool
		for _, g := range groups {
			candidates = append(candidates, g...)
		}
		if len(candidates) > 0 {
			head, err := s.refresh(ctx, candidates)
			if err != nil {
				return nil, err
			}
			block = head
		}
	}

	var found []Opportunity
	for _, g := range groups {
		for i, x := range g {
			for j, y := range g {
				if i == j {
					continue
				}
				opp, err := s.evaluate(x, y, probe, block)
				if err != nil {
					return nil, err
				}
				if opp.IsProfitable {
					found = append(found, opp)
				}
			}
		}
	}
	s.logger.Info("scan complete", zap.Int("pairs", len(groups)), zap.Int("opportunities", len(found)), zap.Uint64("block", block))
	return found, nil
}

func (s *Scanner) evaluate(x, y amm.Pool, probe *big.Int, block uint64) (Opportunity, error) {
	t0, t1 := orderedTokens(x.Tokens())

	mid, err := x.SimulateSwap(t0, probe)
	if err != nil {
		return Opportunity{}, fmt.Errorf("simulate %s: %w", chain.AddressHex(x.Address()), err)
	}
	out, err := y.SimulateSwap(t1, mid)
	if err != nil {
		return Opportunity{}, fmt.Errorf("simulate %s: %w", chain.AddressHex(y.Address()), err)
	}

	s.metrics.IncScanned()
	opp := Opportunity{
		ID:           uuid.New(),
		PoolIn:       x.Address(),
		PoolOut:      y.Address(),
		TokenIn:      t0,
		TokenMid:     t1,
		AmountIn:     new(big.Int).Set(probe),
		AmountMid:    mid,
		AmountOut:    out,
		Profit:       new(big.Int).Sub(out, probe),
		IsProfitable: out.Cmp(probe) > 0,
		Block:        block,
		FoundAt:      s.now().UTC(),
	}
	if opp.IsProfitable {
		s.metrics.IncOpportunity()
	}
	return opp, nil
}

// refresh re-reads pools at the current head, one batch per variant.
func (s *Scanner) refresh(ctx context.Context, pools []amm.Pool) (uint64, error) {
	if s.ledger == nil {
		return 0, fmt.Errorf("refresh requested without a ledger")
	}
	head, err := s.ledger.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("query head block: %w", err)
	}
	for _, part := range exchange.Partitions(pools) {
		if err := exchange.RefreshMany(ctx, s.ledger, part.Pools, chain.Number(head), s.cfg.Options); err != nil {
			return 0, fmt.Errorf("refresh %s pools: %w", part.Kind, err)
		}
	}
	return head, nil
}

func checkProbe(probe *big.Int) error {
	if probe == nil || probe.Sign() <= 0 {
		return fmt.Errorf("probe amount must be positive")
	}
	return nil
}

func orderedTokens(tokens [2]common.Hash) (common.Hash, common.Hash) {
	if bytes.Compare(tokens[0][:], tokens[1][:]) <= 0 {
		return tokens[0], tokens[1]
	}
	return tokens[1], tokens[0]
}

// groupByPair returns the pools sharing each unordered token pair, keeping
// only pairs served by at least two distinct pools. Groups are ordered by
// token pair.
func groupByPair(pools []amm.Pool) [][]amm.Pool {
	type key [2]common.Hash
	byPair := make(map[key][]amm.Pool)
	for _, p := range exchange.Dedup(pools) {
		t0, t1 := orderedTokens(p.Tokens())
		byPair[key{t0, t1}] = append(byPair[key{t0, t1}], p)
	}

	keys := make([]key, 0, len(byPair))
	for k, group := range byPair {
		if len(group) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := bytes.Compare(keys[i][0][:], keys[j][0][:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(keys[i][1][:], keys[j][1][:]) < 0
	})

	out := make([][]amm.Pool, 0, len(keys))
	for _, k := range keys {
		out = append(out, byPair[k])
	}
	return out
}
