// Package syncer runs one synchronization cycle: refresh every known pool,
// discover pools created since the last checkpoint, and persist the result.
package syncer

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/checkpoint"
	"arbScope/internal/exchange"
	"arbScope/internal/metrics"
)

// Result summarizes a completed cycle.
type Result struct {
	Checkpoint checkpoint.Checkpoint
	// PreviousBlock is the block the loaded checkpoint was synced through.
	PreviousBlock uint64
	Refreshed     int
	Discovered    int
}

// TaskPanic carries a panic raised inside a fan-out task to the caller.
type TaskPanic struct {
	Task  string
	Value any
	Stack []byte
}

func (p *TaskPanic) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.Task, p.Value)
}

type Syncer struct {
	ledger    chain.Caller
	store     *checkpoint.Store
	factories []amm.Factory
	opts      amm.Options
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New builds a Syncer. factories are the configured exchanges; they are
// merged into whatever the checkpoint already lists.
func New(ledger chain.Caller, store *checkpoint.Store, factories []amm.Factory, opts amm.Options, logger *zap.Logger, m *metrics.Metrics) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		ledger:    ledger,
		store:     store,
		factories: factories,
		opts:      opts.Normalized(),
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Run executes one cycle. Either every task succeeds and the new checkpoint
// is written, or the cycle fails and the stored checkpoint is untouched. A
// panic in any task is re-raised here once every task has returned.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	res, err := s.run(ctx)
	if err != nil {
		s.metrics.ObserveCycle("error", started)
		return Result{}, err
	}
	s.metrics.ObserveCycle("ok", started)
	s.metrics.SetCheckpoint(res.Checkpoint.BlockNumber, len(res.Checkpoint.Pools))
	return res, nil
}

func (s *Syncer) run(ctx context.Context) (Result, error) {
	prev, found, err := s.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found {
		s.logger.Info("no checkpoint found, starting from block 0")
	}
	lastBlock := prev.BlockNumber
	factories := exchange.DedupFactories(append(append([]amm.Factory{}, prev.Factories...), s.factories...))

	head, err := s.ledger.BlockNumber(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("query head block: %w", err)
	}
	if head < lastBlock {
		s.logger.Warn("chain head behind checkpoint", zap.Uint64("head", head), zap.Uint64("checkpoint", lastBlock))
	}
	block := chain.Number(head)

	partitions := exchange.Partitions(prev.Pools)
	known := make(map[common.Hash]struct{}, len(prev.Pools))
	for _, p := range prev.Pools {
		known[p.Address()] = struct{}{}
	}

	var (
		panicOnce sync.Once
		panicked  *TaskPanic
	)
	guard := func(name string, fn func() error) func() error {
		return func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					tp := &TaskPanic{Task: name, Value: r, Stack: debug.Stack()}
					panicOnce.Do(func() { panicked = tp })
					err = tp
				}
			}()
			return fn()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, part := range partitions {
		part := part
		g.Go(guard("refresh "+string(part.Kind), func() error {
			if err := exchange.RefreshMany(gctx, s.ledger, part.Pools, block, s.opts); err != nil {
				return fmt.Errorf("refresh %s pools: %w", part.Kind, err)
			}
			s.logger.Info("pools refreshed", zap.String("kind", string(part.Kind)), zap.Int("pools", len(part.Pools)), zap.Uint64("block", head))
			return nil
		}))
	}

	discovered := make([][]amm.Pool, len(factories))
	if head > lastBlock {
		for i, f := range factories {
			i, f := i, f
			g.Go(guard("discover "+chain.AddressHex(f.Address()), func() error {
				pools, err := s.discover(gctx, f, known, block)
				if err != nil {
					return fmt.Errorf("discover %s factory %s: %w", f.Kind(), chain.AddressHex(f.Address()), err)
				}
				discovered[i] = pools
				return nil
			}))
		}
	} else {
		s.logger.Info("head not advanced, skipping discovery", zap.Uint64("head", head), zap.Uint64("checkpoint", lastBlock))
	}

	err = g.Wait()
	if panicked != nil {
		panic(panicked)
	}
	if err != nil {
		return Result{}, err
	}

	pools := append([]amm.Pool{}, prev.Pools...)
	newCount := 0
	for i, found := range discovered {
		if len(found) == 0 {
			continue
		}
		s.metrics.AddDiscovered(string(factories[i].Kind()), len(found))
		pools = append(pools, found...)
		newCount += len(found)
	}
	before := len(pools)
	pools = exchange.Dedup(pools)
	newCount -= before - len(pools)

	for _, part := range partitions {
		s.metrics.AddRefreshed(string(part.Kind), len(part.Pools))
	}

	next := checkpoint.Checkpoint{
		Timestamp:   s.now().UTC(),
		BlockNumber: head,
		Factories:   factories,
		Pools:       pools,
	}
	if err := s.store.Save(ctx, next); err != nil {
		return Result{}, fmt.Errorf("save checkpoint: %w", err)
	}

	s.logger.Info("sync cycle complete",
		zap.Uint64("from_block", lastBlock),
		zap.Uint64("block", head),
		zap.Int("refreshed", len(prev.Pools)),
		zap.Int("discovered", newCount),
		zap.Int("pools", len(pools)),
	)
	return Result{
		Checkpoint:    next,
		PreviousBlock: lastBlock,
		Refreshed:     len(prev.Pools),
		Discovered:    newCount,
	}, nil
}

// discover lists the factory's pools at block and hydrates those not already known.
func (s *Syncer) discover(ctx context.Context, f amm.Factory, known map[common.Hash]struct{}, block chain.BlockID) ([]amm.Pool, error) {
	addresses, err := f.DiscoverPoolAddresses(ctx, s.ledger, block)
	if err != nil {
		return nil, err
	}
	fresh := make([]common.Hash, 0)
	seen := make(map[common.Hash]struct{})
	for _, address := range addresses {
		if _, ok := known[address]; ok {
			continue
		}
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		fresh = append(fresh, address)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	pools, err := f.HydrateAll(ctx, s.ledger, fresh, block)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		if !p.Reserves().Valid() {
			s.logger.Debug("discovered pool has no liquidity", zap.String("pool", chain.AddressHex(p.Address())))
		}
	}
	s.logger.Info("pools discovered",
		zap.String("kind", string(f.Kind())),
		zap.String("factory", chain.AddressHex(f.Address())),
		zap.Int("listed", len(addresses)),
		zap.Int("new", len(pools)),
	)
	return pools, nil
}
