package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/arbitrage"
	"arbScope/internal/chain"
	"arbScope/internal/checkpoint"
	"arbScope/internal/config"
	"arbScope/internal/metrics"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadScan(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	probe, err := parseProbe(cfg.Probe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options(cfg.Ledger)
	store, rdb, closeStore, err := openCheckpoint(ctx, cfg.Checkpoint, opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cp, found, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no checkpoint found; run sync first")
	}

	var ledger chain.Caller
	if cfg.Refresh {
		l, closeLedger, err := openLedger(ctx, cfg.Ledger, logger, nil)
		if err != nil {
			return err
		}
		defer closeLedger()
		ledger = l
	}

	_, err = scanCheckpoint(ctx, cp, cfg, ledger, buildSink(cfg, rdb, logger), logger, nil, probe)
	return err
}

// scanCheckpoint scans the pools of cp and emits the profitable round trips.
func scanCheckpoint(ctx context.Context, cp checkpoint.Checkpoint, cfg config.ScanConfig, ledger chain.Caller, sink arbitrage.Sink, logger *zap.Logger, m *metrics.Metrics, probe *big.Int) ([]arbitrage.Opportunity, error) {
	scanner := arbitrage.NewScanner(ledger, arbitrage.Config{
		Refresh: cfg.Refresh,
		Block:   cp.BlockNumber,
		Options: options(cfg.Ledger),
	}, logger, m)

	opps, err := scanner.Scan(ctx, cp.Pools, probe)
	if err != nil {
		return nil, err
	}
	if err := sink.Emit(ctx, opps); err != nil {
		return opps, fmt.Errorf("emit opportunities: %w", err)
	}
	return opps, nil
}

func parseProbe(input string) (*big.Int, error) {
	if input == "" {
		return nil, fmt.Errorf("probe amount is required")
	}
	probe, err := chain.ParseFelt(input)
	if err != nil {
		return nil, fmt.Errorf("invalid probe: %w", err)
	}
	if probe.Sign() == 0 {
		return nil, fmt.Errorf("probe must be positive")
	}
	return probe, nil
}
