package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/config"
	"arbScope/internal/syncer"
)

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options(cfg.Ledger)
	factories, err := parseFactories(cfg.Factories, opts)
	if err != nil {
		return err
	}

	ledger, closeLedger, err := openLedger(ctx, cfg.Ledger, logger, nil)
	if err != nil {
		return err
	}
	defer closeLedger()

	store, _, closeStore, err := openCheckpoint(ctx, cfg.Checkpoint, opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := syncer.New(ledger, store, factories, opts, logger, nil).Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("sync complete",
		zap.Uint64("block", res.Checkpoint.BlockNumber),
		zap.Uint64("previous_block", res.PreviousBlock),
		zap.Int("factories", len(res.Checkpoint.Factories)),
		zap.Int("pools", len(res.Checkpoint.Pools)),
		zap.Int("refreshed", res.Refreshed),
		zap.Int("discovered", res.Discovered),
	)
	return nil
}
