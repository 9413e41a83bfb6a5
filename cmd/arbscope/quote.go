package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/amm"
	"arbScope/internal/chain"
	"arbScope/internal/config"
	"arbScope/internal/exchange"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolAddr, err := chain.ParseAddress(cfg.Pool)
	if err != nil {
		return fmt.Errorf("invalid pool: %w", err)
	}
	tokenIn, err := chain.ParseAddress(cfg.TokenIn)
	if err != nil {
		return fmt.Errorf("invalid token-in: %w", err)
	}
	amount, err := chain.ParseFelt(cfg.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options(cfg.Ledger)
	store, _, closeStore, err := openCheckpoint(ctx, cfg.Checkpoint, opts, logger)
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
	pool, ok := exchange.Index(cp.Pools)[poolAddr]
	if !ok {
		return fmt.Errorf("pool %s is not in the checkpoint", chain.AddressHex(poolAddr))
	}

	block := cp.BlockNumber
	if cfg.Refresh {
		ledger, closeLedger, err := openLedger(ctx, cfg.Ledger, logger, nil)
		if err != nil {
			return err
		}
		defer closeLedger()
		head, err := ledger.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if err := exchange.RefreshMany(ctx, ledger, []amm.Pool{pool}, chain.Number(head), opts); err != nil {
			return err
		}
		block = head
	}

	out, err := pool.SimulateSwap(tokenIn, amount)
	if err != nil {
		return err
	}
	price, err := pool.Price(tokenIn)
	if err != nil {
		return err
	}

	reserves := pool.Reserves()
	logger.Info("quote",
		zap.String("pool", chain.AddressHex(poolAddr)),
		zap.String("kind", string(pool.Kind())),
		zap.Uint64("block", block),
		zap.String("reserve_a", reserves.A.String()),
		zap.String("reserve_b", reserves.B.String()),
		zap.Uint32("fee_bps", pool.Fee()),
		zap.String("amount_in", amount.String()),
		zap.String("amount_out", out.String()),
		zap.Float64("spot_price", price),
	)
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}
