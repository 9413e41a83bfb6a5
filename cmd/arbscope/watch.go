package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/arbitrage"
	"arbScope/internal/chain"
	"arbScope/internal/config"
	"arbScope/internal/metrics"
	"arbScope/internal/syncer"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Sync.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	probe, err := parseProbe(cfg.Scan.Probe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	opts := options(cfg.Sync.Ledger)
	factories, err := parseFactories(cfg.Sync.Factories, opts)
	if err != nil {
		return err
	}

	ledger, closeLedger, err := openLedger(ctx, cfg.Sync.Ledger, logger, m)
	if err != nil {
		return err
	}
	defer closeLedger()

	store, rdb, closeStore, err := openCheckpoint(ctx, cfg.Sync.Checkpoint, opts, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sync := syncer.New(ledger, store, factories, opts, logger, m)
	sink := buildSink(cfg.Scan, rdb, logger)

	logger.Info("watch start",
		zap.Duration("interval", cfg.Interval),
		zap.Int("factories", len(factories)),
		zap.String("probe", probe.String()),
		zap.Bool("refresh", cfg.Scan.Refresh),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		watchCycle(ctx, sync, cfg.Scan, ledger, sink, logger, m, probe)

		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// watchCycle runs one sync followed by a scan. A failed sync skips the scan;
// the stored checkpoint is untouched and the next tick retries.
func watchCycle(ctx context.Context, sync *syncer.Syncer, cfg config.ScanConfig, ledger chain.Caller, sink arbitrage.Sink, logger *zap.Logger, m *metrics.Metrics, probe *big.Int) {
	res, err := sync.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("sync failed", zap.Error(err))
		}
		return
	}
	logger.Info("sync complete",
		zap.Uint64("block", res.Checkpoint.BlockNumber),
		zap.Int("pools", len(res.Checkpoint.Pools)),
		zap.Int("refreshed", res.Refreshed),
		zap.Int("discovered", res.Discovered),
	)

	if _, err := scanCheckpoint(ctx, res.Checkpoint, cfg, ledger, sink, logger, m, probe); err != nil && ctx.Err() == nil {
		logger.Error("scan failed", zap.Error(err))
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
