package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arbScope/internal/amm"
	"arbScope/internal/arbitrage"
	"arbScope/internal/chain"
	"arbScope/internal/checkpoint"
	"arbScope/internal/config"
	"arbScope/internal/exchange"
	"arbScope/internal/metrics"
	"arbScope/internal/storage"
	"arbScope/internal/storage/postgres"
	"arbScope/internal/storage/redisstore"
	"arbScope/internal/storage/s3store"
)

func options(l config.Ledger) amm.Options {
	return amm.Options{BatchSize: l.BatchSize, Concurrency: l.Concurrency}.Normalized()
}

// openLedger dials the RPC endpoint and wraps it with the retry policy.
func openLedger(ctx context.Context, l config.Ledger, logger *zap.Logger, m *metrics.Metrics) (chain.Caller, func(), error) {
	if l.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, l.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	if chainID, err := client.ChainID(ctx); err != nil {
		logger.Warn("chain id unavailable", zap.Error(err))
	} else {
		logger.Info("connected", zap.String("rpc", l.RPCURL), zap.String("chain_id", chainID))
	}
	policy := chain.RetryPolicy{
		MaxRetries:  l.MaxRetries,
		Backoff:     l.RetryBackoff,
		CallTimeout: l.CallTimeout,
	}
	return chain.WithRetry(client, policy, logger, m), client.Close, nil
}

// openCheckpoint builds the checkpoint store on the configured backend. The
// returned redis client is non-nil when redis settings are present, so the
// scan sinks can publish on the same connection.
func openCheckpoint(ctx context.Context, cfg config.Checkpoint, opts amm.Options, logger *zap.Logger) (*checkpoint.Store, *redisstore.Client, func(), error) {
	var (
		backend checkpoint.Backend
		closers []func()
		rdb     *redisstore.Client
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = client
		closers = append(closers, func() { _ = client.Close() })
	}

	switch cfg.Backend {
	case config.BackendFile:
		backend = &checkpoint.FileBackend{Path: cfg.Location}
	case config.BackendPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		backend = &checkpoint.PostgresBackend{Store: store, Name: cfg.Location}
	case config.BackendS3:
		client, err := s3store.New(ctx, s3store.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		backend = &checkpoint.S3Backend{Client: client, Key: cfg.Location}
	case config.BackendRedis:
		backend = &checkpoint.RedisBackend{Client: rdb, Key: cfg.Location}
	default:
		closeAll()
		return nil, nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}

	logger.Info("checkpoint backend", zap.String("backend", cfg.Backend), zap.String("location", cfg.Location))
	return checkpoint.NewStore(backend, opts, logger), rdb, closeAll, nil
}

func parseFactories(inputs []string, opts amm.Options) ([]amm.Factory, error) {
	factories := make([]amm.Factory, 0, len(inputs))
	for _, input := range inputs {
		f, err := exchange.ParseFactory(input, opts)
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}
	return factories, nil
}

// buildSink always logs, and additionally appends to a JSONL file and
// publishes on redis when those are configured.
func buildSink(cfg config.ScanConfig, rdb *redisstore.Client, logger *zap.Logger) arbitrage.Sink {
	sinks := arbitrage.MultiSink{arbitrage.LogSink{Logger: logger}}
	if cfg.OpportunitiesOut != "" {
		sinks = append(sinks, arbitrage.JSONLSink{Storage: storage.NewJsonlStorage(cfg.OpportunitiesOut)})
	}
	if rdb != nil && cfg.RedisChannel != "" {
		sinks = append(sinks, arbitrage.RedisSink{Publisher: rdb, Channel: cfg.RedisChannel})
	}
	return sinks
}
