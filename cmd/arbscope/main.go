package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arbScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "arbscope",
		Short:        "Constant-product pool sync and arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization cycle and persist the checkpoint",
		RunE:  runSync,
	}
	addLedgerFlags(syncCmd.Flags())
	addCheckpointFlags(syncCmd.Flags())
	syncCmd.Flags().StringSlice("factory", nil, "factories as kind:address[:fee_bps] (comma-separated)")
	syncCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(syncCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the checkpointed pools for two-pool round trips",
		RunE:  runScan,
	}
	addLedgerFlags(scanCmd.Flags())
	addCheckpointFlags(scanCmd.Flags())
	addScanFlags(scanCmd.Flags())
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(scanCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync and scan on an interval until interrupted",
		RunE:  runWatch,
	}
	addLedgerFlags(watchCmd.Flags())
	addCheckpointFlags(watchCmd.Flags())
	addScanFlags(watchCmd.Flags())
	watchCmd.Flags().StringSlice("factory", nil, "factories as kind:address[:fee_bps] (comma-separated)")
	watchCmd.Flags().Duration("interval", 30*time.Second, "delay between cycles")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (empty disables)")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(watchCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against one checkpointed pool",
		RunE:  runQuote,
	}
	addLedgerFlags(quoteCmd.Flags())
	addCheckpointFlags(quoteCmd.Flags())
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().String("token-in", "", "address of the token sold")
	quoteCmd.Flags().String("amount", "", "amount sold in base units")
	quoteCmd.Flags().Bool("refresh", false, "re-read the pool reserves at the head block first")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLedgerFlags(fs *pflag.FlagSet) {
	fs.String("rpc", "", "Starknet JSON-RPC URL")
	fs.Int("max-retries", 3, "retries per ledger call")
	fs.Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff, doubled per retry")
	fs.Duration("call-timeout", 10*time.Second, "timeout of one ledger call attempt")
	fs.Int("batch-size", 50, "calls per JSON-RPC batch")
	fs.Int("concurrency", 8, "parallel calls when the ledger cannot batch")
}

func addCheckpointFlags(fs *pflag.FlagSet) {
	fs.String("checkpoint-backend", config.BackendFile, "checkpoint backend (file, postgres, s3, redis)")
	fs.String("checkpoint", "./data/checkpoint.json", "checkpoint file path, row name, object key or redis key")
	fs.String("pg-dsn", "", "Postgres DSN")
	fs.String("s3-endpoint", "", "S3 endpoint override")
	fs.String("s3-region", "us-east-1", "S3 region")
	fs.String("s3-bucket", "", "S3 bucket")
	fs.String("s3-access-key", "", "S3 access key")
	fs.String("s3-secret-key", "", "S3 secret key")
	fs.Bool("s3-path-style", false, "use path-style S3 addressing")
	fs.String("redis-addr", "", "Redis address")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database")
}

func addScanFlags(fs *pflag.FlagSet) {
	fs.String("probe", "", "probe amount in base units of the lower-addressed token")
	fs.Bool("refresh", false, "re-read candidate reserves at the head block before simulating")
	fs.String("opportunities-out", "", "append profitable opportunities to this JSONL file")
	fs.String("redis-channel", "arbscope:opportunities", "publish opportunities on this channel when redis-addr is set")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
