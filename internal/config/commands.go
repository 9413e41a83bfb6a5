package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ScanConfig holds configuration for one arbitrage scan over the checkpoint.
type ScanConfig struct {
	Ledger           Ledger
	Checkpoint       Checkpoint
	Probe            string
	Refresh          bool
	OpportunitiesOut string
	RedisChannel     string
	LogLevel         string
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := load(cfgFile, flags)
	if err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		Ledger:           ledger(v),
		Checkpoint:       checkpoint(v),
		Probe:            v.GetString("probe"),
		Refresh:          v.GetBool("refresh"),
		OpportunitiesOut: v.GetString("opportunities-out"),
		RedisChannel:     v.GetString("redis-channel"),
		LogLevel:         v.GetString("log-level"),
	}
	if err := cfg.Checkpoint.Validate(); err != nil {
		return ScanConfig{}, err
	}
	return cfg, nil
}

// WatchConfig drives the poll loop: a sync cycle followed by a scan every
// Interval.
type WatchConfig struct {
	Sync        SyncConfig
	Scan        ScanConfig
	Interval    time.Duration
	MetricsAddr string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := load(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}

	l, cp, level := ledger(v), checkpoint(v), v.GetString("log-level")
	cfg := WatchConfig{
		Sync: SyncConfig{
			Ledger:     l,
			Checkpoint: cp,
			Factories:  getStringSlice(v, "factory"),
			LogLevel:   level,
		},
		Scan: ScanConfig{
			Ledger:           l,
			Checkpoint:       cp,
			Probe:            v.GetString("probe"),
			Refresh:          v.GetBool("refresh"),
			OpportunitiesOut: v.GetString("opportunities-out"),
			RedisChannel:     v.GetString("redis-channel"),
			LogLevel:         level,
		},
		Interval:    v.GetDuration("interval"),
		MetricsAddr: v.GetString("metrics-addr"),
	}
	if err := cp.Validate(); err != nil {
		return WatchConfig{}, err
	}
	return cfg, nil
}

// QuoteConfig holds configuration for quoting one swap against a
// checkpointed pool.
type QuoteConfig struct {
	Ledger     Ledger
	Checkpoint Checkpoint
	Pool       string
	TokenIn    string
	Amount     string
	Refresh    bool
	LogLevel   string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags)
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Ledger:     ledger(v),
		Checkpoint: checkpoint(v),
		Pool:       v.GetString("pool"),
		TokenIn:    v.GetString("token-in"),
		Amount:     v.GetString("amount"),
		Refresh:    v.GetBool("refresh"),
		LogLevel:   v.GetString("log-level"),
	}
	if err := cfg.Checkpoint.Validate(); err != nil {
		return QuoteConfig{}, err
	}
	return cfg, nil
}
