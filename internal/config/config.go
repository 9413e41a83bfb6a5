package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Checkpoint backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendRedis    = "redis"
)

// Ledger holds the RPC endpoint and the call budget applied to every read.
type Ledger struct {
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration
	CallTimeout  time.Duration
	BatchSize    int
	Concurrency  int
}

// Checkpoint selects where the checkpoint document lives. Location is a file
// path, an object key or a redis key depending on Backend.
type Checkpoint struct {
	Backend  string
	Location string
	PGDSN    string
	S3       S3
	Redis    Redis
}

type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// SyncConfig holds configuration for one synchronization cycle.
type SyncConfig struct {
	Ledger     Ledger
	Checkpoint Checkpoint
	Factories  []string
	LogLevel   string
}

// LoadSync merges config file, environment variables, and flags into SyncConfig.
func LoadSync(cfgFile string, flags *pflag.FlagSet) (SyncConfig, error) {
	v, err := load(cfgFile, flags)
	if err != nil {
		return SyncConfig{}, err
	}

	cfg := SyncConfig{
		Ledger:     ledger(v),
		Checkpoint: checkpoint(v),
		Factories:  getStringSlice(v, "factory"),
		LogLevel:   v.GetString("log-level"),
	}
	if err := cfg.Checkpoint.Validate(); err != nil {
		return SyncConfig{}, err
	}
	return cfg, nil
}

// Validate reports the settings a backend needs but does not have.
func (c Checkpoint) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.Location == "" {
			return fmt.Errorf("checkpoint path is required")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for the postgres backend")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for the s3 backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Backend)
	}
	return nil
}

func load(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARBSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("checkpoint-backend", BackendFile)
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("s3-region", "us-east-1")
	v.SetDefault("redis-db", 0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("call-timeout", 10*time.Second)
	v.SetDefault("batch-size", 50)
	v.SetDefault("concurrency", 8)
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("redis-channel", "arbscope:opportunities")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func ledger(v *viper.Viper) Ledger {
	return Ledger{
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		CallTimeout:  v.GetDuration("call-timeout"),
		BatchSize:    v.GetInt("batch-size"),
		Concurrency:  v.GetInt("concurrency"),
	}
}

func checkpoint(v *viper.Viper) Checkpoint {
	return Checkpoint{
		Backend:  strings.ToLower(strings.TrimSpace(v.GetString("checkpoint-backend"))),
		Location: v.GetString("checkpoint"),
		PGDSN:    v.GetString("pg-dsn"),
		S3: S3{
			Endpoint:  v.GetString("s3-endpoint"),
			Region:    v.GetString("s3-region"),
			Bucket:    v.GetString("s3-bucket"),
			AccessKey: v.GetString("s3-access-key"),
			SecretKey: v.GetString("s3-secret-key"),
			PathStyle: v.GetBool("s3-path-style"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
		},
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
