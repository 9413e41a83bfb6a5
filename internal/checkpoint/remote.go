package checkpoint

import (
	"context"

	"arbScope/internal/model"
	"arbScope/internal/storage/postgres"
	"arbScope/internal/storage/redisstore"
	"arbScope/internal/storage/s3store"
)

// PostgresBackend stores the checkpoint in the checkpoints table under Name
// and mirrors every pool into the pools table in the same transaction.
type PostgresBackend struct {
	Store *postgres.Store
	Name  string
}

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, bool, error) {
	return b.Store.LoadCheckpoint(ctx, b.Name)
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	rec, err := Decode(data)
	if err != nil {
		return err
	}
	return b.Store.SaveCheckpoint(ctx, b.Name, rec, data)
}

func (b *PostgresBackend) WriteRecord(ctx context.Context, rec model.CheckpointRecord, data []byte) error {
	return b.Store.SaveCheckpoint(ctx, b.Name, rec, data)
}

// S3Backend stores the checkpoint as one object.
type S3Backend struct {
	Client *s3store.Client
	Key    string
}

func (b *S3Backend) Read(ctx context.Context) ([]byte, bool, error) {
	return b.Client.Get(ctx, b.Key)
}

func (b *S3Backend) Write(ctx context.Context, data []byte) error {
	return b.Client.Put(ctx, b.Key, data, "application/json")
}

// RedisBackend stores the checkpoint under one key.
type RedisBackend struct {
	Client *redisstore.Client
	Key    string
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, bool, error) {
	return b.Client.Get(ctx, b.Key)
}

func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	return b.Client.Set(ctx, b.Key, data)
}
