package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbScope/internal/model"
)

// Store provides Postgres persistence for checkpoints and the pool table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			name         TEXT PRIMARY KEY,
			block_number BIGINT NOT NULL,
			document     JSONB NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS pools (
			pool_address TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			token_a      TEXT NOT NULL,
			token_b      TEXT NOT NULL,
			decimals_a   SMALLINT NOT NULL,
			decimals_b   SMALLINT NOT NULL,
			reserve_a    NUMERIC(78, 0) NOT NULL,
			reserve_b    NUMERIC(78, 0) NOT NULL,
			fee          INTEGER NOT NULL,
			synced_block BIGINT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// LoadCheckpoint returns the stored checkpoint document for a name.
func (s *Store) LoadCheckpoint(ctx context.Context, name string) ([]byte, bool, error) {
	if name == "" {
		return nil, false, fmt.Errorf("checkpoint name required")
	}
	var document []byte
	row := s.pool.QueryRow(ctx, `SELECT document::text FROM checkpoints WHERE name=$1`, name)
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return document, true, nil
}

// SaveCheckpoint replaces the checkpoint document for a name and upserts
// every pool it lists, in one transaction.
func (s *Store) SaveCheckpoint(ctx context.Context, name string, rec model.CheckpointRecord, document []byte) error {
	if name == "" {
		return fmt.Errorf("checkpoint name required")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO checkpoints (name, block_number, document, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = EXCLUDED.block_number, document = EXCLUDED.document, updated_at = now()
	`, name, int64(rec.BlockNumber), string(document)); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}

	if err := upsertPools(ctx, tx, rec.Pools, rec.BlockNumber); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkpoint tx: %w", err)
	}
	return nil
}

// upsertPools inserts or updates pool rows.
func upsertPools(ctx context.Context, tx pgx.Tx, pools []model.PoolRecord, block uint64) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, kind, token_a, token_b, decimals_a, decimals_b,
				reserve_a, reserve_b, fee, synced_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				fee = EXCLUDED.fee,
				synced_block = GREATEST(pools.synced_block, EXCLUDED.synced_block),
				updated_at = now()
		`,
			pool.Address,
			pool.Kind,
			pool.TokenA,
			pool.TokenB,
			int16(pool.DecimalsA),
			int16(pool.DecimalsB),
			nonEmpty(pool.ReserveA),
			nonEmpty(pool.ReserveB),
			int32(pool.Fee),
			int64(block),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range pools {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert pool: %w", err)
		}
	}
	return br.Close()
}

func nonEmpty(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
