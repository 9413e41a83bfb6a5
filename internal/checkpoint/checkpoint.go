// Package checkpoint persists the synchronized set of factories and pools.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"arbScope/internal/amm"
	"arbScope/internal/exchange"
	"arbScope/internal/model"
)

// ErrCorrupt is returned when a stored checkpoint cannot be parsed.
var ErrCorrupt = errors.New("checkpoint corrupt")

// Checkpoint is a snapshot of every known factory and pool, synchronized
// through BlockNumber.
type Checkpoint struct {
	Timestamp   time.Time
	BlockNumber uint64
	Factories   []amm.Factory
	Pools       []amm.Pool
}

// Record renders the checkpoint in its persisted form.
func (c Checkpoint) Record() model.CheckpointRecord {
	rec := model.CheckpointRecord{
		Timestamp:   c.Timestamp.Unix(),
		BlockNumber: c.BlockNumber,
		Factories:   make([]model.FactoryRecord, 0, len(c.Factories)),
		Pools:       make([]model.PoolRecord, 0, len(c.Pools)),
	}
	for _, f := range c.Factories {
		rec.Factories = append(rec.Factories, f.Record())
	}
	for _, p := range c.Pools {
		rec.Pools = append(rec.Pools, p.Record())
	}
	return rec
}

// FromRecord rebuilds a checkpoint through the exchange registry.
func FromRecord(rec model.CheckpointRecord, opts amm.Options) (Checkpoint, error) {
	cp := Checkpoint{
		Timestamp:   time.Unix(rec.Timestamp, 0).UTC(),
		BlockNumber: rec.BlockNumber,
		Factories:   make([]amm.Factory, 0, len(rec.Factories)),
		Pools:       make([]amm.Pool, 0, len(rec.Pools)),
	}
	for i, fr := range rec.Factories {
		f, err := exchange.FactoryFromRecord(fr, opts)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("factory %d: %w", i, err)
		}
		cp.Factories = append(cp.Factories, f)
	}
	for i, pr := range rec.Pools {
		p, err := exchange.PoolFromRecord(pr)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("pool %d: %w", i, err)
		}
		cp.Pools = append(cp.Pools, p)
	}
	return cp, nil
}

// Encode serializes a checkpoint record.
func Encode(rec model.CheckpointRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

// Decode parses a checkpoint document. Any failure wraps ErrCorrupt.
func Decode(data []byte) (model.CheckpointRecord, error) {
	var rec model.CheckpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.CheckpointRecord{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// Backend stores one checkpoint document. Write must replace the previous
// document all at once: a reader sees either the old or the new bytes.
type Backend interface {
	Read(ctx context.Context) ([]byte, bool, error)
	Write(ctx context.Context, data []byte) error
}

// recordWriter is implemented by backends that also index the decoded record.
type recordWriter interface {
	WriteRecord(ctx context.Context, rec model.CheckpointRecord, data []byte) error
}

// Store loads and saves checkpoints through a Backend.
type Store struct {
	backend Backend
	opts    amm.Options
	logger  *zap.Logger
}

func NewStore(backend Backend, opts amm.Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, opts: opts, logger: logger}
}

// Load returns the stored checkpoint. found is false when nothing was saved
// yet. A document that does not parse yields ErrCorrupt, never an empty state.
func (s *Store) Load(ctx context.Context) (Checkpoint, bool, error) {
	data, found, err := s.backend.Read(ctx)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if !found {
		return Checkpoint{}, false, nil
	}

	rec, err := Decode(data)
	if err != nil {
		return Checkpoint{}, false, err
	}
	cp, err := FromRecord(rec, s.opts)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s.logger.Debug("checkpoint loaded",
		zap.Uint64("block", cp.BlockNumber),
		zap.Int("factories", len(cp.Factories)),
		zap.Int("pools", len(cp.Pools)),
	)
	return cp, true, nil
}

// Save replaces the stored checkpoint.
func (s *Store) Save(ctx context.Context, cp Checkpoint) error {
	rec := cp.Record()
	data, err := Encode(rec)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if rw, ok := s.backend.(recordWriter); ok {
		err = rw.WriteRecord(ctx, rec, data)
	} else {
		err = s.backend.Write(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		zap.Uint64("block", cp.BlockNumber),
		zap.Int("factories", len(cp.Factories)),
		zap.Int("pools", len(cp.Pools)),
		zap.Int("bytes", len(data)),
	)
	return nil
}
