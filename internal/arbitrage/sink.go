package arbitrage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"arbScope/internal/model"
	"arbScope/internal/storage"
)

// Sink receives profitable opportunities.
type Sink interface {
	Emit(ctx context.Context, opps []Opportunity) error
}

// LogSink writes one log line per opportunity.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Emit(ctx context.Context, opps []Opportunity) error {
	if s.Logger == nil {
		return nil
	}
	for _, o := range opps {
		rec := o.Record()
		s.Logger.Info("arbitrage opportunity",
			zap.String("id", rec.ID),
			zap.String("pool_in", rec.PoolIn),
			zap.String("pool_out", rec.PoolOut),
			zap.String("token_in", rec.TokenIn),
			zap.String("amount_in", rec.AmountIn),
			zap.String("amount_out", rec.AmountOut),
			zap.String("profit", rec.Profit),
			zap.Uint64("block", o.Block),
		)
	}
	return nil
}

// JSONLSink appends opportunities to a storage sink.
type JSONLSink struct {
	Storage storage.Storage
}

func (s JSONLSink) Emit(ctx context.Context, opps []Opportunity) error {
	records := make([]model.OpportunityRecord, 0, len(opps))
	for _, o := range opps {
		records = append(records, o.Record())
	}
	return s.Storage.PutOpportunities(records)
}

// Publisher sends payloads to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisSink publishes each opportunity as JSON on a Pub/Sub channel.
type RedisSink struct {
	Publisher Publisher
	Channel   string
}

func (s RedisSink) Emit(ctx context.Context, opps []Opportunity) error {
	for _, o := range opps {
		payload, err := json.Marshal(o.Record())
		if err != nil {
			return fmt.Errorf("marshal opportunity: %w", err)
		}
		if err := s.Publisher.Publish(ctx, s.Channel, payload); err != nil {
			return err
		}
	}
	return nil
}

// MultiSink emits to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, opps []Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, opps); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
