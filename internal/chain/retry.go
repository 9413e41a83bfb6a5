package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"arbScope/internal/metrics"
)

// RetryPolicy bounds every ledger call: each attempt runs under CallTimeout,
// and a failed attempt is retried at most MaxRetries times with a doubling
// delay starting at Backoff.
type RetryPolicy struct {
	MaxRetries  int
	Backoff     time.Duration
	CallTimeout time.Duration
}

// DefaultRetryPolicy is used when a policy field is left at zero.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:  3,
	Backoff:     250 * time.Millisecond,
	CallTimeout: 10 * time.Second,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy.Backoff
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = DefaultRetryPolicy.CallTimeout
	}
	return p
}

// Retrying decorates a Caller with per-call timeouts and bounded retries.
type Retrying struct {
	inner   Caller
	policy  RetryPolicy
	logger  *zap.Logger
	metrics *metrics.Metrics
}

type retryingBatch struct {
	*Retrying
	batch BatchCaller
}

// WithRetry wraps inner. The result also implements BatchCaller when inner does.
func WithRetry(inner Caller, policy RetryPolicy, logger *zap.Logger, m *metrics.Metrics) Caller {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrying{inner: inner, policy: policy.normalized(), logger: logger, metrics: m}
	if batch, ok := inner.(BatchCaller); ok {
		return &retryingBatch{Retrying: r, batch: batch}
	}
	return r
}

func (r *Retrying) Call(ctx context.Context, call FunctionCall, block BlockID) ([]*big.Int, error) {
	var out []*big.Int
	attempts, err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.inner.Call(ctx, call, block)
		if err != nil {
			r.logger.Warn("ledger call failed",
				zap.String("entry_point", call.EntryPoint),
				zap.String("contract", FeltHex(call.ContractAddress.Big())),
				zap.String("block", block.String()),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return nil, callError(call, attempts, err)
	}
	return out, nil
}

func (r *Retrying) BlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	attempts, err := r.do(ctx, func(ctx context.Context) error {
		var err error
		number, err = r.inner.BlockNumber(ctx)
		if err != nil {
			r.logger.Warn("block number fetch failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return 0, callError(FunctionCall{EntryPoint: "block_number"}, attempts, err)
	}
	return number, nil
}

func (r *retryingBatch) CallBatch(ctx context.Context, calls []FunctionCall, block BlockID) ([][]*big.Int, error) {
	var out [][]*big.Int
	attempts, err := r.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.batch.CallBatch(ctx, calls, block)
		if err != nil {
			r.logger.Warn("ledger batch failed", zap.Int("calls", len(calls)), zap.String("block", block.String()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		var ce *CallError
		if errors.As(err, &ce) {
			ce.Attempts = attempts
			return nil, ce
		}
		return nil, &CallError{EntryPoint: "batch", Attempts: attempts, Err: err}
	}
	return out, nil
}

// do runs fn until it succeeds or the policy is exhausted, returning the
// number of attempts made.
func (r *Retrying) do(ctx context.Context, fn func(context.Context) error) (int, error) {
	delay := r.policy.Backoff
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.policy.CallTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return attempt + 1, nil
		}
		if ctx.Err() != nil {
			return attempt + 1, ctx.Err()
		}
		if attempt >= r.policy.MaxRetries {
			r.metrics.IncRPCFailure()
			return attempt + 1, err
		}
		r.metrics.IncRetry()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
