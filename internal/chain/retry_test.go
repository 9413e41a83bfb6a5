package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"
)

type flakyCaller struct {
	failures int
	calls    int
	block    time.Duration
}

func (f *flakyCaller) Call(ctx context.Context, call FunctionCall, _ BlockID) ([]*big.Int, error) {
	f.calls++
	if f.block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.block):
		}
	}
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return []*big.Int{big.NewInt(42)}, nil
}

func (f *flakyCaller) BlockNumber(ctx context.Context) (uint64, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("connection reset")
	}
	return 99, nil
}

func TestRetryingRecovers(t *testing.T) {
	inner := &flakyCaller{failures: 2}
	caller := WithRetry(inner, RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, nil, nil)

	out, err := caller.Call(context.Background(), NewCall(hashOf(1), "token0"), Latest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Int64() != 42 {
		t.Fatalf("result mismatch: %v", out)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingExhausts(t *testing.T) {
	inner := &flakyCaller{failures: 10}
	caller := WithRetry(inner, RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil, nil)

	_, err := caller.Call(context.Background(), NewCall(hashOf(1), "token0"), Latest)
	if !errors.Is(err, ErrRPCFailure) {
		t.Fatalf("expected rpc failure, got %v", err)
	}
	var ce *CallError
	if !errors.As(err, &ce) || ce.Attempts != 3 || ce.EntryPoint != "token0" {
		t.Fatalf("call error mismatch: %+v", ce)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}

	inner = &flakyCaller{failures: 10}
	caller = WithRetry(inner, RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond}, nil, nil)
	if _, err := caller.BlockNumber(context.Background()); !errors.Is(err, ErrRPCFailure) {
		t.Fatalf("expected rpc failure for block number, got %v", err)
	}
}

func TestRetryingTimesOutStuckCall(t *testing.T) {
	inner := &flakyCaller{block: time.Second}
	caller := WithRetry(inner, RetryPolicy{MaxRetries: 1, Backoff: time.Millisecond, CallTimeout: 10 * time.Millisecond}, nil, nil)

	started := time.Now()
	_, err := caller.Call(context.Background(), NewCall(hashOf(1), "get_reserves"), Latest)
	if !errors.Is(err, ErrRPCFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout rpc failure, got %v", err)
	}
	if time.Since(started) > 500*time.Millisecond {
		t.Fatalf("stuck call was not bounded")
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	inner := &flakyCaller{failures: 10}
	caller := WithRetry(inner, RetryPolicy{MaxRetries: 5, Backoff: time.Hour}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := caller.Call(ctx, NewCall(hashOf(1), "token0"), Latest); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestWithRetryKeepsBatching(t *testing.T) {
	if _, ok := WithRetry(&flakyCaller{}, RetryPolicy{}, nil, nil).(BatchCaller); ok {
		t.Fatalf("plain caller must not gain batching")
	}
	if _, ok := WithRetry(&batchCaller{}, RetryPolicy{}, nil, nil).(BatchCaller); !ok {
		t.Fatalf("batch caller lost batching")
	}
}

type batchCaller struct {
	flakyCaller
}

func (b *batchCaller) CallBatch(ctx context.Context, calls []FunctionCall, block BlockID) ([][]*big.Int, error) {
	return nil, nil
}
