package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrRPCFailure marks every error produced by a failed or timed out ledger call.
var ErrRPCFailure = errors.New("rpc failure")

// Caller is the read-only contract-call gateway the engine depends on.
type Caller interface {
	Call(ctx context.Context, call FunctionCall, block BlockID) ([]*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// BatchCaller aggregates several contract reads into one round trip.
type BatchCaller interface {
	Caller
	CallBatch(ctx context.Context, calls []FunctionCall, block BlockID) ([][]*big.Int, error)
}

// CallError describes a ledger call that could not be completed.
type CallError struct {
	EntryPoint string
	Contract   string
	Attempts   int
	Err        error
}

func (e *CallError) Error() string {
	target := e.EntryPoint
	if e.Contract != "" {
		target = fmt.Sprintf("%s@%s", e.EntryPoint, e.Contract)
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("call %s failed after %d attempts: %v", target, e.Attempts, e.Err)
	}
	return fmt.Sprintf("call %s: %v", target, e.Err)
}

func (e *CallError) Unwrap() []error {
	return []error{ErrRPCFailure, e.Err}
}

func callError(call FunctionCall, attempts int, err error) *CallError {
	var inner *CallError
	if errors.As(err, &inner) {
		err = inner.Err
	}
	out := &CallError{EntryPoint: call.EntryPoint, Attempts: attempts, Err: err}
	if call.ContractAddress != (common.Hash{}) {
		out.Contract = FeltHex(call.ContractAddress.Big())
	}
	return out
}
