// Package chaintest provides an in-memory ledger for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"arbScope/internal/chain"
)

// ErrInjected is returned by calls scripted to fail.
var ErrInjected = errors.New("injected failure")

// Ledger answers contract calls from a scripted table. It implements
// chain.BatchCaller; wrap it with Sequential to hide batching.
type Ledger struct {
	mu        sync.Mutex
	head      uint64
	responses map[string][]*big.Int
	failures  map[string]int
	calls     int
	batches   int
	hook      func(call chain.FunctionCall)
}

func New(head uint64) *Ledger {
	return &Ledger{
		head:      head,
		responses: make(map[string][]*big.Int),
		failures:  make(map[string]int),
	}
}

func key(contract common.Hash, selector *big.Int, calldata []*big.Int) string {
	parts := []string{contract.Hex(), chain.FeltHex(selector)}
	for _, v := range calldata {
		parts = append(parts, chain.FeltHex(v))
	}
	return strings.Join(parts, "|")
}

func anyKey(contract common.Hash, selector *big.Int) string {
	return contract.Hex() + "|" + chain.FeltHex(selector) + "|*"
}

// SetHead changes the reported chain head.
func (l *Ledger) SetHead(head uint64) {
	l.mu.Lock()
	l.head = head
	l.mu.Unlock()
}

// Set scripts the result of entryPoint on contract for the given calldata.
func (l *Ledger) Set(contract common.Hash, entryPoint string, calldata []*big.Int, result ...*big.Int) {
	l.mu.Lock()
	l.responses[key(contract, chain.Selector(entryPoint), calldata)] = result
	l.mu.Unlock()
}

// Fail makes the next n calls of entryPoint on contract fail, whatever the calldata.
func (l *Ledger) Fail(contract common.Hash, entryPoint string, n int) {
	l.mu.Lock()
	l.failures[anyKey(contract, chain.Selector(entryPoint))] = n
	l.mu.Unlock()
}

// OnCall registers a hook invoked before every call is answered.
func (l *Ledger) OnCall(hook func(call chain.FunctionCall)) {
	l.mu.Lock()
	l.hook = hook
	l.mu.Unlock()
}

// Calls returns the number of individual contract calls answered.
func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Batches returns the number of CallBatch round trips.
func (l *Ledger) Batches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.batches
}

func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, nil
}

func (l *Ledger) Call(ctx context.Context, call chain.FunctionCall, _ chain.BlockID) ([]*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	hook := l.hook
	l.mu.Unlock()
	if hook != nil {
		hook(call)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.answer(call)
}

func (l *Ledger) CallBatch(ctx context.Context, calls []chain.FunctionCall, _ chain.BlockID) ([][]*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	hook := l.hook
	l.batches++
	l.mu.Unlock()
	if hook != nil {
		for _, call := range calls {
			hook(call)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]*big.Int, len(calls))
	for i, call := range calls {
		values, err := l.answer(call)
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return out, nil
}

func (l *Ledger) answer(call chain.FunctionCall) ([]*big.Int, error) {
	l.calls++
	fk := anyKey(call.ContractAddress, call.EntryPointSelector)
	if n := l.failures[fk]; n > 0 {
		l.failures[fk] = n - 1
		return nil, &chain.CallError{EntryPoint: call.EntryPoint, Attempts: 1, Err: ErrInjected}
	}
	values, ok := l.responses[key(call.ContractAddress, call.EntryPointSelector, call.Calldata)]
	if !ok {
		return nil, &chain.CallError{
			EntryPoint: call.EntryPoint,
			Attempts:   1,
			Err:        fmt.Errorf("no scripted response for %s on %s", call.EntryPoint, call.ContractAddress.Hex()),
		}
	}
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).Set(v)
	}
	return out, nil
}

// Sequential hides CallBatch so callers take their one-call-at-a-time path.
func Sequential(c chain.Caller) chain.Caller {
	return sequential{c}
}

type sequential struct {
	inner chain.Caller
}

func (s sequential) Call(ctx context.Context, call chain.FunctionCall, block chain.BlockID) ([]*big.Int, error) {
	return s.inner.Call(ctx, call, block)
}

func (s sequential) BlockNumber(ctx context.Context) (uint64, error) {
	return s.inner.BlockNumber(ctx)
}
