package checkpoint

import (
	"context"
	"sync"
)

// MemoryBackend keeps the checkpoint in memory.
type MemoryBackend struct {
	mu     sync.Mutex
	data   []byte
	found  bool
	writes int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Read(ctx context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.found {
		return nil, false, nil
	}
	return append([]byte(nil), b.data...), true, nil
}

func (b *MemoryBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.data = append([]byte(nil), data...)
	b.found = true
	b.writes++
	b.mu.Unlock()
	return nil
}

// Bytes returns the stored document.
func (b *MemoryBackend) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// Writes returns how many times the document was replaced.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
