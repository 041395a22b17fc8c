package storage

import (
	"context"
	"sync"
)

// MemoryRepository holds the snapshot in process memory.
type MemoryRepository struct {
	mu    sync.Mutex
	data  []byte
	saves int
	err   error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// NewMemoryRepositoryWith starts from an already stored snapshot.
func NewMemoryRepositoryWith(data []byte) *MemoryRepository {
	return &MemoryRepository{data: append([]byte(nil), data...)}
}

func (r *MemoryRepository) Load(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), r.data...), nil
}

func (r *MemoryRepository) Save(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.data = append([]byte(nil), data...)
	r.saves++
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// Saves reports how many successful writes happened.
func (r *MemoryRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// FailWrites makes every later Save return err. A nil err restores writes.
func (r *MemoryRepository) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
