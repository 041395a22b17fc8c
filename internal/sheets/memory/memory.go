// Package memory provides an in-process SnapshotMirror that keeps the last
// mirrored ledger, for tests.
package memory

import (
	"context"
	"sync"

	"nzql/internal/core"
	ports "nzql/internal/sheets"
)

var _ ports.SnapshotMirror = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	rows    [][]any
	mirrors int
	err     error
}

func New() *Store {
	return &Store{}
}

// Mirror records the rendered ledger, replacing the previous one.
func (s *Store) Mirror(ctx context.Context, d core.AppData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = ports.LedgerRows(d)
	s.mirrors++
	return nil
}

// Rows returns a copy of the last mirrored ledger, header included.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Mirrors returns how many times Mirror succeeded.
func (s *Store) Mirrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrors
}

// FailWith makes later Mirror calls return err. A nil err clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
