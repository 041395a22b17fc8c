package memory

import (
	"context"
	"errors"
	"testing"

	"nzql/internal/core"
)

func TestMemoryStoreMirror(t *testing.T) {
	s := New()
	d := core.NewAppData()
	d.Transactions = []core.Transaction{
		{ID: "1", Type: core.Expense, Amount: 60, Date: "2026-03-01T08:00", AcctFrom: "cash"},
	}

	if err := s.Mirror(context.Background(), d); err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 2 || rows[1][6] != "1" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	// A later mirror replaces the ledger instead of appending.
	d.Transactions = nil
	if err := s.Mirror(context.Background(), d); err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	if rows := s.Rows(); len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
	if s.Mirrors() != 2 {
		t.Fatalf("Mirrors() = %d, want 2", s.Mirrors())
	}
}

func TestMemoryStoreFailures(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailWith(boom)
	if err := s.Mirror(context.Background(), core.NewAppData()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	s.FailWith(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Mirror(ctx, core.NewAppData()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.Mirrors() != 0 {
		t.Fatalf("failed mirrors must not count")
	}
}
