package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"nzql/internal/amqp"
	"nzql/internal/cloudsync"
	"nzql/internal/core"
	"nzql/internal/state"
	"nzql/internal/storage"
)

var fixedNow = time.Date(2026, time.March, 10, 8, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	return state.Open(context.Background(), storage.NewMemoryRepository(),
		state.WithClock(func() time.Time { return fixedNow }),
		state.WithLocation(time.UTC))
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []*amqp.EventMessage
	err  error
}

func (n *fakeNotifier) Publish(_ context.Context, msg *amqp.EventMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *fakeNotifier) Messages() []*amqp.EventMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*amqp.EventMessage(nil), n.msgs...)
}

type fakePusher struct {
	mu    sync.Mutex
	calls int
	push  func(call int, d core.AppData) (cloudsync.Result, error)
}

func (p *fakePusher) Push(_ context.Context, _ string, d core.AppData) (cloudsync.Result, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	return p.push(call, d)
}

func (p *fakePusher) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func okPusher(ts string) *fakePusher {
	return &fakePusher{push: func(int, core.AppData) (cloudsync.Result, error) {
		return cloudsync.Result{Success: true, Time: ts}, nil
	}}
}

func setSyncURL(t *testing.T, s *state.Store) {
	t.Helper()
	url := "https://example.com/sync"
	if _, err := s.UpdateSettings(context.Background(), state.Settings{CloudSyncURL: &url}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
}

func enableSalary(t *testing.T, s *state.Store) {
	t.Helper()
	cfg := core.SalaryConfig{Amount: 50000, Day: 5, AccountID: "cash", Enabled: true}
	if _, err := s.UpdateSettings(context.Background(), state.Settings{SalaryConfig: &cfg}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
}
