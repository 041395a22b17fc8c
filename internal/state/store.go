// Package state owns the in-memory snapshot of the finance data and every
// operation that changes it.
//
// Readers take the current snapshot with Snapshot and never see a value
// being modified: each write clones the snapshot, mutates the clone, persists
// it and then publishes it. Writes are serialized, so handlers behave as if
// they ran on a single thread.
package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"nzql/internal/automation"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/storage"
)

// Change is a bitmask naming the parts of the snapshot a write touched.
type Change uint32

const (
	ChangeTransactions Change = 1 << iota
	ChangeAccounts
	ChangeShifts
	ChangeShiftTypes
	ChangeRecurring
	ChangeSalary
	ChangeSettings
	ChangeTags
	ChangeProcessedEvents
	ChangeLastSynced
	changeLimit
)

const (
	ChangeNone Change = 0
	ChangeAll         = changeLimit - 1
)

// Has reports whether any bit of other is set in c.
func (c Change) Has(other Change) bool {
	return c&other != 0
}

// Observer is called after a write has been published. It runs while the
// store holds its writer lock, so it must return quickly and must not call
// back into the store's write methods.
type Observer func(d core.AppData, changed Change)

type subscription struct {
	id   int
	mask Change
	fn   Observer
}

// Store holds the current snapshot.
type Store struct {
	repo   storage.Repository
	logger *log.Logger
	engine *automation.Engine
	clock  func() time.Time
	loc    *time.Location

	current atomic.Pointer[core.AppData]

	mu      sync.Mutex
	subs    []subscription
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default logs through slog.Default.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLocation sets the location whose calendar decides months and days.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithEngine replaces the automation engine.
func WithEngine(e *automation.Engine) Option {
	return func(s *Store) { s.engine = e }
}

// Open loads the persisted snapshot. A missing or unreadable snapshot is
// replaced by the default one; the failure is logged and Open still succeeds.
func Open(ctx context.Context, repo storage.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentStore),
		engine: automation.NewEngine(),
		clock:  time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	d, err := storage.LoadAppData(ctx, repo)
	if err != nil {
		s.logger.WarnContext(ctx, "Stored snapshot unusable, starting from defaults",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
	}
	s.current.Store(&d)
	return s
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (s *Store) Snapshot() core.AppData {
	return *s.current.Load()
}

// Now returns the current time in the store's location.
func (s *Store) Now() time.Time {
	return s.clock().In(s.loc)
}

// Location returns the location whose calendar the store uses.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Subscribe registers fn for writes touching any bit of mask. The returned
// function removes the subscription.
func (s *Store) Subscribe(mask Change, fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, mask: mask, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Update applies mutate to a copy of the current snapshot. mutate reports
// what it changed; ChangeNone or an error leaves the store untouched.
// Otherwise the copy is published, persisted and announced to observers. A
// failed write to storage is logged and the new snapshot is kept in memory.
func (s *Store) Update(ctx context.Context, mutate func(d *core.AppData) (Change, error)) (core.AppData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	changed, err := mutate(&next)
	if err != nil {
		return *s.current.Load(), err
	}
	if changed == ChangeNone {
		return *s.current.Load(), nil
	}

	s.current.Store(&next)
	s.persistLocked(ctx, next)

	for _, sub := range s.subs {
		if sub.mask.Has(changed) {
			sub.fn(next, changed)
		}
	}
	return next, nil
}

func (s *Store) persistLocked(ctx context.Context, d core.AppData) {
	if err := storage.SaveAppData(ctx, s.repo, d); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist snapshot, keeping in-memory state",
			log.FieldOperation, log.OpPersist, log.FieldError, err)
	}
}
