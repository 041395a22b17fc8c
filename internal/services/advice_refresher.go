package services

import (
	"context"
	"sync"
	"time"

	"nzql/internal/advisory"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/schedule"
	"nzql/internal/state"
)

// AdviceTriggers are the changes that make the current advice outdated.
const AdviceTriggers = state.ChangeTransactions | state.ChangeSettings

// AdviceRefresher keeps the advisor's current advice in step with the
// store, for the month the store's clock is in.
type AdviceRefresher struct {
	store    *state.Store
	advisor  *advisory.Advisor
	delay    time.Duration
	debounce *schedule.Debouncer
	logger   *log.Logger

	mu          sync.Mutex
	running     bool
	unsubscribe func()
}

func NewAdviceRefresher(store *state.Store, advisor *advisory.Advisor, delay time.Duration, logger *log.Logger) *AdviceRefresher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if delay <= 0 {
		delay = time.Second
	}
	return &AdviceRefresher{
		store:   store,
		advisor: advisor,
		delay:   delay,
		logger:  logger.WithComponent(log.ComponentAdvisory),
	}
}

// Refresh recomputes the advice for the current month now.
func (r *AdviceRefresher) Refresh(ctx context.Context) string {
	m := core.MonthOf(r.store.Now())
	text := r.advisor.Refresh(ctx, r.store.Snapshot(), m)
	r.logger.DebugContext(ctx, "Advice refreshed", log.FieldMonth, m.String())
	return text
}

// Start schedules a refresh right away and after every relevant change.
func (r *AdviceRefresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	d := schedule.NewDebouncer(r.delay)
	r.debounce = d
	r.unsubscribe = r.store.Subscribe(AdviceTriggers, func(_ core.AppData, _ state.Change) {
		d.Schedule(r.refresh)
	})
	d.Schedule(r.refresh)
	r.logger.InfoContext(ctx, "Advice refresher started")
}

func (r *AdviceRefresher) refresh(ctx context.Context) {
	r.Refresh(ctx)
}

// Stop cancels any pending refresh.
func (r *AdviceRefresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.unsubscribe()
	r.debounce.Stop()
}
