// Package services runs the background work around the store: automation
// passes, debounced sync and advice refreshes.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nzql/internal/amqp"
	"nzql/internal/automation"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/state"
)

// AutomationTriggers are the changes after which a pass may produce new
// transactions.
const AutomationTriggers = state.ChangeSalary | state.ChangeRecurring | state.ChangeProcessedEvents | state.ChangeAccounts

// AutomationRunner applies salary and recurring automation whenever their
// inputs change and on a fixed interval, so a new month or trigger day is
// picked up without any user action.
type AutomationRunner struct {
	store    *state.Store
	notifier amqp.Notifier
	interval time.Duration
	logger   *log.Logger

	trigger chan struct{}

	// Lifecycle management
	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	unsubscribe func()
}

// NewAutomationRunner creates a runner. notifier may be nil.
func NewAutomationRunner(store *state.Store, notifier amqp.Notifier, interval time.Duration, logger *log.Logger) *AutomationRunner {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &AutomationRunner{
		store:    store,
		notifier: notifier,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentAutomation),
		trigger:  make(chan struct{}, 1),
	}
}

// RunOnce performs one automation pass and announces what it recorded.
func (r *AutomationRunner) RunOnce(ctx context.Context) (automation.Result, error) {
	res, err := r.store.ApplyAutomation(ctx)
	if err != nil {
		return automation.Result{}, fmt.Errorf("apply automation: %w", err)
	}
	if res.Empty() || r.notifier == nil {
		return res, nil
	}

	msg := amqp.NewAutomationApplied(res.Keys, r.store.Now())
	if err := r.notifier.Publish(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish automation event",
			log.FieldOperation, log.OpAutomate, log.FieldError, err)
	}
	return res, nil
}

// Start runs a pass immediately, then on every relevant store change and
// every interval. Returns an error if already running.
func (r *AutomationRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("automation runner is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.unsubscribe = r.store.Subscribe(AutomationTriggers, func(_ core.AppData, _ state.Change) {
		r.poke()
	})

	go r.runLoop(ctx, r.stopCh, r.doneCh)

	r.logger.InfoContext(ctx, "Automation runner started", "interval", r.interval)
	return nil
}

// poke requests a pass without blocking; pending requests coalesce.
func (r *AutomationRunner) poke() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *AutomationRunner) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.pass(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pass(ctx)
		case <-r.trigger:
			r.pass(ctx)
		}
	}
}

func (r *AutomationRunner) pass(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Automation pass failed",
			log.FieldOperation, log.OpAutomate, log.FieldError, err)
	}
}

// Stop ends the loop and waits for a running pass to finish.
func (r *AutomationRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.unsubscribe()
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Automation runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Automation runner stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the runner loop is active.
func (r *AutomationRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
