// Package schedule holds the timing primitives the background services share.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled task once its delay elapses
// without another Schedule call. At most one task is pending at a time.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	gen     uint64
	pending bool
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending task with fn. The context passed to fn is
// cancelled when a newer task is scheduled or the debouncer is stopped, so a
// task that already started can abandon its work.
func (d *Debouncer) Schedule(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.gen++
	d.pending = true
	gen := d.gen

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen && !d.stopped
		if current {
			d.pending = false
		}
		d.mu.Unlock()
		if current {
			fn(ctx)
		}
	})
}

// Pending reports whether a task is armed and has not started yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels the pending or running task and rejects later Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pending = false
}
