package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nzql/internal/amqp"
	"nzql/internal/cloudsync"
	"nzql/internal/core"
	"nzql/internal/log"
	"nzql/internal/schedule"
	"nzql/internal/sheets"
	"nzql/internal/state"
)

// SyncTriggers are the changes that schedule an automatic push.
const SyncTriggers = state.ChangeTransactions | state.ChangeShifts | state.ChangeRecurring | state.ChangeSettings | state.ChangeSalary

// Sync target names, as reported in snapshot.synced events.
const (
	TargetCloud  = "cloud"
	TargetSheets = "sheets"
)

// Pusher sends a snapshot to a remote endpoint.
type Pusher interface {
	Push(ctx context.Context, url string, d core.AppData) (cloudsync.Result, error)
}

// SyncConfig holds configuration for the syncer
type SyncConfig struct {
	// Debounce is how long to wait after the last change before pushing (default: 5s)
	Debounce time.Duration

	// Timeout bounds one push to all targets (default: 15s)
	Timeout time.Duration
}

// DefaultSyncConfig returns sensible defaults
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Debounce: 5 * time.Second,
		Timeout:  15 * time.Second,
	}
}

// Syncer pushes the snapshot to the configured cloud URL and, when present,
// mirrors the ledger to a spreadsheet. Only the cloud push updates
// lastSynced; the mirror is best effort.
type Syncer struct {
	store    *state.Store
	cloud    Pusher
	mirror   sheets.SnapshotMirror
	notifier amqp.Notifier
	config   SyncConfig
	logger   *log.Logger

	debounce *schedule.Debouncer
	seq      schedule.Sequencer

	mu          sync.Mutex
	running     bool
	unsubscribe func()
}

// NewSyncer creates a syncer. mirror and notifier may be nil.
func NewSyncer(store *state.Store, cloud Pusher, mirror sheets.SnapshotMirror, notifier amqp.Notifier, config SyncConfig, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	def := DefaultSyncConfig()
	if config.Debounce <= 0 {
		config.Debounce = def.Debounce
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Syncer{
		store:    store,
		cloud:    cloud,
		mirror:   mirror,
		notifier: notifier,
		config:   config,
		logger:   logger.WithComponent(log.ComponentSync),
		debounce: schedule.NewDebouncer(config.Debounce),
	}
}

// Sync pushes the current snapshot to every configured target. It returns
// cloudsync.ErrNoEndpoint when there is nowhere to push.
func (s *Syncer) Sync(ctx context.Context) (cloudsync.Result, error) {
	d := s.store.Snapshot()
	url := d.CloudSyncURL
	if url == "" && s.mirror == nil {
		return cloudsync.Result{}, cloudsync.ErrNoEndpoint
	}

	tok := s.seq.Next()
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var (
		res      cloudsync.Result
		mirrored bool
	)
	g, gctx := errgroup.WithContext(ctx)
	if url != "" {
		g.Go(func() error {
			r, err := s.cloud.Push(gctx, url, d)
			if err != nil {
				return fmt.Errorf("%s: %w", TargetCloud, err)
			}
			res = r
			return nil
		})
	}
	if s.mirror != nil {
		g.Go(func() error {
			if err := s.mirror.Mirror(gctx, d); err != nil {
				s.logger.WarnContext(ctx, "Sheets mirror failed",
					log.FieldOperation, log.OpSync, log.FieldTarget, TargetSheets, log.FieldError, err)
				return nil
			}
			mirrored = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.DebugContext(ctx, "Sync superseded", log.FieldSeq, tok)
			return cloudsync.Result{}, err
		}
		s.logger.ErrorContext(ctx, "Sync failed",
			log.FieldOperation, log.OpSync, log.FieldTarget, TargetCloud, log.FieldError, err)
		return cloudsync.Result{}, err
	}

	var targets []string
	if url != "" {
		targets = append(targets, TargetCloud)
		if !s.seq.Commit(tok) {
			s.logger.DebugContext(ctx, "Discarding stale sync completion", log.FieldSeq, tok)
			return res, nil
		}
		if err := s.store.SetLastSynced(ctx, res.Time); err != nil {
			return res, fmt.Errorf("record sync time: %w", err)
		}
	} else {
		res = cloudsync.Result{Success: mirrored}
	}
	if mirrored {
		targets = append(targets, TargetSheets)
	}

	s.logger.InfoContext(ctx, "Snapshot synced",
		log.FieldOperation, log.OpSync,
		log.FieldTarget, targets,
		log.FieldCount, len(d.Transactions),
		log.FieldSeq, tok)
	s.publish(ctx, len(d.Transactions), targets)
	return res, nil
}

func (s *Syncer) publish(ctx context.Context, count int, targets []string) {
	if s.notifier == nil || len(targets) == 0 {
		return
	}
	if err := s.notifier.Publish(ctx, amqp.NewSnapshotSynced(count, targets, s.store.Now())); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish sync event",
			log.FieldOperation, log.OpSync, log.FieldError, err)
	}
}

// Start schedules a debounced push after every relevant store change. A
// newer change cancels the pending push. Returns an error if already running.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("syncer is already running")
	}
	s.running = true
	// A stopped debouncer never fires again, so each run gets its own.
	d := schedule.NewDebouncer(s.config.Debounce)
	s.debounce = d
	s.unsubscribe = s.store.Subscribe(SyncTriggers, func(_ core.AppData, _ state.Change) {
		d.Schedule(s.autoSync)
	})

	s.logger.InfoContext(ctx, "Auto sync started", "debounce", s.config.Debounce)
	return nil
}

// autoSync ignores the outcome; Sync logs failures and the next change
// retries.
func (s *Syncer) autoSync(ctx context.Context) {
	_, _ = s.Sync(ctx)
}

// Pending reports whether an automatic push is waiting for its delay.
func (s *Syncer) Pending() bool {
	s.mu.Lock()
	d := s.debounce
	s.mu.Unlock()
	return d.Pending()
}

// Stop cancels any pending or running automatic push.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.unsubscribe()
	s.debounce.Stop()
}
