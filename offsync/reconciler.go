// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// lastSyncKey is the offline-data key recording the last completed
// reconciliation, RFC3339.
const lastSyncKey = "last-sync-time"

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	Ran      bool // false when the trigger was a no-op (already running, offline, unauthenticated)
	Applied  int
	Failed   int
	Skipped  int // not yet due for retry, or at the attempt cap
	Duration time.Duration
}

// Reconciler drains the pending-action queue against the remote API.
// Runs never overlap: the in-progress flag is in-memory only, so
// separate processes sharing the store can still race (accepted
// limitation, see package docs).
type Reconciler struct {
	queue  *Queue
	remote Remote
	cfg    *Config
	logger *slog.Logger

	// Authenticated gates sync; nil means always authenticated.
	Authenticated func() bool

	inProgress atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
}

// NewReconciler creates a reconciler over the queue and remote boundary.
func NewReconciler(queue *Queue, remote Remote, cfg *Config, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		queue:  queue,
		remote: remote,
		cfg:    cfg,
		logger: logger,
	}
}

// InProgress reports whether a drain is currently running.
func (r *Reconciler) InProgress() bool { return r.inProgress.Load() }

// LastSyncTime returns when the last pass completed, zero if never.
func (r *Reconciler) LastSyncTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSync
}

// TriggerSync performs one reconciliation pass. It never returns an
// error: per-item failures are logged, counted in the report, and left
// queued for the next trigger. A call while a pass is already running
// is a silent no-op.
func (r *Reconciler) TriggerSync(ctx context.Context) *SyncReport {
	report := &SyncReport{}

	if r.Authenticated != nil && !r.Authenticated() {
		r.logger.Debug("sync skipped: not authenticated")
		return report
	}
	if !r.inProgress.CompareAndSwap(false, true) {
		r.logger.Debug("sync skipped: already in progress")
		return report
	}

	start := time.Now()
	report.Ran = true
	defer func() {
		// The flag must never stay stuck true, and the sweep plus
		// last-sync bookkeeping run regardless of item failures.
		if err := r.queue.Sweep(ctx); err != nil {
			r.logger.Warn("retention sweep failed", "error", err)
		}
		now := time.Now().UTC()
		r.mu.Lock()
		r.lastSync = now
		r.mu.Unlock()
		if err := r.queue.store.Put(ctx, lastSyncKey, []byte(`"`+now.Format(time.RFC3339)+`"`)); err != nil {
			r.logger.Warn("failed to persist last sync time", "error", err)
		}
		r.inProgress.Store(false)
		report.Duration = time.Since(start)
		if r.queue.signals != nil {
			r.queue.signals.Publish(Event{Kind: SignalSyncCompleted, Payload: report})
		}
	}()

	// FIFO within each entity type; no ordering across types.
	for _, entityType := range r.queue.EntityTypes() {
		actions, err := r.queue.Unsynced(ctx, entityType)
		if err != nil {
			r.logger.Warn("failed to read pending actions", "entityType", entityType, "error", err)
			continue
		}
		for i := range actions {
			action := &actions[i]

			if r.cfg.MaxAttempts > 0 && action.Attempts >= r.cfg.MaxAttempts {
				report.Skipped++
				continue
			}
			if !action.NextAttemptAt.IsZero() && time.Now().Before(action.NextAttemptAt) {
				report.Skipped++
				continue
			}

			if err := r.apply(ctx, action); err != nil {
				// One bad item must not block the rest of the batch.
				report.Failed++
				next := time.Now().Add(r.backoff(action.Attempts))
				r.logger.Warn("failed to sync pending action",
					"entityType", entityType, "id", action.ID, "op", action.Operation,
					"attempts", action.Attempts+1, "nextAttempt", next, "error", err)
				if rerr := r.queue.RecordFailure(ctx, entityType, action.ID, next); rerr != nil {
					r.logger.Warn("failed to record sync failure", "id", action.ID, "error", rerr)
				}
				continue
			}

			if err := r.queue.MarkSynced(ctx, entityType, action.ID); err != nil {
				r.logger.Warn("failed to mark action synced", "id", action.ID, "error", err)
				continue
			}
			report.Applied++
		}
	}

	return report
}

func (r *Reconciler) apply(ctx context.Context, action *PendingAction) error {
	switch action.Operation {
	case OpCreate:
		return r.remote.Create(ctx, action.EntityType, action.Data)
	case OpUpdate:
		return r.remote.Update(ctx, action.EntityType, action.Data)
	case OpDelete:
		return r.remote.Delete(ctx, action.EntityType, action.Data)
	default:
		return &unknownOperationError{op: action.Operation}
	}
}

// backoff returns the delay before the next attempt after the given
// number of prior attempts: exponential from BackoffMin capped at
// BackoffMax, with up to 10% jitter.
func (r *Reconciler) backoff(attempts int) time.Duration {
	d := r.cfg.BackoffMin
	for i := 0; i < attempts && d < r.cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > r.cfg.BackoffMax {
		d = r.cfg.BackoffMax
	}
	jitter := time.Duration(rand.Int63n(int64(d)/10 + 1))
	return d + jitter
}

type unknownOperationError struct{ op string }

func (e *unknownOperationError) Error() string {
	return "offsync: unknown operation " + e.op
}
