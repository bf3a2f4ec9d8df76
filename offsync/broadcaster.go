// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the reactive state the UI consumes.
type Status struct {
	IsOnline       bool
	HasPendingSync bool
	PendingCount   int
	SyncInProgress bool
	LastSyncTime   time.Time
}

// Broadcaster is the process-wide offline status observable. It
// mediates between the monitor, queue, and reconciler on one side and
// presentation on the other, and owns the auto-sync-on-reconnect
// behavior.
type Broadcaster struct {
	queue      *Queue
	monitor    *Monitor
	reconciler *Reconciler
	signals    *Signals
	logger     *slog.Logger

	mu           sync.Mutex
	pendingCount int
	userID       string
	closed       bool

	wg      sync.WaitGroup
	cancels []func()
}

// NewBroadcaster wires the broadcaster into the signals hub. Callers
// must Close it to detach the subscriptions.
func NewBroadcaster(queue *Queue, monitor *Monitor, reconciler *Reconciler, signals *Signals, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		queue:      queue,
		monitor:    monitor,
		reconciler: reconciler,
		signals:    signals,
		logger:     logger,
	}
	b.refreshPending()

	b.cancels = append(b.cancels,
		signals.Subscribe(SignalQueueChanged, func(Event) { b.refreshPending() }),
		signals.Subscribe(SignalSyncCompleted, func(Event) { b.refreshPending() }),
		signals.Subscribe(SignalReconnected, func(Event) { b.onReconnect() }),
	)
	return b
}

// Close detaches the broadcaster from the signals hub and waits for
// any in-flight auto-sync drain, so the store stays open until applied
// actions have been marked synced.
func (b *Broadcaster) Close() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

// Status returns the current snapshot.
func (b *Broadcaster) Status() Status {
	b.mu.Lock()
	pending := b.pendingCount
	b.mu.Unlock()

	return Status{
		IsOnline:       b.monitor.IsOnline(),
		HasPendingSync: pending > 0,
		PendingCount:   pending,
		SyncInProgress: b.reconciler.InProgress(),
		LastSyncTime:   b.reconciler.LastSyncTime(),
	}
}

// TriggerSync runs a manual reconciliation pass. It blocks until the
// drain completes (success or partial failure) and never returns an
// error; a call while a pass is running is a no-op.
func (b *Broadcaster) TriggerSync(ctx context.Context) *SyncReport {
	return b.reconciler.TriggerSync(ctx)
}

// NotifyExternalChange re-reads the pending count after another
// process or context mutated the shared store.
func (b *Broadcaster) NotifyExternalChange() {
	b.refreshPending()
}

// SetUser records the active user identity and re-reads the pending
// count, mirroring a sign-in/sign-out transition.
func (b *Broadcaster) SetUser(userID string) {
	b.mu.Lock()
	b.userID = userID
	b.mu.Unlock()
	b.refreshPending()
}

func (b *Broadcaster) refreshPending() {
	count, err := b.queue.PendingCount(context.Background())
	if err != nil {
		b.logger.Warn("failed to read pending count", "error", err)
		return
	}
	b.mu.Lock()
	b.pendingCount = count
	b.mu.Unlock()
}

// onReconnect auto-syncs exactly once per reconnect edge: the monitor
// publishes SignalReconnected once per transition, and the reconciler
// ignores overlapping triggers. The drain goroutine is joined by Close.
func (b *Broadcaster) onReconnect() {
	st := b.Status()
	if !st.IsOnline || !st.HasPendingSync {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		report := b.reconciler.TriggerSync(context.Background())
		if report.Ran {
			b.logger.Debug("auto-sync completed",
				"applied", report.Applied, "failed", report.Failed, "skipped", report.Skipped)
		}
	}()
}

type broadcasterContextKey struct{}

// WithBroadcaster attaches the broadcaster to a context, the analog of
// mounting the offline provider at the application root.
func WithBroadcaster(ctx context.Context, b *Broadcaster) context.Context {
	return context.WithValue(ctx, broadcasterContextKey{}, b)
}

// FromContext returns the broadcaster attached to ctx. It panics when
// none is attached: consumers outside the provider are a programming
// error, not a silent nil.
func FromContext(ctx context.Context) *Broadcaster {
	b, ok := ctx.Value(broadcasterContextKey{}).(*Broadcaster)
	if !ok {
		panic("offsync: no broadcaster in context (use offsync.WithBroadcaster at the application root)")
	}
	return b
}
