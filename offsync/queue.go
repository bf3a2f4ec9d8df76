// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/furqan-debug/hisaabdost-sync/offstore"
)

// Queue is the durable pending-action queue. Each tracked entity type
// has one list stored under "pending-{entityType}s" in the offline-data
// collection; mutations are read-modify-write of the whole list
// (last-write-wins per key, see the shared-resource policy in the
// package docs).
type Queue struct {
	store     *offstore.Store
	signals   *Signals
	types     []string
	retention time.Duration
	logger    *slog.Logger
}

// NewQueue creates a queue over the given store for the configured
// entity types.
func NewQueue(store *offstore.Store, signals *Signals, cfg *Config, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:     store,
		signals:   signals,
		types:     cfg.EntityTypes,
		retention: cfg.Retention,
		logger:    logger,
	}
}

// PendingKey returns the offline-data key holding the action list for
// an entity type.
func PendingKey(entityType string) string {
	return "pending-" + entityType + "s"
}

// StoreOfflineAction appends a new pending action for entityType and
// returns it. The queue does not deduplicate by entity id; callers own
// that responsibility (or use Reservations).
func (q *Queue) StoreOfflineAction(ctx context.Context, entityType, operation string, data json.RawMessage) (*PendingAction, error) {
	if !ValidOperation(operation) {
		return nil, fmt.Errorf("offsync: invalid operation %q", operation)
	}
	if !q.tracked(entityType) {
		return nil, fmt.Errorf("offsync: entity type %q is not tracked", entityType)
	}

	actions, err := q.load(ctx, entityType)
	if err != nil {
		return nil, err
	}

	action := PendingAction{
		ID:         ulid.Make().String(),
		EntityType: entityType,
		Operation:  operation,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}
	actions = append(actions, action)

	if err := q.save(ctx, entityType, actions); err != nil {
		return nil, err
	}

	q.notify(entityType)
	return &action, nil
}

// GetPendingActions returns the full action list for entityType,
// defaulting to empty.
func (q *Queue) GetPendingActions(ctx context.Context, entityType string) ([]PendingAction, error) {
	return q.load(ctx, entityType)
}

// Unsynced returns the unsynced actions for entityType in FIFO order
// by timestamp.
func (q *Queue) Unsynced(ctx context.Context, entityType string) ([]PendingAction, error) {
	actions, err := q.load(ctx, entityType)
	if err != nil {
		return nil, err
	}
	var out []PendingAction
	for _, a := range actions {
		if !a.Synced {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ClearPendingActions deletes the entire list for entityType.
func (q *Queue) ClearPendingActions(ctx context.Context, entityType string) error {
	if err := q.store.Delete(ctx, PendingKey(entityType)); err != nil {
		return err
	}
	q.notify(entityType)
	return nil
}

// MarkSynced flips synced=true on the action with the given id. It is
// persisted immediately so partial drain failures never force
// re-application of already-applied actions.
func (q *Queue) MarkSynced(ctx context.Context, entityType, id string) error {
	return q.mutate(ctx, entityType, id, func(a *PendingAction) {
		a.Synced = true
	})
}

// RecordFailure bumps the attempt counter for the action and schedules
// its next eligible attempt.
func (q *Queue) RecordFailure(ctx context.Context, entityType, id string, nextAttempt time.Time) error {
	return q.mutate(ctx, entityType, id, func(a *PendingAction) {
		a.Attempts++
		a.NextAttemptAt = nextAttempt
	})
}

func (q *Queue) mutate(ctx context.Context, entityType, id string, fn func(*PendingAction)) error {
	actions, err := q.load(ctx, entityType)
	if err != nil {
		return err
	}
	found := false
	for i := range actions {
		if actions[i].ID == id {
			fn(&actions[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("offsync: pending action %s/%s not found", entityType, id)
	}
	if err := q.save(ctx, entityType, actions); err != nil {
		return err
	}
	q.notify(entityType)
	return nil
}

// PendingCount returns the number of unsynced actions across all
// tracked entity types.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	total := 0
	for _, et := range q.types {
		actions, err := q.load(ctx, et)
		if err != nil {
			return 0, err
		}
		for _, a := range actions {
			if !a.Synced {
				total++
			}
		}
	}
	return total, nil
}

// Sweep removes actions that are both synced and older than the
// retention window. Unsynced actions are kept regardless of age.
func (q *Queue) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-q.retention)
	for _, et := range q.types {
		actions, err := q.load(ctx, et)
		if err != nil {
			return err
		}
		kept := actions[:0]
		for _, a := range actions {
			if a.Synced && a.Timestamp.Before(cutoff) {
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) == len(actions) {
			continue
		}
		if len(kept) == 0 {
			if err := q.store.Delete(ctx, PendingKey(et)); err != nil {
				return err
			}
		} else if err := q.save(ctx, et, kept); err != nil {
			return err
		}
		q.logger.Debug("retention sweep removed actions",
			"entityType", et, "removed", len(actions)-len(kept))
		q.notify(et)
	}
	return nil
}

// EntityTypes returns the tracked entity types in drain order.
func (q *Queue) EntityTypes() []string { return q.types }

func (q *Queue) tracked(entityType string) bool {
	for _, t := range q.types {
		if t == entityType {
			return true
		}
	}
	return false
}

func (q *Queue) load(ctx context.Context, entityType string) ([]PendingAction, error) {
	raw, err := q.store.Get(ctx, PendingKey(entityType))
	if errors.Is(err, offstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var actions []PendingAction
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, fmt.Errorf("offsync: decode pending list for %q: %w", entityType, err)
	}
	return actions, nil
}

func (q *Queue) save(ctx context.Context, entityType string, actions []PendingAction) error {
	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("offsync: encode pending list for %q: %w", entityType, err)
	}
	return q.store.Put(ctx, PendingKey(entityType), raw)
}

func (q *Queue) notify(entityType string) {
	if q.signals != nil {
		q.signals.Publish(Event{Kind: SignalQueueChanged, Payload: entityType})
	}
}
