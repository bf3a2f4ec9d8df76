// Package offsync implements the offline-first synchronization layer of
// hisaabdost: a durable pending-action queue, a network status monitor
// with a one-shot reconnect edge, a sync reconciler that drains the
// queue against the remote API, and a status broadcaster the UI
// consumes.
//
// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"encoding/json"
	"time"
)

// Operation constants for pending actions
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// PendingAction is a mutation recorded locally for later application
// against the remote API. Actions are ordered FIFO per entity type by
// Timestamp; the ULID in ID preserves that order lexicographically.
type PendingAction struct {
	ID            string          `json:"id"`
	EntityType    string          `json:"entityType"`
	Operation     string          `json:"operation"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Synced        bool            `json:"synced"`
	Attempts      int             `json:"attempts,omitempty"`
	NextAttemptAt time.Time       `json:"nextAttemptAt,omitempty"`
}

// ValidOperation reports whether op is one of create, update, delete.
func ValidOperation(op string) bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete:
		return true
	default:
		return false
	}
}
