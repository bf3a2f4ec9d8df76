// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import "sync"

// Signal kinds published on the hub.
const (
	// SignalQueueChanged fires after any pending-queue mutation
	// ("pending-sync-updated" in the app shell).
	SignalQueueChanged = "pending-sync-updated"

	// SignalNetworkChanged fires on any connectivity state change.
	SignalNetworkChanged = "network-changed"

	// SignalReconnected fires exactly once per offline-to-online
	// transition, within the edge window.
	SignalReconnected = "reconnected"

	// SignalSyncCompleted fires after a reconciliation pass finishes,
	// successfully or partially.
	SignalSyncCompleted = "sync-completed"
)

// Event is a broadcast notification. Payload is signal-specific:
// the entity type for queue changes, nil otherwise.
type Event struct {
	Kind    string
	Payload any
}

// Signals is an explicit observable hub. Components subscribe and
// unsubscribe deterministically instead of listening on ambient
// process-wide events.
type Signals struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	kind string // empty matches all kinds
	fn   func(Event)
}

// NewSignals creates an empty hub.
func NewSignals() *Signals {
	return &Signals{subs: make(map[int]subscription)}
}

// Subscribe registers fn for events of the given kind (empty kind
// matches everything) and returns a cancel function. fn is invoked
// synchronously on the publisher's goroutine and must not block.
func (s *Signals) Subscribe(kind string, fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscription{kind: kind, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Publish delivers ev to every matching subscriber.
func (s *Signals) Publish(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.kind == "" || sub.kind == ev.Kind {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
