// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"sync"
	"time"
)

// Reservations is an explicit in-flight deduplication service: callers
// reserve a fingerprint before starting work and release it when done.
// Reservations expire after the TTL so a crashed holder cannot block a
// key forever. It replaces ambient module-level tracking maps with an
// injected dependency.
type Reservations struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewReservations creates a reservation service with the given TTL.
func NewReservations(ttl time.Duration) *Reservations {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Reservations{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// Has reports whether key is currently reserved.
func (r *Reservations) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.entries[key]
	if !ok {
		return false
	}
	if r.now().Sub(at) >= r.ttl {
		delete(r.entries, key)
		return false
	}
	return true
}

// Reserve claims key. It returns false if the key is already held by
// an unexpired reservation.
func (r *Reservations) Reserve(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.entries[key]; ok && r.now().Sub(at) < r.ttl {
		return false
	}
	r.entries[key] = r.now()
	return true
}

// Release frees key. Releasing an unreserved key is a no-op.
func (r *Reservations) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Len returns the number of live reservations, expiring stale ones.
func (r *Reservations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, at := range r.entries {
		if r.now().Sub(at) >= r.ttl {
			delete(r.entries, k)
		}
	}
	return len(r.entries)
}
