// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReservationsReserveRelease(t *testing.T) {
	r := NewReservations(time.Minute)

	require.False(t, r.Has("exp:abc"))
	require.True(t, r.Reserve("exp:abc"))
	require.True(t, r.Has("exp:abc"))
	require.Equal(t, 1, r.Len())

	// A held key cannot be reserved again.
	require.False(t, r.Reserve("exp:abc"))

	r.Release("exp:abc")
	require.False(t, r.Has("exp:abc"))
	require.True(t, r.Reserve("exp:abc"))

	// Releasing a key nobody holds is a no-op.
	r.Release("never-reserved")
}

func TestReservationsExpire(t *testing.T) {
	r := NewReservations(time.Minute)

	base := time.Now()
	r.now = func() time.Time { return base }

	require.True(t, r.Reserve("exp:abc"))
	require.True(t, r.Reserve("exp:def"))
	require.Equal(t, 2, r.Len())

	// Just before the TTL, both still hold.
	r.now = func() time.Time { return base.Add(59 * time.Second) }
	require.True(t, r.Has("exp:abc"))
	require.False(t, r.Reserve("exp:abc"))

	// At the TTL the reservation lapses and the key can be reclaimed.
	r.now = func() time.Time { return base.Add(time.Minute) }
	require.False(t, r.Has("exp:abc"))
	require.True(t, r.Reserve("exp:abc"))
	require.Equal(t, 1, r.Len(), "Len sweeps lapsed reservations")
}

func TestReservationsDefaultTTL(t *testing.T) {
	r := NewReservations(0)
	require.Equal(t, time.Minute, r.ttl)
}
