// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T, cfg *Config, remote Remote) (*Broadcaster, *Queue, *Monitor) {
	t.Helper()
	queue, _, signals := newTestQueue(t, cfg)
	monitor := NewMonitor(signals, cfg.EdgeWindow, nil)
	rec := NewReconciler(queue, remote, cfg, nil)
	b := NewBroadcaster(queue, monitor, rec, signals, nil)
	t.Cleanup(b.Close)
	return b, queue, monitor
}

func TestBroadcasterStatus(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, queue, monitor := newTestBroadcaster(t, cfg, remote)
	ctx := context.Background()

	st := b.Status()
	require.False(t, st.IsOnline)
	require.False(t, st.HasPendingSync)
	require.Zero(t, st.PendingCount)
	require.False(t, st.SyncInProgress)
	require.True(t, st.LastSyncTime.IsZero())

	// Pending count tracks queue mutations via the signals hub.
	_, err := queue.StoreOfflineAction(ctx, "expense", OpCreate, json.RawMessage(`{"id":"e1"}`))
	require.NoError(t, err)
	st = b.Status()
	require.True(t, st.HasPendingSync)
	require.Equal(t, 1, st.PendingCount)

	monitor.Update(ConnectionInfo{Online: false})
	require.False(t, b.Status().IsOnline)
}

func TestBroadcasterManualSync(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, queue, _ := newTestBroadcaster(t, cfg, remote)
	ctx := context.Background()

	_, err := queue.StoreOfflineAction(ctx, "expense", OpCreate, json.RawMessage(`{"id":"e1"}`))
	require.NoError(t, err)

	report := b.TriggerSync(ctx)
	require.True(t, report.Ran)
	require.Equal(t, 1, report.Applied)

	// The sync-completed signal refreshes the count before Status is read.
	st := b.Status()
	require.False(t, st.HasPendingSync)
	require.False(t, st.LastSyncTime.IsZero())
}

func TestBroadcasterAutoSyncOnReconnect(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, queue, monitor := newTestBroadcaster(t, cfg, remote)
	ctx := context.Background()

	_, err := queue.StoreOfflineAction(ctx, "expense", OpCreate, json.RawMessage(`{"id":"e1"}`))
	require.NoError(t, err)

	monitor.Update(ConnectionInfo{Online: false})
	monitor.Update(ConnectionInfo{Online: true, Type: "wifi", EffectiveType: "4g"})

	require.Eventually(t, func() bool {
		return len(remote.callLog()) == 1 && b.Status().PendingCount == 0
	}, time.Second, 5*time.Millisecond)

	// Duplicate online observations in the same edge window do not start
	// a second drain.
	monitor.Update(ConnectionInfo{Online: true, Type: "wifi", EffectiveType: "4g"})
	time.Sleep(50 * time.Millisecond)
	require.Len(t, remote.callLog(), 1)
}

func TestBroadcasterNoAutoSyncWithoutPending(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, _, monitor := newTestBroadcaster(t, cfg, remote)

	monitor.Update(ConnectionInfo{Online: false})
	monitor.Update(ConnectionInfo{Online: true})

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, remote.callLog())
	require.True(t, b.Status().LastSyncTime.IsZero())
}

func TestBroadcasterClosedIgnoresReconnect(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, queue, monitor := newTestBroadcaster(t, cfg, remote)
	ctx := context.Background()

	_, err := queue.StoreOfflineAction(ctx, "expense", OpCreate, json.RawMessage(`{"id":"e1"}`))
	require.NoError(t, err)
	monitor.Update(ConnectionInfo{Online: false})
	monitor.Update(ConnectionInfo{Online: true, Type: "wifi", EffectiveType: "4g"})

	require.Eventually(t, func() bool { return len(remote.callLog()) == 1 },
		time.Second, 5*time.Millisecond)
	b.Close()

	// A reconnect delivery that slips in around Close must not spawn a
	// drain against a store that is about to go away.
	_, err = queue.StoreOfflineAction(ctx, "expense", OpCreate, json.RawMessage(`{"id":"e2"}`))
	require.NoError(t, err)
	b.NotifyExternalChange()
	b.onReconnect()

	time.Sleep(50 * time.Millisecond)
	require.Len(t, remote.callLog(), 1)
}

func TestBroadcasterNotifyExternalChange(t *testing.T) {
	cfg := testConfig(t)
	remote := newFakeRemote()
	b, queue, _ := newTestBroadcaster(t, cfg, remote)
	ctx := context.Background()

	// Mutate the store behind the broadcaster's back, as a second
	// process sharing the database would.
	other := NewQueue(queue.store, nil, cfg, nil)
	_, err := other.StoreOfflineAction(ctx, "budget", OpCreate, json.RawMessage(`{}`))
	require.NoError(t, err)
	require.Zero(t, b.Status().PendingCount)

	b.NotifyExternalChange()
	require.Equal(t, 1, b.Status().PendingCount)
}

func TestFromContext(t *testing.T) {
	cfg := testConfig(t)
	b, _, _ := newTestBroadcaster(t, cfg, newFakeRemote())

	ctx := WithBroadcaster(context.Background(), b)
	require.Same(t, b, FromContext(ctx))

	require.PanicsWithValue(t,
		"offsync: no broadcaster in context (use offsync.WithBroadcaster at the application root)",
		func() { FromContext(context.Background()) })
}
