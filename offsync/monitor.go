// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Connection quality classifications.
const (
	QualityGood    = "good"
	QualitySlow    = "slow"
	QualityOffline = "offline"
)

// ConnectionInfo carries the platform connectivity hints: the link
// type (wifi/cellular/ethernet) and the effective speed class
// (slow-2g/2g/3g/4g).
type ConnectionInfo struct {
	Online        bool
	Type          string
	EffectiveType string
}

// NetworkState is a snapshot of the monitor's view of connectivity.
type NetworkState struct {
	IsOnline         bool
	IsConnected      bool
	IsDisconnected   bool
	IsSlowConnection bool
	ConnectionType   string
	Quality          string
	WasOffline       bool
}

// Probe checks connectivity on demand, for platforms without push
// events.
type Probe interface {
	Check(ctx context.Context) (ConnectionInfo, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (ConnectionInfo, error)

func (f ProbeFunc) Check(ctx context.Context) (ConnectionInfo, error) { return f(ctx) }

// Monitor is the single source of truth for connectivity. Platform
// bindings push transitions via Update; alternatively Start polls an
// injected Probe. On an offline-to-online transition the monitor holds
// WasOffline for the edge window and publishes SignalReconnected
// exactly once, no matter how many online events land inside the
// window.
type Monitor struct {
	signals    *Signals
	edgeWindow time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	info       ConnectionInfo
	wasOffline bool
	edgeTimer  *time.Timer
	seeded     bool
}

// NewMonitor creates a monitor that starts in the offline state until
// the first Update.
func NewMonitor(signals *Signals, edgeWindow time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if edgeWindow <= 0 {
		edgeWindow = time.Second
	}
	return &Monitor{
		signals:    signals,
		edgeWindow: edgeWindow,
		logger:     logger,
	}
}

// Update feeds a connectivity observation into the monitor. The
// reconnect edge requires a previously observed offline state: the
// first observation of a process that starts online is not a
// transition and fires nothing.
func (m *Monitor) Update(info ConnectionInfo) {
	m.mu.Lock()

	seeded := m.seeded
	wasOnline := seeded && m.info.Online
	m.info = info
	m.seeded = true

	reconnected := info.Online && seeded && !wasOnline && !m.wasOffline
	if reconnected {
		m.wasOffline = true
		if m.edgeTimer != nil {
			m.edgeTimer.Stop()
		}
		m.edgeTimer = time.AfterFunc(m.edgeWindow, m.clearEdge)
	}
	m.mu.Unlock()

	if m.signals != nil {
		m.signals.Publish(Event{Kind: SignalNetworkChanged})
		if reconnected {
			m.logger.Debug("connectivity restored", "type", info.Type, "effectiveType", info.EffectiveType)
			m.signals.Publish(Event{Kind: SignalReconnected})
		}
	}
}

func (m *Monitor) clearEdge() {
	m.mu.Lock()
	m.wasOffline = false
	m.mu.Unlock()
}

// Snapshot returns the current network state.
func (m *Monitor) Snapshot() NetworkState {
	m.mu.Lock()
	defer m.mu.Unlock()

	online := m.seeded && m.info.Online
	slow := m.info.EffectiveType == "slow-2g" || m.info.EffectiveType == "2g"

	quality := QualityOffline
	if online {
		if slow {
			quality = QualitySlow
		} else {
			quality = QualityGood
		}
	}

	return NetworkState{
		IsOnline:         online,
		IsConnected:      online,
		IsDisconnected:   !online,
		IsSlowConnection: online && slow,
		ConnectionType:   m.info.Type,
		Quality:          quality,
		WasOffline:       m.wasOffline,
	}
}

// IsOnline is a convenience accessor.
func (m *Monitor) IsOnline() bool { return m.Snapshot().IsOnline }

// Start polls the probe at the given interval until ctx is cancelled.
// Probe errors count as offline observations.
func (m *Monitor) Start(ctx context.Context, probe Probe, interval time.Duration) {
	if probe == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			info, err := probe.Check(ctx)
			if err != nil {
				info = ConnectionInfo{Online: false}
			}
			m.Update(info)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
