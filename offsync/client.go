// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/furqan-debug/hisaabdost-sync/offstore"
)

// clientIDKey is the offline-data key holding this installation's
// generated client id.
const clientIDKey = "client-id"

// Client assembles the offline sync layer: store, queue, monitor,
// reconciler, and broadcaster, plus the shared signals hub and the
// in-flight reservation service.
type Client struct {
	Store        *offstore.Store
	Queue        *Queue
	Monitor      *Monitor
	Reconciler   *Reconciler
	Broadcaster  *Broadcaster
	Signals      *Signals
	Reservations *Reservations
	ClientID     string

	cfg    *Config
	logger *slog.Logger
	probe  Probe
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithProbe sets a connectivity probe polled by Start.
func WithProbe(probe Probe) Option {
	return func(c *Client) { c.probe = probe }
}

// NewClient opens the offline store at cfg.DatabasePath and wires the
// sync layer over the given remote boundary.
func NewClient(cfg *Config, remote Remote, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("offsync: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, fmt.Errorf("offsync: remote cannot be nil")
	}

	store, err := offstore.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("offsync: open store: %w", err)
	}

	c := &Client{
		Store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientID, err := EnsureClientID(context.Background(), store)
	if err != nil {
		store.Close()
		return nil, err
	}
	c.ClientID = clientID

	c.Signals = NewSignals()
	c.Reservations = NewReservations(time.Minute)
	c.Queue = NewQueue(store, c.Signals, cfg, c.logger)
	c.Monitor = NewMonitor(c.Signals, cfg.EdgeWindow, c.logger)
	c.Reconciler = NewReconciler(c.Queue, remote, cfg, c.logger)
	c.Broadcaster = NewBroadcaster(c.Queue, c.Monitor, c.Reconciler, c.Signals, c.logger)

	return c, nil
}

// EnsureClientID generates and persists an installation id if not
// already present.
func EnsureClientID(ctx context.Context, store *offstore.Store) (string, error) {
	raw, err := store.Get(ctx, clientIDKey)
	if err == nil {
		return string(raw), nil
	}
	if !errors.Is(err, offstore.ErrNotFound) {
		return "", fmt.Errorf("offsync: read client id: %w", err)
	}

	id := uuid.New().String()
	if err := store.Put(ctx, clientIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("offsync: persist client id: %w", err)
	}
	return id, nil
}

// Start launches the background loops: the connectivity probe poll (if
// a probe was configured) and the periodic retention sweep. Loops stop
// when ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	if c.probe != nil {
		c.Monitor.Start(ctx, c.probe, c.cfg.ProbeInterval)
	}

	go func() {
		interval := c.cfg.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Queue.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
					c.logger.Warn("periodic retention sweep failed", "error", err)
				}
			}
		}
	}()
}

// Close detaches the broadcaster, waits for any in-flight auto-sync
// drain to finish, then closes the store.
func (c *Client) Close() error {
	c.Broadcaster.Close()
	return c.Store.Close()
}
