// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds configuration for the offline sync layer.
type Config struct {
	// DatabasePath is the SQLite file backing the offline store.
	DatabasePath string `toml:"database_path"`

	// BaseURL is the remote API root, e.g. "https://api.hisaabdost.app".
	BaseURL string `toml:"base_url"`

	// EntityTypes lists the logical entity types tracked by the queue,
	// in drain order. New types are added here, not in code.
	EntityTypes []string `toml:"entity_types"`

	// Retention is how long synced actions are kept before the sweep
	// drops them. Unsynced actions are never swept.
	Retention time.Duration `toml:"retention"`

	// SweepInterval is how often the background retention sweep runs.
	SweepInterval time.Duration `toml:"sweep_interval"`

	// BackoffMin/BackoffMax bound the per-item retry backoff.
	BackoffMin time.Duration `toml:"backoff_min"`
	BackoffMax time.Duration `toml:"backoff_max"`

	// MaxAttempts caps retries per pending item; items at the cap are
	// skipped by drains but kept in the queue.
	MaxAttempts int `toml:"max_attempts"`

	// EdgeWindow is how long the reconnect edge flag holds after an
	// offline-to-online transition.
	EdgeWindow time.Duration `toml:"edge_window"`

	// ProbeInterval is how often the connectivity probe runs when one
	// is configured.
	ProbeInterval time.Duration `toml:"probe_interval"`

	// Cache holds the cache strategy layer settings.
	Cache CacheConfig `toml:"cache"`
}

// duration lets TOML files express durations as strings ("72h", "1s").
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// fileConfig is the on-disk shape of Config.
type fileConfig struct {
	DatabasePath  string      `toml:"database_path"`
	BaseURL       string      `toml:"base_url"`
	EntityTypes   []string    `toml:"entity_types"`
	Retention     duration    `toml:"retention"`
	SweepInterval duration    `toml:"sweep_interval"`
	BackoffMin    duration    `toml:"backoff_min"`
	BackoffMax    duration    `toml:"backoff_max"`
	MaxAttempts   int         `toml:"max_attempts"`
	EdgeWindow    duration    `toml:"edge_window"`
	ProbeInterval duration    `toml:"probe_interval"`
	Cache         CacheConfig `toml:"cache"`
}

// CacheConfig configures the request interceptor.
type CacheConfig struct {
	// Version suffixes the bucket names; bump it to invalidate all
	// buckets from previous releases on activation.
	Version string `toml:"version"`

	// APIPatterns are regular expressions over URL paths selecting the
	// read endpoints served stale-while-revalidate.
	APIPatterns []string `toml:"api_patterns"`

	// StaticManifest lists the shell asset URLs pre-warmed on install.
	StaticManifest []string `toml:"static_manifest"`

	// Origin is the same-origin host for cache-first static assets.
	Origin string `toml:"origin"`
}

// DefaultConfig returns the configuration used by the hisaabdost app.
// BaseURL must be provided by the caller.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		DatabasePath:  filepath.Join(defaultDataDir(), "offline.db"),
		BaseURL:       baseURL,
		EntityTypes:   []string{"expense", "budget", "wallet-addition"},
		Retention:     7 * 24 * time.Hour,
		SweepInterval: time.Hour,
		BackoffMin:    1 * time.Second,
		BackoffMax:    60 * time.Second,
		MaxAttempts:   10,
		EdgeWindow:    1 * time.Second,
		ProbeInterval: 15 * time.Second,
		Cache: CacheConfig{
			Version:     "v2",
			APIPatterns: []string{`/expenses`, `/budgets`, `/profiles`, `/wallet`},
		},
	}
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "hisaabdost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "hisaabdost")
}

// LoadConfig reads a TOML config file and fills unset fields from
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("offsync: decode config %s: %w", path, err)
	}

	cfg := DefaultConfig(fc.BaseURL)
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if len(fc.EntityTypes) > 0 {
		cfg.EntityTypes = fc.EntityTypes
	}
	if fc.Retention.Duration > 0 {
		cfg.Retention = fc.Retention.Duration
	}
	if fc.SweepInterval.Duration > 0 {
		cfg.SweepInterval = fc.SweepInterval.Duration
	}
	if fc.BackoffMin.Duration > 0 {
		cfg.BackoffMin = fc.BackoffMin.Duration
	}
	if fc.BackoffMax.Duration > 0 {
		cfg.BackoffMax = fc.BackoffMax.Duration
	}
	if fc.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	if fc.EdgeWindow.Duration > 0 {
		cfg.EdgeWindow = fc.EdgeWindow.Duration
	}
	if fc.ProbeInterval.Duration > 0 {
		cfg.ProbeInterval = fc.ProbeInterval.Duration
	}
	if fc.Cache.Version != "" {
		cfg.Cache.Version = fc.Cache.Version
	}
	if len(fc.Cache.APIPatterns) > 0 {
		cfg.Cache.APIPatterns = fc.Cache.APIPatterns
	}
	if len(fc.Cache.StaticManifest) > 0 {
		cfg.Cache.StaticManifest = fc.Cache.StaticManifest
	}
	if fc.Cache.Origin != "" {
		cfg.Cache.Origin = fc.Cache.Origin
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the layer relies on.
func (c *Config) Validate() error {
	if len(c.EntityTypes) == 0 {
		return fmt.Errorf("offsync: config must list at least one entity type")
	}
	seen := make(map[string]bool, len(c.EntityTypes))
	for _, et := range c.EntityTypes {
		if et == "" {
			return fmt.Errorf("offsync: empty entity type in config")
		}
		if seen[et] {
			return fmt.Errorf("offsync: duplicate entity type %q", et)
		}
		seen[et] = true
	}
	if c.BackoffMin <= 0 || c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("offsync: invalid backoff bounds [%v, %v]", c.BackoffMin, c.BackoffMax)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("offsync: retention must be positive")
	}
	if c.EdgeWindow <= 0 {
		return fmt.Errorf("offsync: edge window must be positive")
	}
	return nil
}

// HasEntityType reports whether et is a tracked entity type.
func (c *Config) HasEntityType(et string) bool {
	for _, t := range c.EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}
