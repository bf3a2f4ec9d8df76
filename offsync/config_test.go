// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offsync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("https://api.hisaabdost.app")

	require.Equal(t, "https://api.hisaabdost.app", cfg.BaseURL)
	require.Equal(t, []string{"expense", "budget", "wallet-addition"}, cfg.EntityTypes)
	require.Equal(t, 7*24*time.Hour, cfg.Retention)
	require.Equal(t, time.Second, cfg.BackoffMin)
	require.Equal(t, 60*time.Second, cfg.BackoffMax)
	require.Equal(t, 10, cfg.MaxAttempts)
	require.Equal(t, time.Second, cfg.EdgeWindow)
	require.Equal(t, "v2", cfg.Cache.Version)
	require.NotEmpty(t, cfg.Cache.APIPatterns)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url = "https://api.example.com"
database_path = "/tmp/custom.db"
entity_types = ["expense", "goal"]
retention = "48h"
backoff_min = "500ms"
max_attempts = 3

[cache]
version = "v3"
api_patterns = ["/goals"]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", cfg.BaseURL)
	require.Equal(t, "/tmp/custom.db", cfg.DatabasePath)
	require.Equal(t, []string{"expense", "goal"}, cfg.EntityTypes)
	require.Equal(t, 48*time.Hour, cfg.Retention)
	require.Equal(t, 500*time.Millisecond, cfg.BackoffMin)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, "v3", cfg.Cache.Version)
	require.Equal(t, []string{"/goals"}, cfg.Cache.APIPatterns)

	// Unset fields keep their defaults.
	require.Equal(t, 60*time.Second, cfg.BackoffMax)
	require.Equal(t, time.Second, cfg.EdgeWindow)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig("https://api.test")

	cfg.EntityTypes = nil
	require.Error(t, cfg.Validate())

	cfg.EntityTypes = []string{"expense", "expense"}
	require.Error(t, cfg.Validate())

	cfg.EntityTypes = []string{"expense", ""}
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("https://api.test")
	cfg.BackoffMax = cfg.BackoffMin / 2
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("https://api.test")
	cfg.Retention = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig("https://api.test")
	cfg.EdgeWindow = 0
	require.Error(t, cfg.Validate())
}

func TestHasEntityType(t *testing.T) {
	cfg := DefaultConfig("https://api.test")
	require.True(t, cfg.HasEntityType("expense"))
	require.True(t, cfg.HasEntityType("wallet-addition"))
	require.False(t, cfg.HasEntityType("invoice"))
}
