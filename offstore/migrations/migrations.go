// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds the goose SQL migrations for the offline
// store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
