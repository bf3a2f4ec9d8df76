// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/furqan-debug/hisaabdost-sync/offcache"
	"github.com/furqan-debug/hisaabdost-sync/offstore"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the local response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop stale cached-data entries and buckets from old cache versions",
	RunE:  runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	client, cfg, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	removed, err := client.Store.PruneCached(ctx, offstore.CacheFreshness)
	if err != nil {
		return err
	}

	transport, err := offcache.New(client.Store, cfg.Cache, client.Reservations)
	if err != nil {
		return err
	}
	if err := transport.Activate(ctx); err != nil {
		return err
	}

	fmt.Printf("Pruned %d stale cached entries; old cache buckets removed.\n", removed)
	return nil
}
