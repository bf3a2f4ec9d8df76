// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the pending queue against the remote API",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	client, cfg, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	if info := probeConnectivity(cfg); !info.Online {
		fmt.Println("Offline; nothing synced. Queued changes will sync on the next run while online.")
		return nil
	}

	report := client.Broadcaster.TriggerSync(cmd.Context())
	if !report.Ran {
		fmt.Println("Sync skipped (already running or not authenticated).")
		return nil
	}

	// Partial failure is ambient state, not an error exit.
	fmt.Printf("Sync finished in %s: %d applied, %d failed, %d skipped.\n",
		report.Duration.Round(time.Millisecond), report.Applied, report.Failed, report.Skipped)
	return nil
}
