// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the pending-action queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending actions per entity type",
	RunE:  runQueueList,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear <entity-type>",
	Short: "Drop the entire pending list for an entity type",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueClear,
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueClearCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	client, _, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := cmd.Context()
	total := 0
	for _, entityType := range client.Queue.EntityTypes() {
		actions, err := client.Queue.GetPendingActions(ctx, entityType)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			continue
		}
		fmt.Printf("%s:\n", entityType)
		for _, a := range actions {
			state := "pending"
			if a.Synced {
				state = "synced"
			}
			fmt.Printf("  %s  %-6s  %-7s  attempts=%d  %s\n",
				a.ID, a.Operation, state, a.Attempts, a.Timestamp.Local().Format("2006-01-02 15:04:05"))
			total++
		}
	}
	if total == 0 {
		fmt.Println("Queue is empty.")
	}
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	client, _, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	entityType := args[0]
	if err := client.Queue.ClearPendingActions(cmd.Context(), entityType); err != nil {
		return err
	}
	fmt.Printf("Cleared pending actions for %q.\n", entityType)
	return nil
}
