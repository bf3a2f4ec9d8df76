// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/furqan-debug/hisaabdost-sync/finance"
	"github.com/furqan-debug/hisaabdost-sync/offsync"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a new record for sync",
	Long:  "Record a change locally. It syncs on the next drain while online.",
}

var flagCategory string

var addExpenseCmd = &cobra.Command{
	Use:   "expense <amount> <description>",
	Short: "Queue a new expense",
	Args:  cobra.ExactArgs(2),
	RunE:  runAddExpense,
}

var flagNote string

var addWalletCmd = &cobra.Command{
	Use:   "wallet <amount>",
	Short: "Queue a wallet top-up",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddWallet,
}

func init() {
	addExpenseCmd.Flags().StringVar(&flagCategory, "category", "other", "Expense category")
	addWalletCmd.Flags().StringVar(&flagNote, "note", "", "Note on the top-up")
	addCmd.AddCommand(addExpenseCmd)
	addCmd.AddCommand(addWalletCmd)
	rootCmd.AddCommand(addCmd)
}

func runAddExpense(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	expense := finance.NewExpense(amount, args[1], flagCategory)
	if err := expense.Validate(); err != nil {
		return err
	}

	client, _, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	// The fingerprint reservation keeps a double invocation (shell retry,
	// double enter) from queueing the same expense twice.
	if !client.Reservations.Reserve(expense.Fingerprint()) {
		return fmt.Errorf("expense %s is already being recorded", expense.ID)
	}
	defer client.Reservations.Release(expense.Fingerprint())

	payload, err := json.Marshal(expense)
	if err != nil {
		return err
	}
	action, err := client.Queue.StoreOfflineAction(cmd.Context(), finance.TypeExpense, offsync.OpCreate, payload)
	if err != nil {
		return err
	}

	fmt.Printf("Queued expense %s (%s %s), action %s.\n",
		expense.ID, expense.Amount.StringFixed(2), expense.Description, action.ID)
	return nil
}

func runAddWallet(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	addition := finance.WalletAddition{
		ID:     uuid.New().String(),
		Amount: amount,
		Note:   flagNote,
		Date:   time.Now().UTC(),
	}
	if err := addition.Validate(); err != nil {
		return err
	}

	client, _, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	if !client.Reservations.Reserve(addition.Fingerprint()) {
		return fmt.Errorf("wallet addition %s is already being recorded", addition.ID)
	}
	defer client.Reservations.Release(addition.Fingerprint())

	payload, err := json.Marshal(addition)
	if err != nil {
		return err
	}
	action, err := client.Queue.StoreOfflineAction(cmd.Context(), finance.TypeWalletAddition, offsync.OpCreate, payload)
	if err != nil {
		return err
	}

	fmt.Printf("Queued wallet top-up %s (%s), action %s.\n",
		addition.ID, addition.Amount.StringFixed(2), action.ID)
	return nil
}
