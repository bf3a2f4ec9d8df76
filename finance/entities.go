// Package finance defines the typed entity payloads the hisaabdost app
// queues for sync: expenses, budgets, and wallet additions. Amounts
// are decimals, never floats.
//
// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package finance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entity type names as tracked by the pending-action queue.
const (
	TypeExpense        = "expense"
	TypeBudget         = "budget"
	TypeWalletAddition = "wallet-addition"
)

// Expense is a single logged expense.
type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
}

// NewExpense creates an expense with a generated id and the current
// date.
func NewExpense(amount decimal.Decimal, description, category string) Expense {
	return Expense{
		ID:          uuid.New().String(),
		Amount:      amount,
		Description: description,
		Category:    category,
		Date:        time.Now().UTC(),
	}
}

// Validate checks the invariants a syncable expense must satisfy.
func (e Expense) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("finance: expense missing id")
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("finance: expense amount must not be negative")
	}
	return nil
}

// Fingerprint is a stable identity for reservation keys, so the same
// logical expense is not enqueued twice concurrently.
func (e Expense) Fingerprint() string {
	return fingerprint(TypeExpense, e.ID)
}

// Budget is a per-category monthly budget.
type Budget struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Monthly  decimal.Decimal `json:"monthly"`
	Month    string          `json:"month"` // "2025-07"
}

// Validate checks the invariants a syncable budget must satisfy.
func (b Budget) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("finance: budget missing id")
	}
	if b.Category == "" {
		return fmt.Errorf("finance: budget missing category")
	}
	if b.Monthly.IsNegative() {
		return fmt.Errorf("finance: budget amount must not be negative")
	}
	return nil
}

// Fingerprint is a stable identity for reservation keys.
func (b Budget) Fingerprint() string {
	return fingerprint(TypeBudget, b.ID)
}

// WalletAddition is money added to the wallet balance.
type WalletAddition struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
	Date   time.Time       `json:"date"`
}

// Validate checks the invariants a syncable wallet addition must
// satisfy.
func (w WalletAddition) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("finance: wallet addition missing id")
	}
	if !w.Amount.IsPositive() {
		return fmt.Errorf("finance: wallet addition amount must be positive")
	}
	return nil
}

// Fingerprint is a stable identity for reservation keys.
func (w WalletAddition) Fingerprint() string {
	return fingerprint(TypeWalletAddition, w.ID)
}

func fingerprint(entityType, id string) string {
	sum := sha256.Sum256([]byte(entityType + ":" + id))
	return hex.EncodeToString(sum[:8])
}
