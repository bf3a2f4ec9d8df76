// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package finance

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewExpense(t *testing.T) {
	e := NewExpense(decimal.RequireFromString("42.50"), "Coffee", "food")
	require.NoError(t, e.Validate())
	require.NotEmpty(t, e.ID)
	require.False(t, e.Date.IsZero())

	// Decimal amounts serialize as strings, never floats.
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"42.5"`)
}

func TestExpenseValidate(t *testing.T) {
	e := NewExpense(decimal.NewFromInt(10), "Lunch", "food")
	require.NoError(t, e.Validate())

	e.ID = ""
	require.Error(t, e.Validate())

	e = NewExpense(decimal.NewFromInt(-1), "Refund", "food")
	require.Error(t, e.Validate())

	// Zero-amount expenses are allowed (free items still get logged).
	e = NewExpense(decimal.Zero, "Promo", "food")
	require.NoError(t, e.Validate())
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{ID: "b1", Category: "food", Monthly: decimal.NewFromInt(500), Month: "2025-07"}
	require.NoError(t, b.Validate())

	require.Error(t, Budget{Category: "food", Monthly: decimal.NewFromInt(1)}.Validate())
	require.Error(t, Budget{ID: "b1", Monthly: decimal.NewFromInt(1)}.Validate())
	require.Error(t, Budget{ID: "b1", Category: "food", Monthly: decimal.NewFromInt(-1)}.Validate())
}

func TestWalletAdditionValidate(t *testing.T) {
	w := WalletAddition{ID: "w1", Amount: decimal.NewFromInt(100)}
	require.NoError(t, w.Validate())

	require.Error(t, WalletAddition{Amount: decimal.NewFromInt(1)}.Validate())
	require.Error(t, WalletAddition{ID: "w1", Amount: decimal.Zero}.Validate())
	require.Error(t, WalletAddition{ID: "w1", Amount: decimal.NewFromInt(-5)}.Validate())
}

func TestFingerprintStability(t *testing.T) {
	a := Expense{ID: "e1"}
	b := Expense{ID: "e1", Description: "changed"}
	require.Equal(t, a.Fingerprint(), b.Fingerprint(),
		"fingerprint depends on identity, not content")
	require.Len(t, a.Fingerprint(), 16)

	require.NotEqual(t, Expense{ID: "x"}.Fingerprint(), Budget{ID: "x"}.Fingerprint(),
		"same id under different entity types must not collide")
	require.NotEqual(t, a.Fingerprint(), Expense{ID: "e2"}.Fingerprint())
}
