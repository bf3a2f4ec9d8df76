// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ta := NewTokenAuth("test-secret")

	token, err := ta.GenerateToken("user-1", "device-1", time.Hour)
	require.NoError(t, err)

	claims, err := ta.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "device-1", claims.DeviceID)
	require.Equal(t, "hisaabdost-sync", claims.Issuer)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenAuth("secret-a").GenerateToken("user-1", "device-1", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenAuth("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	ta := NewTokenAuth("test-secret")
	token, err := ta.GenerateToken("user-1", "device-1", -time.Minute)
	require.NoError(t, err)

	_, err = ta.ValidateToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenMissingIdentity(t *testing.T) {
	ta := NewTokenAuth("test-secret")

	token, err := ta.GenerateToken("", "device-1", time.Hour)
	require.NoError(t, err)
	_, err = ta.ValidateToken(token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing sub")

	token, err = ta.GenerateToken("user-1", "", time.Hour)
	require.NoError(t, err)
	_, err = ta.ValidateToken(token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing did")
}

func TestTokenSource(t *testing.T) {
	ta := NewTokenAuth("test-secret")
	source := ta.TokenSource(Identity{UserID: "user-1", DeviceID: "device-1"})

	token, err := source(context.Background())
	require.NoError(t, err)

	claims, err := ta.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.ExpiresAt.After(time.Now().Add(10*time.Minute)))
}
