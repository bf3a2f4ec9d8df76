// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import "context"

// Identity is the principal a sync run acts as: the hisaabdost user
// plus the device (installation) performing the sync.
type Identity struct {
	UserID   string
	DeviceID string
}

// Anonymous reports whether no user is signed in. Anonymous runs can
// queue changes locally but cannot obtain a remote token.
func (id Identity) Anonymous() bool { return id.UserID == "" }

type identityKey struct{}

// WithIdentity attaches the identity to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached to ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
