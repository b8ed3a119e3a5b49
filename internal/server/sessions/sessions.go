// Package sessions tracks revoked access tokens so logout takes effect
// before a token's natural expiry.
package sessions

import (
	"context"
	"time"
)

// Revoker records and checks revoked token ids (jti).
type Revoker interface {
	// Revoke marks jti revoked until the token would have expired anyway.
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Noop is used when no revocation store is configured: logout then only
// ends the refresh token and access tokens live out their short lifetime.
type Noop struct{}

func (Noop) Revoke(context.Context, string, time.Time) error { return nil }
func (Noop) IsRevoked(context.Context, string) (bool, error) { return false, nil }
func (Noop) Ping(context.Context) error                      { return nil }
