package repo

import (
	"context"
	"time"
)

// TokenRepo is the access-token denylist consulted after logout.
type TokenRepo interface {
	RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error

	IsAccessRevoked(ctx context.Context, jti string) (bool, error)
}
