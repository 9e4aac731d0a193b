package repo

import (
	"context"
	"time"

	"github.com/Miraines/jwtauth/internal/domain/auth/model"
	"github.com/google/uuid"
)

// UserRepo is the user directory. Lookups return errors.ErrNotFound for a
// missing record and Insert returns errors.ErrAlreadyExists on a username
// collision; uniqueness is enforced by storage.
type UserRepo interface {
	Insert(ctx context.Context, u model.User) error

	FindByUsername(ctx context.Context, username string) (model.User, error)

	FindByID(ctx context.Context, id uuid.UUID) (model.User, error)

	// Update writes every mutable column of u in a single statement.
	Update(ctx context.Context, u model.User) error

	// SwapRefreshToken replaces the stored refresh token digest only if it
	// still equals oldHash. Returns errors.ErrNotFound when nothing matched.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string, exp time.Time) error
}
