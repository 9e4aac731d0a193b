package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
	"github.com/Miraines/jwtauth/internal/domain/auth/repo"
)

// TokenBytes is the entropy of a refresh token before encoding.
const TokenBytes = 32

// DefaultTTL is how long a refresh token stays usable.
const DefaultTTL = 7 * 24 * time.Hour

// Store keeps a single active refresh token per user on the user record.
// Only the SHA-256 digest of the token is persisted.
type Store struct {
	users repo.UserRepo
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(users repo.UserRepo, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{users: users, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", customErrors.WrapInternal(err, "generate refresh token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IssueFor replaces whatever refresh token u held with a fresh one and
// persists token and expiry in one write. u is updated in place.
func (s *Store) IssueFor(ctx context.Context, u *model.User) (string, time.Time, error) {
	token, err := s.Generate()
	if err != nil {
		return "", time.Time{}, err
	}

	digest := Digest(token)
	exp := s.now().Add(s.ttl).UTC()
	u.RefreshTokenHash = &digest
	u.RefreshTokenExpiresAt = &exp

	if err := s.users.Update(ctx, *u); err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "persist refresh token")
	}
	return token, exp, nil
}

func (s *Store) Validate(ctx context.Context, userID uuid.UUID, presented string) (model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.ErrRefreshNotFound
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "load user")
	}

	if u.RefreshTokenHash == nil || u.RefreshTokenExpiresAt == nil || presented == "" {
		return model.User{}, customErrors.ErrRefreshMismatch
	}
	if subtle.ConstantTimeCompare([]byte(*u.RefreshTokenHash), []byte(Digest(presented))) != 1 {
		return model.User{}, customErrors.ErrRefreshMismatch
	}
	if !s.now().Before(*u.RefreshTokenExpiresAt) {
		return model.User{}, customErrors.ErrRefreshExpired
	}
	return u, nil
}

// Rotate consumes presented and stores a new token in its place. The swap is
// conditional on the stored digest, so of two concurrent rotations with the
// same token only one succeeds.
func (s *Store) Rotate(ctx context.Context, u *model.User, presented string) (string, time.Time, error) {
	token, err := s.Generate()
	if err != nil {
		return "", time.Time{}, err
	}

	digest := Digest(token)
	exp := s.now().Add(s.ttl).UTC()

	err = s.users.SwapRefreshToken(ctx, u.ID, Digest(presented), digest, exp)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return "", time.Time{}, customErrors.ErrRefreshMismatch
	case err != nil:
		return "", time.Time{}, customErrors.WrapInternal(err, "rotate refresh token")
	}

	u.RefreshTokenHash = &digest
	u.RefreshTokenExpiresAt = &exp
	return token, exp, nil
}

// Revoke clears the refresh token of userID, if any.
func (s *Store) Revoke(ctx context.Context, userID uuid.UUID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	u.RefreshTokenHash = nil
	u.RefreshTokenExpiresAt = nil
	if err := s.users.Update(ctx, u); err != nil {
		return customErrors.WrapInternal(err, "revoke refresh token")
	}
	return nil
}

// Digest is the stored form of a refresh token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
