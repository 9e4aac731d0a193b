package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

// UserRepo is a process-local directory for development and tests. The
// mutex stands in for the unique index and row-level atomicity of a real
// database.
type UserRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]model.User
	byUsername map[string]uuid.UUID
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:       make(map[uuid.UUID]model.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

func (r *UserRepo) Insert(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[u.Username]; ok {
		return customErrors.ErrAlreadyExists
	}
	if _, ok := r.byID[u.ID]; ok {
		return customErrors.ErrAlreadyExists
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = clone(u)
	r.byUsername[u.Username] = u.ID
	return nil
}

func (r *UserRepo) FindByUsername(_ context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUsername[username]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return model.User{}, customErrors.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepo) Update(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[u.ID]
	if !ok {
		return customErrors.ErrNotFound
	}
	if old.Username != u.Username {
		if _, taken := r.byUsername[u.Username]; taken {
			return customErrors.ErrAlreadyExists
		}
		delete(r.byUsername, old.Username)
		r.byUsername[u.Username] = u.ID
	}
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = time.Now()
	r.byID[u.ID] = clone(u)
	return nil
}

func (r *UserRepo) SwapRefreshToken(_ context.Context, id uuid.UUID, oldHash, newHash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != oldHash {
		return customErrors.ErrNotFound
	}
	u.RefreshTokenHash = &newHash
	u.RefreshTokenExpiresAt = &exp
	u.UpdatedAt = time.Now()
	r.byID[id] = u
	return nil
}

// clone detaches the pointer fields so callers cannot mutate stored state.
func clone(u model.User) model.User {
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		u.RefreshTokenHash = &h
	}
	if u.RefreshTokenExpiresAt != nil {
		e := *u.RefreshTokenExpiresAt
		u.RefreshTokenExpiresAt = &e
	}
	return u
}
