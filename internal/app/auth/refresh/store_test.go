package refresh

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Miraines/jwtauth/internal/adapters/db/memory"
	authErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

func newUser(t *testing.T, users *memory.UserRepo) model.User {
	t.Helper()
	u := model.User{ID: uuid.New(), Username: "alice", PasswordHash: "hash", Role: model.RoleUser}
	require.NoError(t, users.Insert(context.Background(), u))
	return u
}

func TestStore_Generate(t *testing.T) {
	s := NewStore(memory.NewUserRepo(), 0)
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		tok, err := s.Generate()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, TokenBytes)

		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestStore_IssueForAndValidate(t *testing.T) {
	users := memory.NewUserRepo()
	s := NewStore(users, 0)
	ctx := context.Background()
	u := newUser(t, users)

	tok, exp, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, 2*time.Second)

	stored, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshTokenHash)
	require.NotNil(t, stored.RefreshTokenExpiresAt)
	require.NotEqual(t, tok, *stored.RefreshTokenHash, "raw token must not be stored")

	got, err := s.Validate(ctx, u.ID, tok)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestStore_IssueForOverwritesPrevious(t *testing.T) {
	users := memory.NewUserRepo()
	s := NewStore(users, 0)
	ctx := context.Background()
	u := newUser(t, users)

	first, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)
	second, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)

	_, err = s.Validate(ctx, u.ID, first)
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch)
	_, err = s.Validate(ctx, u.ID, second)
	require.NoError(t, err)
}

func TestStore_ValidateFailures(t *testing.T) {
	users := memory.NewUserRepo()
	now := time.Now()
	s := NewStore(users, time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()
	u := newUser(t, users)

	_, err := s.Validate(ctx, u.ID, "anything")
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch, "no token issued yet")

	tok, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)

	_, err = s.Validate(ctx, uuid.New(), tok)
	require.ErrorIs(t, err, authErrors.ErrRefreshNotFound)

	_, err = s.Validate(ctx, u.ID, tok+"x")
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch)

	_, err = s.Validate(ctx, u.ID, "")
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch)

	now = now.Add(time.Hour)
	_, err = s.Validate(ctx, u.ID, tok)
	require.ErrorIs(t, err, authErrors.ErrRefreshExpired, "expiry is inclusive")
}

func TestStore_RotateRejectsReplay(t *testing.T) {
	users := memory.NewUserRepo()
	s := NewStore(users, 0)
	ctx := context.Background()
	u := newUser(t, users)

	old, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)

	current, err := s.Validate(ctx, u.ID, old)
	require.NoError(t, err)
	fresh, _, err := s.Rotate(ctx, &current, old)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)

	_, err = s.Validate(ctx, u.ID, old)
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch)
	_, err = s.Validate(ctx, u.ID, fresh)
	require.NoError(t, err)
}

func TestStore_ConcurrentRotateSingleWinner(t *testing.T) {
	users := memory.NewUserRepo()
	s := NewStore(users, 0)
	ctx := context.Background()
	u := newUser(t, users)

	tok, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cur, err := s.Validate(ctx, u.ID, tok)
			if err != nil {
				results <- err
				return
			}
			_, _, err = s.Rotate(ctx, &cur, tok)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		require.True(t, authErrors.IsInvalidRefreshToken(err), err)
	}
	require.Equal(t, 1, wins)
}

func TestStore_Revoke(t *testing.T) {
	users := memory.NewUserRepo()
	s := NewStore(users, 0)
	ctx := context.Background()
	u := newUser(t, users)

	tok, _, err := s.IssueFor(ctx, &u)
	require.NoError(t, err)
	require.NoError(t, s.Revoke(ctx, u.ID))

	stored, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, stored.RefreshTokenHash)
	require.Nil(t, stored.RefreshTokenExpiresAt)

	_, err = s.Validate(ctx, u.ID, tok)
	require.ErrorIs(t, err, authErrors.ErrRefreshMismatch)
}
