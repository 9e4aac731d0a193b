package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	authErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

func TestUserRepo_CRUD(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()
	u := model.User{ID: uuid.New(), Username: "alice", PasswordHash: "h", Role: model.RoleUser}

	require.NoError(t, r.Insert(ctx, u))
	require.True(t, authErrors.IsAlreadyExists(r.Insert(ctx, model.User{ID: uuid.New(), Username: "alice"})))

	got, err := r.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = r.FindByUsername(ctx, "Alice")
	require.True(t, authErrors.IsNotFound(err), "usernames are case-sensitive")

	h := "digest"
	exp := time.Now().Add(time.Hour)
	got.RefreshTokenHash, got.RefreshTokenExpiresAt = &h, &exp
	require.NoError(t, r.Update(ctx, got))

	// mutating the caller's copy must not leak into the store
	h = "changed"
	again, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "digest", *again.RefreshTokenHash)

	require.True(t, authErrors.IsNotFound(r.Update(ctx, model.User{ID: uuid.New()})))
}

func TestUserRepo_SwapRefreshToken(t *testing.T) {
	r := NewUserRepo()
	ctx := context.Background()
	h := "old"
	exp := time.Now().Add(time.Hour)
	u := model.User{ID: uuid.New(), Username: "bob", PasswordHash: "h", RefreshTokenHash: &h, RefreshTokenExpiresAt: &exp}
	require.NoError(t, r.Insert(ctx, u))

	require.NoError(t, r.SwapRefreshToken(ctx, u.ID, "old", "new", exp))
	require.True(t, authErrors.IsNotFound(r.SwapRefreshToken(ctx, u.ID, "old", "newer", exp)))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new", *got.RefreshTokenHash)
}

func TestUserRepo_ConcurrentInsert(t *testing.T) {
	r := NewUserRepo()
	const n = 32

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Insert(context.Background(), model.User{ID: uuid.New(), Username: "same", PasswordHash: "h"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case authErrors.IsAlreadyExists(err):
			conflicts++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
}
