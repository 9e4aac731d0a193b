package password

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
)

// fastParams keeps the property tests quick; production uses DefaultParams.
var fastParams = &argon2id.Params{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func newHasher(t *testing.T, pepper string) *Hasher {
	t.Helper()
	h, err := NewHasher(fastParams, pepper)
	require.NoError(t, err)
	return h
}

func randomString(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestHasher_RoundTrip(t *testing.T) {
	h := newHasher(t, "pepper")

	hash, err := h.Hash("pw1")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotContains(t, hash, "pw1")

	ok, err := h.Verify(hash, "pw1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(hash, "pw2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_Salted(t *testing.T) {
	h := newHasher(t, "")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHasher_EmptyPasswordAllowed(t *testing.T) {
	h := newHasher(t, "")

	hash, err := h.Hash("")
	require.NoError(t, err)
	ok, err := h.Verify(hash, "")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasher_PepperMatters(t *testing.T) {
	hash, err := newHasher(t, "one").Hash("secret")
	require.NoError(t, err)

	ok, err := newHasher(t, "two").Verify(hash, "secret")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_NoFalsePositives(t *testing.T) {
	if testing.Short() {
		t.Skip("property test")
	}
	h := newHasher(t, "")

	for i := 0; i < 10_000; i++ {
		p1 := randomString(t, 8)
		p2 := randomString(t, 8)
		if p1 == p2 {
			continue
		}
		hash, err := h.Hash(p1)
		require.NoError(t, err)

		ok, err := h.Verify(hash, p1)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = h.Verify(hash, p2)
		require.NoError(t, err)
		require.False(t, ok, "false positive for %q vs %q", p1, p2)
	}
}

func TestHasher_MalformedHash(t *testing.T) {
	h := newHasher(t, "")

	ok, err := h.Verify("not-a-hash", "pw")
	require.Error(t, err)
	require.True(t, authErrors.IsInternal(err))
	require.False(t, ok)
}

func TestHasher_LegacyBcrypt(t *testing.T) {
	h := newHasher(t, "pepper")

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pw"+"pepper"), bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, h.NeedsRehash(string(legacy)))

	ok, err := h.Verify(string(legacy), "old-pw")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify(string(legacy), "other")
	require.NoError(t, err)
	require.False(t, ok)

	fresh, err := h.Hash("old-pw")
	require.NoError(t, err)
	require.False(t, h.NeedsRehash(fresh))
}
