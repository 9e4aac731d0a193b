package password

import (
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
)

var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher hashes and verifies passwords with argon2id. Stored bcrypt hashes
// from an older deployment are still accepted by Verify.
type Hasher struct {
	params *argon2id.Params
	pepper string
	dummy  string
}

func NewHasher(params *argon2id.Params, pepper string) (*Hasher, error) {
	if params == nil {
		params = DefaultParams
	}
	h := &Hasher{params: params, pepper: pepper}

	dummy, err := argon2id.CreateHash("dummy-password"+pepper, params)
	if err != nil {
		return nil, customErrors.WrapInternal(err, "dummy hash")
	}
	h.dummy = dummy
	return h, nil
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := argon2id.CreateHash(plain+h.pepper, h.params)
	if err != nil {
		return "", customErrors.WrapInternal(err, "hash password")
	}
	return hash, nil
}

func (h *Hasher) Verify(hash, plain string) (bool, error) {
	if isBcrypt(hash) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain+h.pepper))
		switch {
		case err == nil:
			return true, nil
		case err == bcrypt.ErrMismatchedHashAndPassword:
			return false, nil
		default:
			return false, customErrors.WrapInternal(err, "verify bcrypt hash")
		}
	}

	ok, err := argon2id.ComparePasswordAndHash(plain+h.pepper, hash)
	if err != nil {
		return false, customErrors.WrapInternal(err, "verify password")
	}
	return ok, nil
}

// VerifyDummy burns the same work as a real Verify. Used when the user does
// not exist so response timing does not reveal registered usernames.
func (h *Hasher) VerifyDummy(plain string) {
	_, _ = argon2id.ComparePasswordAndHash(plain+h.pepper, h.dummy)
}

// NeedsRehash reports whether hash was produced by a legacy scheme.
func (h *Hasher) NeedsRehash(hash string) bool {
	return isBcrypt(hash)
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
