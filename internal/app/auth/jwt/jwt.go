package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
	"github.com/Miraines/jwtauth/internal/infra/config"
)

var signingMethod = jwt.SigningMethodHS512

type accessClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

type JWTUtil interface {
	Issue(claims model.Claims) (token string, exp time.Time, jti string, err error)
	Validate(token string) (model.Claims, model.TokenMeta, error)
}

type JwtUtilImpl struct {
	key       []byte
	accessTTL time.Duration
	issuer    string
	audience  string
	now       func() time.Time
}

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	switch {
	case cfg.JWTSigningKey == "":
		return nil, customErrors.NewInvalidArgument("empty signing key")
	case cfg.Issuer == "":
		return nil, customErrors.NewInvalidArgument("empty issuer")
	case cfg.Audience == "":
		return nil, customErrors.NewInvalidArgument("empty audience")
	case cfg.AccessTokenTTL <= 0:
		return nil, customErrors.NewInvalidArgument("access token ttl must be positive")
	}

	return &JwtUtilImpl{
		key:       []byte(cfg.JWTSigningKey),
		accessTTL: cfg.AccessTokenTTL,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (j *JwtUtilImpl) WithClock(now func() time.Time) *JwtUtilImpl {
	j.now = now
	return j
}

func (j *JwtUtilImpl) Issue(c model.Claims) (token string, exp time.Time, jti string, err error) {
	jti = uuid.NewString()
	now := j.now()

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID.String(),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			ID:        jti,
		},
		Name: c.Name,
		Role: c.Role,
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(j.key)
	if err != nil {
		return "", time.Time{}, "", customErrors.WrapInternal(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, jti, nil
}

func (j *JwtUtilImpl) Validate(raw string) (model.Claims, model.TokenMeta, error) {
	token, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return j.key, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		// jwt/v5 requires now < exp, so a token is already expired at exp.
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return model.Claims{}, model.TokenMeta{}, classify(err)
	}
	if !token.Valid {
		return model.Claims{}, model.TokenMeta{}, customErrors.ErrTokenMalformed
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok {
		return model.Claims{}, model.TokenMeta{}, customErrors.WrapInternal(
			errors.New("claims not accessClaims"), "Validate",
		)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Claims{}, model.TokenMeta{}, customErrors.ErrTokenMalformed
	}

	meta := model.TokenMeta{
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		meta.IssuedAt = claims.IssuedAt.Time
	}

	return model.Claims{Name: claims.Name, UserID: uid, Role: claims.Role}, meta, nil
}

// classify maps library errors onto the token failure kinds. The library
// verifies the signature before any claim, so a forged token never reports
// Expired.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return customErrors.ErrSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return customErrors.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return customErrors.ErrIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return customErrors.ErrAudienceMismatch
	default:
		return customErrors.ErrTokenMalformed
	}
}
