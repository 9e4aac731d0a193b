package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

const (
	claimsKey = "auth.claims"
	metaKey   = "auth.meta"
)

// Authenticator is the slice of the auth service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.Claims, model.TokenMeta, error)
}

// RequireAuth rejects requests without a valid bearer access token and
// stores its claims on the context.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, meta, err := a.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if customErrors.IsInvalidToken(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(metaKey, meta)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func Claims(c *gin.Context) (model.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return model.Claims{}, false
	}
	claims, ok := v.(model.Claims)
	return claims, ok
}

func TokenMeta(c *gin.Context) (model.TokenMeta, bool) {
	v, ok := c.Get(metaKey)
	if !ok {
		return model.TokenMeta{}, false
	}
	meta, ok := v.(model.TokenMeta)
	return meta, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
