package http

import (
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Miraines/jwtauth/internal/adapters/transport/http/dto"
	"github.com/Miraines/jwtauth/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/jwtauth/internal/app/auth/service"
	authErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
)

const (
	msgUserExists          = "User already exists"
	msgInvalidCredentials  = "Invalid username or password"
	msgInvalidRefreshToken = "Invalid or expired refresh token"
	msgInvalidToken        = "invalid token"
	msgInvalidRequest      = "invalid request"
	msgInternal            = "internal server error"
)

type Handler struct {
	svc appsvc.Service
}

func NewHandler(svc appsvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, user)
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var body dto.RefreshDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	meta, _ := middleware.TokenMeta(c)

	if err := h.svc.Logout(c.Request.Context(), claims, meta); err != nil {
		handleError(c, err)
		return
	}
	c.Status(nethttp.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	claims, _ := middleware.Claims(c)

	user, err := h.svc.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(nethttp.StatusOK, user)
}

func (h *Handler) Authenticated(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	c.JSON(nethttp.StatusOK, gin.H{
		"message":  "You are authenticated!",
		"username": claims.Name,
		"role":     claims.Role,
	})
}

func (h *Handler) AdminOnly(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{"message": "You are an admin!"})
}

func Health(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

// handleError maps service errors onto responses. Only fixed messages reach
// the client; the error itself is attached for the request logger.
func handleError(c *gin.Context, err error) {
	switch {
	case authErrors.IsInvalidArgument(err):
		_ = c.Error(err)
		c.JSON(nethttp.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidRequest})
	case authErrors.IsAlreadyExists(err):
		c.JSON(nethttp.StatusBadRequest, dto.ErrorResponse{Error: msgUserExists})
	case authErrors.IsInvalidCredentials(err):
		c.JSON(nethttp.StatusUnauthorized, dto.ErrorResponse{Error: msgInvalidCredentials})
	case authErrors.IsInvalidRefreshToken(err):
		c.JSON(nethttp.StatusUnauthorized, dto.ErrorResponse{Error: msgInvalidRefreshToken})
	case authErrors.IsInvalidToken(err):
		c.JSON(nethttp.StatusUnauthorized, dto.ErrorResponse{Error: msgInvalidToken})
	default:
		_ = c.Error(err)
		c.JSON(nethttp.StatusInternalServerError, dto.ErrorResponse{Error: msgInternal})
	}
}
