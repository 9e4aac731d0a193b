package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Miraines/jwtauth/internal/adapters/transport/http/dto"
	"github.com/Miraines/jwtauth/internal/app/auth/jwt"
	"github.com/Miraines/jwtauth/internal/app/auth/password"
	"github.com/Miraines/jwtauth/internal/app/auth/refresh"
	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
	"github.com/Miraines/jwtauth/internal/domain/auth/repo"
	lg "github.com/Miraines/jwtauth/internal/infra/log"
)

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.PublicUser, error)
	Login(context.Context, dto.LoginDTO) (model.TokenPair, error)
	Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (model.Claims, model.TokenMeta, error)
	Logout(context.Context, model.Claims, model.TokenMeta) error
	Me(ctx context.Context, userID uuid.UUID) (model.PublicUser, error)
}

type authService struct {
	userRepo  repo.UserRepo
	tokenRepo repo.TokenRepo
	jwtUtil   jwt.JWTUtil
	refresh   *refresh.Store
	hasher    *password.Hasher
	v         *validator.Validate
	log       *zap.Logger
}

// New wires the service. tokenRepo may be nil, in which case access tokens
// are validated purely from their signature and logout only revokes the
// refresh token.
func New(
	ur repo.UserRepo,
	tr repo.TokenRepo,
	jm jwt.JWTUtil,
	rs *refresh.Store,
	h *password.Hasher,
	v *validator.Validate,
	log *zap.Logger,
) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		userRepo: ur, tokenRepo: tr, jwtUtil: jm, refresh: rs, hasher: h, v: v, log: log,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.PublicUser, error) {
	if err := a.v.Struct(in); err != nil {
		return model.PublicUser{}, customErrors.NewInvalidArgument(err.Error())
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return model.PublicUser{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
	}
	if err = a.userRepo.Insert(ctx, user); err != nil {
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.PublicUser{}, customErrors.ErrAlreadyExists
		}
		return model.PublicUser{}, customErrors.WrapInternal(err, "Register")
	}

	a.log.Info("user registered",
		zap.String("user", lg.Fingerprint(user.Username)),
		zap.String("user_id", user.ID.String()),
	)
	return user.Public(), nil
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.userRepo.FindByUsername(ctx, in.Username)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		a.hasher.VerifyDummy(in.Password)
		a.loginFailed(in.Username, customErrors.ErrUserNotFound)
		return model.TokenPair{}, customErrors.ErrUserNotFound
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := a.hasher.Verify(user.PasswordHash, in.Password)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		a.loginFailed(in.Username, customErrors.ErrPasswordMismatch)
		return model.TokenPair{}, customErrors.ErrPasswordMismatch
	}

	if a.hasher.NeedsRehash(user.PasswordHash) {
		// Persisted together with the refresh token below.
		if upgraded, err := a.hasher.Hash(in.Password); err == nil {
			user.PasswordHash = upgraded
		}
	}

	at, atExp, _, err := a.jwtUtil.Issue(claimsOf(user))
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Issue")
	}
	rt, rtExp, err := a.refresh.IssueFor(ctx, &user)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "IssueFor")
	}

	a.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return model.TokenPair{
		AccessToken:      at,
		RefreshToken:     rt,
		AccessExpiresAt:  atExp,
		RefreshExpiresAt: rtExp,
		UserID:           user.ID,
	}, nil
}

func (a *authService) Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error) {
	// A missing or unparsable pair cannot name a live token, so it fails like
	// an unknown one.
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, customErrors.ErrRefreshNotFound
	}
	uid, err := uuid.Parse(in.UserID)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrRefreshNotFound
	}

	user, err := a.refresh.Validate(ctx, uid, in.RefreshToken)
	if err != nil {
		if customErrors.IsInvalidRefreshToken(err) {
			a.log.Info("refresh rejected", zap.String("user_id", uid.String()), zap.Error(err))
		}
		return model.TokenPair{}, err
	}

	at, atExp, _, err := a.jwtUtil.Issue(claimsOf(user))
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Issue")
	}
	rt, rtExp, err := a.refresh.Rotate(ctx, &user, in.RefreshToken)
	if err != nil {
		if customErrors.IsInvalidRefreshToken(err) {
			a.log.Warn("refresh token consumed concurrently", zap.String("user_id", uid.String()))
		}
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:      at,
		RefreshToken:     rt,
		AccessExpiresAt:  atExp,
		RefreshExpiresAt: rtExp,
		UserID:           user.ID,
	}, nil
}

func (a *authService) Authenticate(ctx context.Context, accessToken string) (model.Claims, model.TokenMeta, error) {
	claims, meta, err := a.jwtUtil.Validate(accessToken)
	if err != nil {
		return model.Claims{}, model.TokenMeta{}, err
	}

	if a.tokenRepo != nil && meta.ID != "" {
		revoked, err := a.tokenRepo.IsAccessRevoked(ctx, meta.ID)
		if err != nil {
			return model.Claims{}, model.TokenMeta{}, customErrors.WrapInternal(err, "Authenticate")
		}
		if revoked {
			return model.Claims{}, model.TokenMeta{}, customErrors.ErrTokenRevoked
		}
	}
	return claims, meta, nil
}

func (a *authService) Logout(ctx context.Context, claims model.Claims, meta model.TokenMeta) error {
	err := a.refresh.Revoke(ctx, claims.UserID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return customErrors.ErrInvalidToken
	case err != nil:
		return customErrors.WrapInternal(err, "Logout")
	}

	if a.tokenRepo != nil && meta.ID != "" {
		if err := a.tokenRepo.RevokeAccess(ctx, meta.ID, meta.ExpiresAt); err != nil {
			return customErrors.WrapInternal(err, "Logout")
		}
	}

	a.log.Info("user logged out", zap.String("user_id", claims.UserID.String()))
	return nil
}

func (a *authService) Me(ctx context.Context, userID uuid.UUID) (model.PublicUser, error) {
	user, err := a.userRepo.FindByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.PublicUser{}, customErrors.ErrInvalidToken
	case err != nil:
		return model.PublicUser{}, customErrors.WrapInternal(err, "Me")
	}
	return user.Public(), nil
}

func (a *authService) loginFailed(username string, reason error) {
	a.log.Info("login failed",
		zap.String("user", lg.Fingerprint(username)),
		zap.Error(reason),
	)
}

func claimsOf(u model.User) model.Claims {
	return model.Claims{Name: u.Username, UserID: u.ID, Role: u.Role}
}
