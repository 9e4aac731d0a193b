package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	customErrors "github.com/Miraines/jwtauth/internal/domain/auth/errors"
	"github.com/Miraines/jwtauth/internal/domain/auth/model"
)

const uniqueViolation = "23505"

// mutableColumns are written by Update in one statement so a refresh token
// and its expiry can never be persisted apart.
var mutableColumns = []string{
	"username",
	"password_hash",
	"role",
	"refresh_token_hash",
	"refresh_token_expires_at",
	"updated_at",
}

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) Insert(ctx context.Context, user model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "Insert")
	}
	return nil
}

func (p *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("username = ?", username).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "FindByUsername")
	}

	return u, nil
}

func (p *PostgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "FindByID")
	}

	return u, nil
}

func (p *PostgresUserRepo) Update(ctx context.Context, user model.User) error {
	user.UpdatedAt = time.Now()
	res := p.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Select(mutableColumns).
		Updates(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "Update")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func (p *PostgresUserRepo) SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string, exp time.Time) error {
	res := p.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND refresh_token_hash = ?", id, oldHash).
		Updates(map[string]any{
			"refresh_token_hash":       newHash,
			"refresh_token_expires_at": exp,
			"updated_at":               time.Now(),
		})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "SwapRefreshToken")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
