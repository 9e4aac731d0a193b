package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

type User struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username              string     `gorm:"uniqueIndex;not null"`
	PasswordHash          string     `gorm:"not null"`
	Role                  string     `gorm:"not null;default:User"`
	RefreshTokenHash      *string    `gorm:"column:refresh_token_hash"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (User) TableName() string {
	return "users"
}

// Public strips everything a client must never see.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role}
}

type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// Claims is the identity embedded in an access token.
type Claims struct {
	Name   string
	UserID uuid.UUID
	Role   string
}

// TokenMeta carries the registered claims of a validated access token.
type TokenMeta struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           uuid.UUID
}
