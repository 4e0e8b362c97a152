package auth

import (
	"context"
	"time"

	"rentspace/internal/domain"
	"rentspace/internal/pkg/jwt"
)

// UserRepositoryInterface — only the methods the auth service uses
type UserRepositoryInterface interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateLoginAttempts(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetTwoFactor(ctx context.Context, id int64, secret string, hashedCodes []string, enabled bool) error
	SetRecoveryCodes(ctx context.Context, id int64, hashedCodes []string) error
	ClearTwoFactor(ctx context.Context, id int64) error
}

// RefreshTokenRepositoryInterface — the refresh-token ledger
type RefreshTokenRepositoryInterface interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHashForUser(ctx context.Context, hash string, userID int64) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, currentID int64, next *domain.RefreshToken) error
	RevokeByHash(ctx context.Context, hash string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

type jwtService interface {
	GenerateToken(user *domain.User) (string, error)
	ParseExpiredForRefresh(token string) (*jwt.Claims, error)
	AccessTTL() time.Duration
}
