package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"rentspace/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UpdateLoginAttempts(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"failed_login_attempts": attempts,
		"locked_until":          lockedUntil,
	}).Error
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Update("last_login_at", at).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

// SetTwoFactor stores the pending secret and the hashed recovery codes.
// enabled stays false until the user proves the authenticator works.
func (r *UserRepository) SetTwoFactor(ctx context.Context, id int64, secret string, hashedCodes []string, enabled bool) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"two_factor_secret":  secret,
		"recovery_codes":     hashedCodes,
		"two_factor_enabled": enabled,
	}).Error
}

func (r *UserRepository) SetRecoveryCodes(ctx context.Context, id int64, hashedCodes []string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Update("recovery_codes", hashedCodes).Error
}

func (r *UserRepository) ClearTwoFactor(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"two_factor_secret":  "",
		"recovery_codes":     nil,
		"two_factor_enabled": false,
	}).Error
}
