package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"rentspace/internal/domain"
)

// ErrTokenRotated is returned when the conditional rotation write finds
// the row already rotated or revoked. Legitimate single-client refresh
// never contends with itself, so the caller must treat this as reuse.
var ErrTokenRotated = errors.New("refresh token already rotated")

// RefreshTokenRepository provides DB access for the refresh-token ledger.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByHashForUser looks up a row by token hash scoped to the owning user.
// The user id comes from the access-token claims, never from the refresh
// token itself.
func (r *RefreshTokenRepository) GetByHashForUser(ctx context.Context, hash string, userID int64) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND user_id = ?", hash, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Rotate transitions the current row to rotated and inserts its successor
// in one transaction. The revocation is a single conditional write: if the
// row is no longer active at the moment of the update, zero rows are
// affected and the whole operation fails with ErrTokenRotated, leaving the
// ledger untouched. That conditional write is the only serialization point
// of the refresh protocol and must stay in the database, not in process.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, currentID int64, next *domain.RefreshToken) error {
	now := time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", currentID).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenRotated
		}

		if err := tx.Create(next).Error; err != nil {
			return err
		}

		return tx.Model(&domain.RefreshToken{}).
			Where("id = ?", currentID).
			Update("replaced_by_id", next.ID).Error
	})
}

// Revoke marks a single row revoked. Revoking an already-revoked row is a
// no-op success.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", now).Error
}

func (r *RefreshTokenRepository) RevokeByHash(ctx context.Context, hash string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error
}

// RevokeAllForUser is the session-family kill switch used by reuse
// detection and password changes.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

// DeleteExpired hard-deletes rows past the retention window. Rows are kept
// beyond their expiry for audit and reuse detection; only the maintenance
// sweep removes them.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
