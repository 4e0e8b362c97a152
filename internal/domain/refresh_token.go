package domain

import "time"

// RefreshToken is one row of the refresh-token ledger.
//
// Security notes:
// - We never store the raw token in DB, only its keyed HMAC-SHA256 hash
//   (TokenHash). The hash key is distinct from the JWT signing key.
// - On refresh we rotate tokens: the old row is marked revoked and linked
//   to its successor via ReplacedByID. Rotated rows are kept so a replayed
//   token can be recognized as reuse.
type RefreshToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	UserID int64 `json:"user_id" gorm:"index;not null"`
	User   User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	TokenHash string `json:"-" gorm:"size:64;uniqueIndex;not null"`

	IP     *string `json:"ip,omitempty"`
	Device *string `json:"device,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`

	ReplacedByID *int64 `json:"replaced_by_id" gorm:"index"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the row is still the live continuation of its
// rotation chain.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
