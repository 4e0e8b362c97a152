package domain

import "time"

type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleSpaceOwner UserRole = "space_owner"
	RoleAdmin      UserRole = "admin"
)

type User struct {
	ID           int64    `json:"id" gorm:"primaryKey"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null" validate:"required,email"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"not null"`
	Role         UserRole `json:"role" gorm:"not null;default:client"`

	Active        bool `json:"active" gorm:"not null;default:true"`
	EmailVerified bool `json:"email_verified" gorm:"not null;default:false"`

	// 2FA material. The secret is base32; recovery codes are stored as
	// bcrypt hashes only, the plaintext leaves the server exactly once.
	TwoFactorEnabled bool     `json:"two_factor_enabled" gorm:"not null;default:false"`
	TwoFactorSecret  string   `json:"-"`
	RecoveryCodes    []string `json:"-" gorm:"serializer:json;type:json"`

	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}
