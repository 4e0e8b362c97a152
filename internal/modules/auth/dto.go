package auth

import "time"

type LoginRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	TwoFactorCode  string `json:"two_factor_code,omitempty"`
	RecoveryCode   string `json:"recovery_code,omitempty"`
	ChallengeToken string `json:"challenge_token,omitempty"`
}

type RefreshRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type TwoFactorSetupRequest struct {
	Password string `json:"password" binding:"required"`
}

type TwoFactorVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

type TwoFactorDisableRequest struct {
	Password string `json:"password" binding:"required"`
}

type UserPublic struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
