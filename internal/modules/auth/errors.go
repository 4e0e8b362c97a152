package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, inactive account and
	// wrong password alike; the response must not distinguish them.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")

	ErrInvalidChallenge  = errors.New("invalid or expired challenge token")
	ErrInvalidTwoFactor  = errors.New("invalid two-factor code")
	ErrTwoFactorNotSetup = errors.New("two-factor authentication not set up")

	// ErrInvalidSession covers absent, expired, rotated and raced refresh
	// tokens. Reuse detection is logged internally but surfaced with this
	// same error so a caller cannot tell detection from plain expiry.
	ErrInvalidSession = errors.New("invalid session")
)
