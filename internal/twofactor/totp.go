// Package twofactor validates time-based one-time codes and single-use
// recovery codes.
package twofactor

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// secretSize is in bytes; 20 bytes = 160-bit secret per RFC 4226.
	secretSize = 20

	period = 30
	// skew is the accepted clock drift in 30s steps, one step either way.
	skew = 1
)

// GenerateSecret creates a fresh TOTP secret for the account and returns
// the key, including the base32 secret and the otpauth:// provisioning URI
// authenticator apps consume.
func GenerateSecret(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		SecretSize:  secretSize,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}

// VerifyCode checks a 6-digit code against the secret, accepting one time
// step of drift in either direction.
func VerifyCode(secret, code string) bool {
	return VerifyCodeAt(secret, code, time.Now())
}

func VerifyCodeAt(secret, code string, at time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 6 {
		return false
	}

	ok, err := totp.ValidateCustom(trimmed, secret, at, totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
