package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"rentspace/internal/twofactor"
)

// SetupTwoFactor re-verifies the password, generates a fresh secret and
// ten single-use recovery codes, and stores the secret plus the hashed
// codes. The plaintext codes and the secret are returned exactly once;
// they cannot be retrieved again, only regenerated (which invalidates the
// previous set). 2FA is not enforced until VerifyTwoFactorSetup succeeds.
func (s *Service) SetupTwoFactor(ctx context.Context, userID int64, password string) (*TwoFactorSetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	key, err := twofactor.GenerateSecret(s.totpIssuer, user.Email)
	if err != nil {
		return nil, err
	}

	codes, err := twofactor.GenerateRecoveryCodes()
	if err != nil {
		return nil, err
	}
	hashed, err := twofactor.HashRecoveryCodes(codes)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetTwoFactor(ctx, user.ID, key.Secret(), hashed, false); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		RecoveryCodes:   codes,
	}, nil
}

// VerifyTwoFactorSetup enables 2FA once the user proves the authenticator
// was provisioned correctly, so a mistyped setup cannot lock the account.
func (s *Service) VerifyTwoFactorSetup(ctx context.Context, userID int64, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return ErrTwoFactorNotSetup
	}
	if !twofactor.VerifyCode(user.TwoFactorSecret, code) {
		return ErrInvalidTwoFactor
	}
	return s.users.SetTwoFactor(ctx, user.ID, user.TwoFactorSecret, user.RecoveryCodes, true)
}

// DisableTwoFactor requires a password re-proof and clears the secret and
// the recovery-code list.
func (s *Service) DisableTwoFactor(ctx context.Context, userID int64, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return s.users.ClearTwoFactor(ctx, user.ID)
}

// ChangePassword re-verifies the current password, stores the new hash and
// revokes every active refresh token for the user, ending all sessions.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	return s.tokens.RevokeAllForUser(ctx, user.ID)
}
