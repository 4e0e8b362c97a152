package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rentspace/internal/challenge"
	"rentspace/internal/domain"
	"rentspace/internal/repository"
	"rentspace/internal/twofactor"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
)

// decoy hash compared against when the email is unknown, so the response
// time does not reveal whether the account exists.
const decoyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service is the session orchestrator: it coordinates the credential
// store, the challenge store, the two-factor verifier, the token issuer
// and the refresh-token ledger into the public auth operations.
type Service struct {
	users      UserRepositoryInterface
	tokens     RefreshTokenRepositoryInterface
	challenges challenge.Store
	jwt        jwtService
	mailer     Mailer

	refreshHashKey []byte
	refreshTTL     time.Duration
	totpIssuer     string
}

type LoginResult struct {
	RequiresTwoFactor bool
	ChallengeToken    string
	User              *domain.User
	AccessToken       string
	RefreshToken      string
	ExpiresAt         time.Time
}

type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
	RecoveryCodes   []string
}

func NewService(
	users UserRepositoryInterface,
	tokens RefreshTokenRepositoryInterface,
	challenges challenge.Store,
	jwt jwtService,
	mailer Mailer,
	refreshHashKey string,
	refreshTTL time.Duration,
	totpIssuer string,
) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		challenges:     challenges,
		jwt:            jwt,
		mailer:         mailer,
		refreshHashKey: []byte(refreshHashKey),
		refreshTTL:     refreshTTL,
		totpIssuer:     totpIssuer,
	}
}

// Authenticate verifies credentials and, when 2FA is enabled, drives the
// challenge handshake. Tokens are issued only after every required factor
// has been presented.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest, ip, device string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// burn a hash comparison anyway
			_ = bcrypt.CompareHashAndPassword([]byte(decoyPasswordHash), []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.recordFailedLogin(ctx, user, now)
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		if err := s.users.UpdateLoginAttempts(ctx, user.ID, 0, nil); err != nil {
			return nil, err
		}
	}

	if !user.TwoFactorEnabled {
		return s.issueSession(ctx, user, ip, device)
	}

	if req.TwoFactorCode == "" && req.RecoveryCode == "" {
		token, err := s.challenges.Create(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			RequiresTwoFactor: true,
			ChallengeToken:    token,
			User:              sanitized(user),
		}, nil
	}

	// A code is only acceptable together with the challenge token from the
	// first step; this binds the second factor to an observed password
	// check and blocks blind code brute-forcing.
	if strings.TrimSpace(req.ChallengeToken) == "" {
		return nil, ErrInvalidChallenge
	}
	challengeUserID, err := s.challenges.Get(ctx, req.ChallengeToken)
	if err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			return nil, ErrInvalidChallenge
		}
		return nil, err
	}
	if challengeUserID != user.ID {
		return nil, ErrInvalidChallenge
	}

	if err := s.verifySecondFactor(ctx, user, req.TwoFactorCode, req.RecoveryCode); err != nil {
		// the challenge stays valid until its TTL so the user can retry
		// the code without re-entering the password
		return nil, err
	}

	if err := s.challenges.Delete(ctx, req.ChallengeToken); err != nil {
		log.Printf("auth: challenge delete failed: %v", err)
	}

	return s.issueSession(ctx, user, ip, device)
}

func (s *Service) verifySecondFactor(ctx context.Context, user *domain.User, code, recoveryCode string) error {
	if code != "" {
		if !twofactor.VerifyCode(user.TwoFactorSecret, code) {
			return ErrInvalidTwoFactor
		}
		return nil
	}

	remaining, ok := twofactor.ConsumeRecoveryCode(user.RecoveryCodes, recoveryCode)
	if !ok {
		return ErrInvalidTwoFactor
	}
	// persist the shrunken list before issuing tokens; recovery codes are
	// strictly single-use
	if err := s.users.SetRecoveryCodes(ctx, user.ID, remaining); err != nil {
		return err
	}
	user.RecoveryCodes = remaining
	return nil
}

func (s *Service) recordFailedLogin(ctx context.Context, user *domain.User, now time.Time) error {
	attempts := user.FailedLoginAttempts + 1
	var lockedUntil *time.Time
	if attempts >= maxFailedLoginAttempts {
		until := now.Add(lockoutDuration)
		lockedUntil = &until
	}
	if err := s.users.UpdateLoginAttempts(ctx, user.ID, attempts, lockedUntil); err != nil {
		return err
	}
	if lockedUntil != nil {
		log.Printf("SECURITY: account locked after failed logins user_id=%d", user.ID)
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

func (s *Service) issueSession(ctx context.Context, user *domain.User, ip, device string) (*LoginResult, error) {
	accessToken, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refreshRaw, err := s.storeRefreshToken(ctx, user.ID, ip, device, now)
	if err != nil {
		return nil, err
	}

	// fire-and-forget
	_ = s.users.UpdateLastLogin(ctx, user.ID, now)

	return &LoginResult{
		User:         sanitized(user),
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresAt:    now.Add(s.jwt.AccessTTL()),
	}, nil
}

// RefreshSession rotates a refresh token. The owning user id is derived
// from the expired access token's claims (signature and algorithm still
// checked), never from the refresh token alone.
func (s *Service) RefreshSession(ctx context.Context, accessToken, refreshRaw, ip, device string) (*RefreshResult, error) {
	claims, err := s.jwt.ParseExpiredForRefresh(accessToken)
	if err != nil {
		return nil, ErrInvalidSession
	}

	now := time.Now()
	hash := s.hashToken(refreshRaw)

	current, err := s.tokens.GetByHashForUser(ctx, hash, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.handleReuse(ctx, claims.UserID, ip)
		}
		return nil, err
	}
	if !current.IsActive(now) {
		return nil, s.handleReuse(ctx, claims.UserID, ip)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !user.Active {
		if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, ErrInvalidSession
	}

	newRaw, newHash, err := s.newRefreshToken()
	if err != nil {
		return nil, err
	}
	next := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: newHash,
		ExpiresAt: now.Add(s.refreshTTL),
		IP:        nullableString(ip),
		Device:    nullableString(device),
	}

	if err := s.tokens.Rotate(ctx, current.ID, next); err != nil {
		if errors.Is(err, repository.ErrTokenRotated) {
			// another caller presented the same token concurrently;
			// legitimate single-client refresh never races with itself
			return nil, s.handleReuse(ctx, claims.UserID, ip)
		}
		return nil, err
	}

	newAccess, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:  newAccess,
		RefreshToken: newRaw,
		ExpiresAt:    now.Add(s.jwt.AccessTTL()),
	}, nil
}

// handleReuse is the session-family kill switch: a refresh token that is
// missing, expired, already rotated, or lost the rotation race is treated
// as stolen. Every active token for the user is revoked and a security
// event is emitted. The caller sees only ErrInvalidSession.
func (s *Service) handleReuse(ctx context.Context, userID int64, ip string) error {
	log.Printf("SECURITY: refresh token reuse detected user_id=%d ip=%s, revoking session family", userID, ip)

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("auth: session family revoke failed user_id=%d: %v", userID, err)
	}

	if user, err := s.users.GetByID(ctx, userID); err == nil {
		_ = s.mailer.SendSecurityAlert(ctx, user.Email,
			"A sign-in token for your account was used twice. All sessions have been signed out.")
	}

	return ErrInvalidSession
}

// RevokeSession revokes a single refresh token. Idempotent: revoking an
// unknown or already-revoked token succeeds.
func (s *Service) RevokeSession(ctx context.Context, refreshRaw string) error {
	return s.tokens.RevokeByHash(ctx, s.hashToken(refreshRaw))
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitized(user), nil
}

// sanitized copies the user with credential material stripped, so callers
// can hand it to serializers without touching the repository-owned row.
func sanitized(u *domain.User) *domain.User {
	pub := *u
	pub.PasswordHash = ""
	pub.TwoFactorSecret = ""
	pub.RecoveryCodes = nil
	return &pub
}

func (s *Service) storeRefreshToken(ctx context.Context, userID int64, ip, device string, now time.Time) (string, error) {
	raw, hash, err := s.newRefreshToken()
	if err != nil {
		return "", err
	}
	row := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.refreshTTL),
		IP:        nullableString(ip),
		Device:    nullableString(device),
	}
	if err := s.tokens.Create(ctx, row); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *Service) newRefreshToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, s.hashToken(raw), nil
}

// hashToken computes the keyed hash stored in the ledger. The key is a
// dedicated server secret, distinct from the JWT signing key.
func (s *Service) hashToken(raw string) string {
	mac := hmac.New(sha256.New, s.refreshHashKey)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func nullableString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
