package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rentspace/internal/challenge"
	"rentspace/internal/database"
	"rentspace/internal/domain"
	"rentspace/internal/middleware"
	"rentspace/internal/modules/auth"
	jwtsvc "rentspace/internal/pkg/jwt"
	"rentspace/internal/repository"
	"rentspace/internal/twofactor"
)

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type testSuite struct {
	router     *gin.Engine
	db         *gorm.DB
	bobSecret  string
	jwtService *jwtsvc.Service
}

func setupTestSuite(t *testing.T) *testSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}))

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	challengeStore := challenge.NewMemoryStore(5 * time.Minute)
	jwtService := jwtsvc.New("e2e-signing-secret", 15*time.Minute)
	mailer := auth.NewDevConsoleMailer(false)

	authService := auth.NewService(
		userRepo, tokenRepo, challengeStore, jwtService, mailer,
		"e2e-refresh-hash-key", 7*24*time.Hour, "rentspace",
	)
	authHandler := auth.NewHandler(authService)

	router := gin.New()
	v1 := router.Group("/api/v1")
	authHandler.RegisterPublicRoutes(v1)
	protected := v1.Group("/")
	protected.Use(middleware.RequireAuth(jwtService))
	authHandler.RegisterProtectedRoutes(protected)

	suite := &testSuite{router: router, db: db, jwtService: jwtService}
	suite.seedUsers(t)
	return suite
}

func (s *testSuite) seedUsers(t *testing.T) {
	t.Helper()

	aliceHash, err := bcrypt.GenerateFromPassword([]byte("correct-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&domain.User{
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: string(aliceHash),
		Role:         domain.RoleClient,
		Active:       true,
	}).Error)

	key, err := twofactor.GenerateSecret("rentspace", "bob@example.com")
	require.NoError(t, err)
	s.bobSecret = key.Secret()

	bobHash, err := bcrypt.GenerateFromPassword([]byte("bob-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&domain.User{
		Email:            "bob@example.com",
		Username:         "bob",
		PasswordHash:     string(bobHash),
		Role:             domain.RoleClient,
		Active:           true,
		TwoFactorEnabled: true,
		TwoFactorSecret:  s.bobSecret,
	}).Error)
}

func (s *testSuite) request(t *testing.T, method, path string, body any, bearer string) (*httptest.ResponseRecorder, TestResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var parsed TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func (s *testSuite) login(t *testing.T, body map[string]any) (*httptest.ResponseRecorder, TestResponse) {
	return s.request(t, http.MethodPost, "/api/v1/auth/login", body, "")
}

func tokensFrom(t *testing.T, resp TestResponse) (access, refresh string) {
	t.Helper()
	tokens, ok := resp.Data["tokens"].(map[string]interface{})
	require.True(t, ok, "response must carry tokens")
	return tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func TestLogin(t *testing.T) {
	s := setupTestSuite(t)

	w, resp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	access, refresh := tokensFrom(t, resp)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	claims, err := s.jwtService.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "client", claims.Role)

	w, resp = s.login(t, map[string]any{"email": "alice@example.com", "password": "wrong-pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)

	// unknown account answers exactly like a wrong password
	w, resp = s.login(t, map[string]any{"email": "ghost@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestRefreshRotationAndReuseDetection(t *testing.T) {
	s := setupTestSuite(t)

	_, resp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	access1, refresh1 := tokensFrom(t, resp)

	// first rotation succeeds
	w, resp := s.request(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]any{"access_token": access1, "refresh_token": refresh1}, "")
	require.Equal(t, http.StatusOK, w.Code)
	access2, refresh2 := tokensFrom(t, resp)
	assert.NotEqual(t, refresh1, refresh2)

	// replaying the consumed token is reuse
	w, resp = s.request(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]any{"access_token": access1, "refresh_token": refresh1}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SESSION", resp.Error.Code)

	// reuse kills the whole family: the freshly rotated token is dead too
	w, resp = s.request(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]any{"access_token": access2, "refresh_token": refresh2}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SESSION", resp.Error.Code)
}

func TestTwoFactorLoginFlow(t *testing.T) {
	s := setupTestSuite(t)

	// step 1: password only returns a challenge, never tokens
	w, resp := s.login(t, map[string]any{"email": "bob@example.com", "password": "bob-pw"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data["requires_two_factor"])
	challengeToken, _ := resp.Data["challenge_token"].(string)
	require.NotEmpty(t, challengeToken)
	assert.Nil(t, resp.Data["tokens"])

	// a valid code without the challenge token is refused
	code, err := totp.GenerateCode(s.bobSecret, time.Now())
	require.NoError(t, err)
	w, resp = s.login(t, map[string]any{
		"email": "bob@example.com", "password": "bob-pw", "two_factor_code": code,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CHALLENGE", resp.Error.Code)

	// step 2: challenge + code issues tokens
	w, resp = s.login(t, map[string]any{
		"email": "bob@example.com", "password": "bob-pw",
		"two_factor_code": code, "challenge_token": challengeToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	access, refresh := tokensFrom(t, resp)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// the challenge was consumed; replaying it fails with a fresh code
	code2, err := totp.GenerateCode(s.bobSecret, time.Now())
	require.NoError(t, err)
	w, resp = s.login(t, map[string]any{
		"email": "bob@example.com", "password": "bob-pw",
		"two_factor_code": code2, "challenge_token": challengeToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CHALLENGE", resp.Error.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	s := setupTestSuite(t)

	_, resp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	access, refresh := tokensFrom(t, resp)

	w, _ := s.request(t, http.MethodPost, "/api/v1/auth/logout",
		map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// logout is idempotent
	w, _ = s.request(t, http.MethodPost, "/api/v1/auth/logout",
		map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = s.request(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]any{"access_token": access, "refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SESSION", resp.Error.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	s := setupTestSuite(t)

	_, resp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	access, refresh := tokensFrom(t, resp)

	w, _ := s.request(t, http.MethodPost, "/api/v1/auth/password",
		map[string]any{"current_password": "correct-pw", "new_password": "a-new-password-123"}, access)
	require.Equal(t, http.StatusOK, w.Code)

	// pre-reset refresh tokens are dead
	w, resp = s.request(t, http.MethodPost, "/api/v1/auth/refresh",
		map[string]any{"access_token": access, "refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_SESSION", resp.Error.Code)

	// the new password works
	w, _ = s.login(t, map[string]any{"email": "alice@example.com", "password": "a-new-password-123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedEndpointRequiresToken(t *testing.T) {
	s := setupTestSuite(t)

	w, resp := s.request(t, http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)

	_, loginResp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	access, _ := tokensFrom(t, loginResp)

	w, resp = s.request(t, http.MethodGet, "/api/v1/users/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	user, ok := resp.Data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")
}

func TestTwoFactorSetupFlow(t *testing.T) {
	s := setupTestSuite(t)

	_, loginResp := s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	access, _ := tokensFrom(t, loginResp)

	w, resp := s.request(t, http.MethodPost, "/api/v1/auth/2fa/setup",
		map[string]any{"password": "correct-pw"}, access)
	require.Equal(t, http.StatusOK, w.Code)

	secret, _ := resp.Data["secret"].(string)
	require.NotEmpty(t, secret)
	assert.Contains(t, resp.Data["provisioning_uri"], "otpauth://totp/")
	codes, ok := resp.Data["recovery_codes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, codes, 10)

	// 2FA is pending until one valid code is shown
	w, _ = s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	require.Equal(t, http.StatusOK, w.Code)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	w, _ = s.request(t, http.MethodPost, "/api/v1/auth/2fa/verify",
		map[string]any{"code": code}, access)
	require.Equal(t, http.StatusOK, w.Code)

	// now login demands a second factor
	w, resp = s.login(t, map[string]any{"email": "alice@example.com", "password": "correct-pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data["requires_two_factor"])
}
