package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentspace/internal/pkg/response"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler with injected service
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/password", h.ChangePassword)
		authGroup.POST("/2fa/setup", h.SetupTwoFactor)
		authGroup.POST("/2fa/verify", h.VerifyTwoFactorSetup)
		authGroup.POST("/2fa/disable", h.DisableTwoFactor)
	}
	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
	}
}

// Login authenticates by email and password, handling both halves of the
// 2FA handshake: the first call returns a challenge token, the second call
// carries the challenge token plus a TOTP or recovery code.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}

	result, err := h.service.Authenticate(c.Request.Context(), req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
		case errors.Is(err, ErrAccountLocked):
			response.Error(c, http.StatusUnauthorized, "ACCOUNT_LOCKED", "Too many failed attempts, try again later")
		case errors.Is(err, ErrInvalidChallenge):
			response.Error(c, http.StatusUnauthorized, "INVALID_CHALLENGE", "Two-factor challenge is missing or expired")
		case errors.Is(err, ErrInvalidTwoFactor):
			response.Error(c, http.StatusUnauthorized, "INVALID_TWO_FACTOR", "Two-factor code is incorrect")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	userPublic := UserPublic{
		ID:       result.User.ID,
		Email:    result.User.Email,
		Username: result.User.Username,
		Role:     string(result.User.Role),
	}

	if result.RequiresTwoFactor {
		response.Success(c, http.StatusOK, gin.H{
			"requires_two_factor": true,
			"challenge_token":     result.ChallengeToken,
			"user":                userPublic,
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": userPublic,
		"tokens": TokenPair{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			ExpiresAt:    result.ExpiresAt,
		},
	})
}

// Refresh exchanges an expired access token plus a live refresh token for
// a fresh pair. Reuse detection is indistinguishable from expiry here.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.RefreshSession(c.Request.Context(), req.AccessToken, req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrInvalidSession) {
			response.Error(c, http.StatusUnauthorized, "INVALID_SESSION", "Session is no longer valid, sign in again")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": TokenPair{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			ExpiresAt:    result.ExpiresAt,
		},
	})
}

func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.RevokeSession(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "PASSWORD_CHANGE_FAILED", "Failed to change password")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "password changed, all sessions revoked"})
}

func (h *Handler) SetupTwoFactor(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req TwoFactorSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	setup, err := h.service.SetupTwoFactor(c.Request.Context(), userID, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "TWO_FACTOR_SETUP_FAILED", "Failed to set up two-factor authentication")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"secret":           setup.Secret,
		"provisioning_uri": setup.ProvisioningURI,
		"recovery_codes":   setup.RecoveryCodes,
	})
}

func (h *Handler) VerifyTwoFactorSetup(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req TwoFactorVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.VerifyTwoFactorSetup(c.Request.Context(), userID, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrTwoFactorNotSetup):
			response.Error(c, http.StatusBadRequest, "TWO_FACTOR_NOT_SETUP", "Run setup before verifying")
		case errors.Is(err, ErrInvalidTwoFactor):
			response.Error(c, http.StatusUnauthorized, "INVALID_TWO_FACTOR", "Two-factor code is incorrect")
		default:
			response.Error(c, http.StatusInternalServerError, "TWO_FACTOR_VERIFY_FAILED", "Failed to verify two-factor setup")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "two-factor authentication enabled"})
}

func (h *Handler) DisableTwoFactor(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req TwoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.DisableTwoFactor(c.Request.Context(), userID, req.Password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "TWO_FACTOR_DISABLE_FAILED", "Failed to disable two-factor authentication")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "two-factor authentication disabled"})
}

func (h *Handler) GetMe(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	userID := userIDAny.(int64)

	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}
