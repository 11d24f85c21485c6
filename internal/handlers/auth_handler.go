package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/middleware"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// Authenticator is the account and session API
type Authenticator interface {
	Register(ctx context.Context, req services.RegisterRequest, meta models.RequestMeta) (*services.AuthResult, error)
	Login(ctx context.Context, login, password string, meta models.RequestMeta) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta models.RequestMeta) (*services.AuthResult, error)
	Logout(ctx context.Context, userID uuid.UUID, refreshToken string, all bool, meta models.RequestMeta) error
	Me(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth   Authenticator
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// LoginRequest accepts a username or an email in Username
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents the request to refresh access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest represents the logout request
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
	LogoutAll    bool   `json:"all"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, "register", err)
		return
	}
	c.JSON(http.StatusCreated, authResponse(result))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Username and password are required", "INVALID_REQUEST")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}
	c.JSON(http.StatusOK, authResponse(result))
}

// RefreshToken handles POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Refresh token is required", "INVALID_REQUEST")
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, "refresh_token", err)
		return
	}
	c.JSON(http.StatusOK, authResponse(result))
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required", "MISSING_USER_CONTEXT")
		return
	}

	var req LogoutRequest
	// empty body means "this session only, token unknown"
	_ = c.ShouldBindJSON(&req)

	if err := h.auth.Logout(c.Request.Context(), userCtx.UserID, req.RefreshToken, req.LogoutAll, requestMeta(c)); err != nil {
		respondError(c, h.logger, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required", "MISSING_USER_CONTEXT")
		return
	}

	profile, err := h.auth.Me(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, "me", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}

func authResponse(r *services.AuthResult) gin.H {
	return gin.H{
		"success":      true,
		"token":        r.Token,
		"refreshToken": r.RefreshToken,
		"expiresAt":    r.ExpiresAt,
		"user":         r.User,
	}
}
