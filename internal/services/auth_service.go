package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/utils"
	"github.com/ruralretreats/tourism-backend/pkg/jwt"
	"github.com/ruralretreats/tourism-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TokenStore is satisfied by *database.RefreshTokenRepository
type TokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token string, meta models.RequestMeta, deviceType string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

var _ TokenStore = (*database.RefreshTokenRepository)(nil)

// SecurityAuditor is satisfied by *AuditService
type SecurityAuditor interface {
	LogRegister(ctx context.Context, userID uuid.UUID, meta models.RequestMeta) error
	LogLogin(ctx context.Context, userID uuid.UUID, meta models.RequestMeta) error
	LogLoginFailed(ctx context.Context, login string, meta models.RequestMeta) error
	LogTokenRefresh(ctx context.Context, userID uuid.UUID, success bool, meta models.RequestMeta) error
	LogLogout(ctx context.Context, userID uuid.UUID, logoutAll bool, meta models.RequestMeta) error
}

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	User         models.Profile `json:"user"`
}

// AuthService handles traveller accounts and sessions
type AuthService struct {
	users              UserStore
	tokens             TokenStore
	jwtService         *jwt.Service
	auditor            SecurityAuditor
	bcryptCost         int
	refreshTokenExpiry time.Duration
	phoneValidator     *validator.PhoneValidator
	logger             *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserStore,
	tokens TokenStore,
	jwtService *jwt.Service,
	auditor SecurityAuditor,
	bcryptCost int,
	refreshTokenExpiry time.Duration,
	logger *logrus.Logger,
) *AuthService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:              users,
		tokens:             tokens,
		jwtService:         jwtService,
		auditor:            auditor,
		bcryptCost:         bcryptCost,
		refreshTokenExpiry: refreshTokenExpiry,
		phoneValidator:     validator.NewPhoneValidator(),
		logger:             logger,
	}
}

// Register creates an account and signs the user in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, meta models.RequestMeta) (*AuthResult, error) {
	username, err := validator.ValidateUsername(req.Username)
	if err != nil {
		return nil, invalid("username", err.Error())
	}
	email, err := validator.ValidateEmail(req.Email)
	if err != nil {
		return nil, invalid("email", err.Error())
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		return nil, invalid("password", err.Error())
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		Notifications: true,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = &name
	}
	if req.Phone != "" {
		phone, err := s.phoneValidator.Validate(req.Phone)
		if err != nil {
			return nil, invalid("phone", err.Error())
		}
		user.Phone = &phone
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.audit(func() error { return s.auditor.LogRegister(ctx, user.ID, meta) })
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")

	return s.issue(ctx, user, meta)
}

// Login authenticates by username or email
func (s *AuthService) Login(ctx context.Context, login, password string, meta models.RequestMeta) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, invalid("", "Username and password are required")
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.audit(func() error { return s.auditor.LogLoginFailed(ctx, login, meta) })
		return nil, ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	s.audit(func() error { return s.auditor.LogLogin(ctx, user.ID, meta) })

	return s.issue(ctx, user, meta)
}

// Refresh rotates a refresh token. A token that was already used is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta models.RequestMeta) (*AuthResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	stored, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if stored == nil || stored.UserID != claims.UserID || !stored.IsUsable(time.Now()) {
		s.audit(func() error { return s.auditor.LogTokenRefresh(ctx, claims.UserID, false, meta) })
		return nil, ErrInvalidToken
	}

	revoked, err := s.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !revoked {
		// lost a race with another refresh of the same token
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	s.audit(func() error { return s.auditor.LogTokenRefresh(ctx, user.ID, true, meta) })
	return s.issue(ctx, user, meta)
}

// Logout revokes one refresh token, or every token of the user when all is set
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, refreshToken string, all bool, meta models.RequestMeta) error {
	if all {
		if _, err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	} else if refreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err != nil || claims.UserID != userID {
			return ErrInvalidToken
		}
		if _, err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	s.audit(func() error { return s.auditor.LogLogout(ctx, userID, all, meta) })
	return nil
}

// Me returns the profile of the authenticated user
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	profile := user.ToProfile()
	return &profile, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, meta models.RequestMeta) (*AuthResult, error) {
	pair, err := s.jwtService.GeneratePair(user.ID, user.Username, user.Roles)
	if err != nil {
		return nil, err
	}

	deviceType := utils.ParseUserAgent(meta.UserAgent).DeviceType
	expiresAt := time.Now().Add(s.refreshTokenExpiry)
	if err := s.tokens.Store(ctx, user.ID, pair.RefreshToken, meta, deviceType, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &AuthResult{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		User:         user.ToProfile(),
	}, nil
}

// audit runs a best-effort security audit write
func (s *AuthService) audit(write func() error) {
	if s.auditor == nil {
		return
	}
	if err := write(); err != nil {
		s.logger.WithError(err).Warn("Failed to write security audit event")
	}
}
