package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/internal/utils"
)

// AuditService records account security events in audit_logs
type AuditService struct {
	db database.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEvent represents a security event to be logged
type AuditEvent struct {
	UserID     *uuid.UUID // nil for events before authentication
	Action     string     // register, login, login_failed, token_refresh, logout
	EntityType string
	IPAddress  string
	UserAgent  string
	Details    models.JSONB
}

// LogRegister logs a new account
func (s *AuditService) LogRegister(ctx context.Context, userID uuid.UUID, meta models.RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     "register",
		EntityType: "user",
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    withDevice(nil, meta.UserAgent),
	})
}

// LogLogin logs a successful login
func (s *AuditService) LogLogin(ctx context.Context, userID uuid.UUID, meta models.RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     "login",
		EntityType: "user",
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    withDevice(nil, meta.UserAgent),
	})
}

// LogLoginFailed logs a rejected login attempt
func (s *AuditService) LogLoginFailed(ctx context.Context, login string, meta models.RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		Action:     "login_failed",
		EntityType: "user",
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    withDevice(models.JSONB{"login": login}, meta.UserAgent),
	})
}

// LogTokenRefresh logs a refresh token exchange
func (s *AuditService) LogTokenRefresh(ctx context.Context, userID uuid.UUID, success bool, meta models.RequestMeta) error {
	action := "token_refresh_success"
	if !success {
		action = "token_refresh_failed"
	}
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     action,
		EntityType: "token",
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    withDevice(models.JSONB{"success": success}, meta.UserAgent),
	})
}

// LogLogout logs a logout
func (s *AuditService) LogLogout(ctx context.Context, userID uuid.UUID, logoutAll bool, meta models.RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		UserID:     &userID,
		Action:     "logout",
		EntityType: "user",
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    withDevice(models.JSONB{"logout_all": logoutAll}, meta.UserAgent),
	})
}

func withDevice(details models.JSONB, userAgent string) models.JSONB {
	if details == nil {
		details = models.JSONB{}
	}
	details["device_info"] = utils.ParseUserAgent(userAgent).Map()
	return details
}

func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.UserID,
		event.Action,
		event.EntityType,
		event.IPAddress,
		event.UserAgent,
		event.Details,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// NopSecurityAuditor discards security events when ENABLE_AUDIT_LOGGING is off
type NopSecurityAuditor struct{}

func (NopSecurityAuditor) LogRegister(context.Context, uuid.UUID, models.RequestMeta) error { return nil }
func (NopSecurityAuditor) LogLogin(context.Context, uuid.UUID, models.RequestMeta) error    { return nil }
func (NopSecurityAuditor) LogLoginFailed(context.Context, string, models.RequestMeta) error { return nil }
func (NopSecurityAuditor) LogTokenRefresh(context.Context, uuid.UUID, bool, models.RequestMeta) error {
	return nil
}
func (NopSecurityAuditor) LogLogout(context.Context, uuid.UUID, bool, models.RequestMeta) error {
	return nil
}
