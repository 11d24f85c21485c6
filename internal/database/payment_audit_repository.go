package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, payment_id, razorpay_order_id, razorpay_payment_id,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, gateway_event,
			request_payload, raw_body,
			error_message, error_code,
			processing_time_ms, is_duplicate, idempotency_key,
			ip_address, user_agent, device_info,
			created_at, processed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10,
			$11, $12,
			$13, $14,
			$15, $16,
			$17, $18, $19,
			$20, $21, $22,
			$23, $24
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.PaymentID, audit.RazorpayOrderID, audit.RazorpayPaymentID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.GatewayEvent,
		audit.RequestPayload, audit.RawBody,
		audit.ErrorMessage, audit.ErrorCode,
		audit.ProcessingTimeMs, audit.IsDuplicate, audit.IdempotencyKey,
		audit.IPAddress, audit.UserAgent, audit.DeviceInfo,
		audit.CreatedAt, audit.ProcessedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_id":   deref(audit.RazorpayOrderID),
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"order_id":   deref(audit.RazorpayOrderID),
	}).Debug("Payment audit logged")

	return nil
}

// CheckDuplicate reports whether an event with this idempotency key was already recorded
func (r *PaymentAuditRepository) CheckDuplicate(ctx context.Context, orderID string, eventType models.PaymentEventType, idempotencyKey string) (bool, error) {
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("%s-%s", orderID, eventType)
	}

	var count int
	query := `
		SELECT COUNT(*) FROM payment_audits
		WHERE razorpay_order_id = $1
		AND event_type = $2
		AND idempotency_key = $3
		AND is_duplicate = FALSE`

	err := r.db.GetContext(ctx, &count, query, orderID, eventType, idempotencyKey)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return count > 0, nil
}

// GetByOrderID retrieves all audit entries for a gateway order id
func (r *PaymentAuditRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE razorpay_order_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by order ID: %w", err)
	}

	return audits, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
