package services

import (
	"context"

	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditService writes payment audit rows. Audit writes never fail the
// payment flow: errors are logged and swallowed.
type PaymentAuditService struct {
	store  AuditStore
	logger *logrus.Logger
}

// NewPaymentAuditService creates a new PaymentAuditService
func NewPaymentAuditService(store AuditStore, logger *logrus.Logger) *PaymentAuditService {
	return &PaymentAuditService{store: store, logger: logger}
}

// Record writes an audit row
func (s *PaymentAuditService) Record(ctx context.Context, audit *models.PaymentAudit) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Log(context.WithoutCancel(ctx), audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_id":   stringValue(audit.RazorpayOrderID),
		}).Warn("Failed to write payment audit")
	}
}

// Seen reports whether a row with this idempotency key was already written.
// A failed lookup counts as not seen.
func (s *PaymentAuditService) Seen(ctx context.Context, orderID string, eventType models.PaymentEventType, key string) bool {
	if s == nil || s.store == nil {
		return false
	}
	dup, err := s.store.CheckDuplicate(ctx, orderID, eventType, key)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("Audit duplicate check failed")
		return false
	}
	return dup
}

// RecordOnce writes the row unless one with the same idempotency key exists.
// It returns true when a row was written.
func (s *PaymentAuditService) RecordOnce(ctx context.Context, audit *models.PaymentAudit, key string) bool {
	if s == nil || s.store == nil {
		return false
	}
	if s.Seen(ctx, stringValue(audit.RazorpayOrderID), audit.EventType, key) {
		return false
	}
	audit.SetIdempotencyKey(key)
	s.Record(ctx, audit)
	return true
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
