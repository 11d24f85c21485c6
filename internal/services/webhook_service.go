package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Razorpay webhook events handled here
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventPaymentRefunded   = "payment.refunded"
	EventRefundProcessed   = "refund.processed"
)

// WebhookRequest is one webhook delivery as received over HTTP
type WebhookRequest struct {
	Body      []byte
	Signature string // X-Razorpay-Signature
	EventID   string // X-Razorpay-Event-Id, repeated on redelivery
	Meta      models.RequestMeta
}

type webhookEnvelope struct {
	Event     string         `json:"event"`
	AccountID string         `json:"account_id"`
	CreatedAt int64          `json:"created_at"`
	Payload   webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment *struct {
		Entity paymentEntity `json:"entity"`
	} `json:"payment"`
	Refund *struct {
		Entity refundEntity `json:"entity"`
	} `json:"refund"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	AmountRefunded   int64  `json:"amount_refunded"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// WebhookService reconciles payment state from gateway notifications.
// It never creates bookings.
type WebhookService struct {
	payments      PaymentStore
	audit         *PaymentAuditService
	webhookSecret string
	logger        *logrus.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(payments PaymentStore, audit *PaymentAuditService, webhookSecret string, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		payments:      payments,
		audit:         audit,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// HandleWebhook verifies and applies one delivery. Only storage failures
// return an error the gateway should retry on.
func (s *WebhookService) HandleWebhook(ctx context.Context, req WebhookRequest) error {
	startTime := time.Now()

	if !VerifyWebhookSignature(s.webhookSecret, req.Body, req.Signature) {
		s.logger.WithFields(logrus.Fields{
			"ip":       req.Meta.IP,
			"event_id": req.EventID,
		}).Warn("Webhook signature mismatch")
		code := "INVALID_SIGNATURE"
		audit := models.NewPaymentAudit(models.PaymentEventWebhookRejected, models.PaymentSourceRazorpayWebhook).
			SetRawBody(string(req.Body)).
			SetError("webhook signature mismatch", &code).
			SetMetadata(req.Meta)
		s.audit.Record(ctx, audit)
		return ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return invalid("body", "Webhook payload is not valid JSON")
	}

	var entity paymentEntity
	if env.Payload.Payment != nil {
		entity = env.Payload.Payment.Entity
	}

	fields := logrus.Fields{
		"event":      env.Event,
		"event_id":   req.EventID,
		"order_id":   entity.OrderID,
		"payment_id": entity.ID,
	}

	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceRazorpayWebhook).
		SetOrderID(entity.OrderID).
		SetGatewayPaymentID(entity.ID).
		SetGatewayEvent(env.Event).
		SetRawBody(string(req.Body)).
		SetMetadata(req.Meta)

	// the event id is only stored once the event is applied, so a delivery
	// that failed here is processed again on retry
	keyed := req.EventID != "" && entity.OrderID != ""
	if keyed && s.audit.Seen(ctx, entity.OrderID, models.PaymentEventWebhookReceived, req.EventID) {
		s.logger.WithFields(fields).Info("Webhook event already processed")
		return nil
	}

	var err error
	switch env.Event {
	case EventPaymentCaptured:
		err = s.onCaptured(ctx, entity, req.Meta)
	case EventPaymentAuthorized:
		err = s.onAuthorized(ctx, entity)
	case EventPaymentFailed:
		err = s.onFailed(ctx, entity, req.Meta)
	case EventRefundProcessed, EventPaymentRefunded:
		var refund refundEntity
		if env.Payload.Refund != nil {
			refund = env.Payload.Refund.Entity
		}
		err = s.onRefunded(ctx, entity, refund, req.Meta)
	default:
		s.logger.WithFields(fields).Info("Ignoring unhandled webhook event")
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Failed to apply webhook event")
		audit.SetError(err.Error(), nil)
		s.audit.Record(ctx, audit)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if keyed {
		audit.SetIdempotencyKey(req.EventID)
	}
	s.audit.Record(ctx, audit.SetProcessingTime(startTime))

	s.logger.WithFields(fields).WithField("duration_ms", time.Since(startTime).Milliseconds()).Info("Webhook processed")
	return nil
}

func (s *WebhookService) onCaptured(ctx context.Context, e paymentEntity, meta models.RequestMeta) error {
	if e.OrderID == "" {
		s.logger.WithField("payment_id", e.ID).Warn("payment.captured without order id")
		return nil
	}
	p, err := s.payments.GetByOrderID(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if p == nil {
		s.logger.WithField("order_id", e.OrderID).Warn("payment.captured for unknown order")
		return nil
	}

	updated, err := s.payments.MarkCaptured(ctx, e.OrderID, e.ID, e.Method)
	if err != nil {
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceRazorpayWebhook).
		SetPayment(p).
		SetGatewayPaymentID(e.ID).
		SetGatewayEvent(EventPaymentCaptured).
		SetPaymentStatus(models.PaymentStatusCaptured).
		SetMetadata(meta)
	if !audit.SetAmounts(p.Amount, float64(e.Amount)/100, p.Currency) {
		s.logger.WithFields(logrus.Fields{
			"order_id": e.OrderID,
			"expected": p.Amount,
			"received": float64(e.Amount) / 100,
		}).Warn("Captured amount differs from order amount")
	}
	if !updated {
		current, err := s.payments.GetByOrderID(ctx, e.OrderID)
		if err != nil {
			return err
		}
		if current != nil && current.Status != models.PaymentStatusCaptured {
			// failed and refunded payments are never captured again
			s.logger.WithFields(logrus.Fields{
				"order_id": e.OrderID,
				"status":   current.Status,
			}).Warn("payment.captured for a payment that can no longer be captured")
			code := "NOT_CAPTURABLE"
			audit.SetPaymentStatus(current.Status).
				SetError(fmt.Sprintf("capture ignored, payment is %s", current.Status), &code)
		}
		audit.MarkAsDuplicate()
	}
	s.audit.Record(ctx, audit)
	return nil
}

func (s *WebhookService) onAuthorized(ctx context.Context, e paymentEntity) error {
	if e.OrderID == "" {
		return nil
	}
	updated, err := s.payments.MarkAuthorized(ctx, e.OrderID, e.ID, e.Method)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"order_id": e.OrderID,
		"updated":  updated,
	}).Debug("payment.authorized applied")
	return nil
}

func (s *WebhookService) onFailed(ctx context.Context, e paymentEntity, meta models.RequestMeta) error {
	if e.OrderID == "" {
		return nil
	}
	reason := e.ErrorDescription
	if reason == "" {
		reason = ReasonPaymentFailed
	}

	updated, err := s.payments.MarkFailed(ctx, e.OrderID, e.ID, reason)
	if err != nil {
		return err
	}
	if !updated {
		s.logger.WithField("order_id", e.OrderID).Warn("payment.failed for unknown order")
		return nil
	}

	var code *string
	if e.ErrorCode != "" {
		code = &e.ErrorCode
	}
	audit := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceRazorpayWebhook).
		SetOrderID(e.OrderID).
		SetGatewayPaymentID(e.ID).
		SetGatewayEvent(EventPaymentFailed).
		SetPaymentStatus(models.PaymentStatusFailed).
		SetError(reason, code).
		SetMetadata(meta)
	s.audit.Record(ctx, audit)
	return nil
}

func (s *WebhookService) onRefunded(ctx context.Context, e paymentEntity, r refundEntity, meta models.RequestMeta) error {
	if e.OrderID == "" {
		s.logger.WithField("refund_id", r.ID).Warn("Refund event without payment order id")
		return nil
	}
	amountMinor := r.Amount
	if amountMinor == 0 {
		amountMinor = e.AmountRefunded
	}
	amount := float64(amountMinor) / 100

	updated, err := s.payments.MarkRefunded(ctx, e.OrderID, r.ID, amount)
	if err != nil {
		return err
	}

	audit := models.NewPaymentAudit(models.PaymentEventRefundCompleted, models.PaymentSourceRazorpayWebhook).
		SetOrderID(e.OrderID).
		SetGatewayPaymentID(e.ID).
		SetPaymentStatus(models.PaymentStatusRefunded).
		SetRequestPayload(map[string]interface{}{"refund_id": r.ID, "amount": amount}).
		SetMetadata(meta)
	if !updated {
		audit.MarkAsDuplicate()
	}
	s.audit.Record(ctx, audit)
	return nil
}
