package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventInitiated              PaymentEventType = "payment_initiated"
	PaymentEventOrderFailed            PaymentEventType = "order_create_failed"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected        PaymentEventType = "webhook_rejected"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventBookingConfirmFailed   PaymentEventType = "booking_confirmation_failed"
	PaymentEventRefundCompleted        PaymentEventType = "refund_completed"
	PaymentEventOrderExpired           PaymentEventType = "order_expired"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend         PaymentEventSource = "backend"
	PaymentSourceRazorpayWebhook PaymentEventSource = "razorpay_webhook"
	PaymentSourceRazorpayAPI     PaymentEventSource = "razorpay_api"
	PaymentSourceUser            PaymentEventSource = "user"
	PaymentSourceSystem          PaymentEventSource = "system"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	PaymentID         *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	RazorpayOrderID   *string    `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string    `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`

	// Event info
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking - CRITICAL for verification
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`
	GatewayEvent  *string `json:"gateway_event,omitempty" db:"gateway_event"`

	// Raw payloads
	RequestPayload JSONB   `json:"request_payload,omitempty" db:"request_payload"`
	RawBody        *string `json:"raw_body,omitempty" db:"raw_body"`

	// Error tracking
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	// Processing info
	ProcessingTimeMs *int    `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool    `json:"is_duplicate" db:"is_duplicate"`
	IdempotencyKey   *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	// Metadata
	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo JSONB   `json:"device_info,omitempty" db:"device_info"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
		IsDuplicate: false,
	}
}

// SetPayment links the audit to a stored payment row
func (pa *PaymentAudit) SetPayment(p *Payment) *PaymentAudit {
	if p == nil {
		return pa
	}
	id := p.ID
	pa.PaymentID = &id
	return pa.SetOrderID(p.RazorpayOrderID)
}

// SetOrderID sets the gateway order id
func (pa *PaymentAudit) SetOrderID(orderID string) *PaymentAudit {
	if orderID != "" {
		pa.RazorpayOrderID = &orderID
	}
	return pa
}

// SetGatewayPaymentID sets the gateway payment id
func (pa *PaymentAudit) SetGatewayPaymentID(paymentID string) *PaymentAudit {
	if paymentID != "" {
		pa.RazorpayPaymentID = &paymentID
	}
	return pa
}

// SetAmounts sets and verifies amounts - returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	// Compare with tolerance for floating point
	const tolerance = 0.01
	match := abs(expected-received) < tolerance
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus records the payment status after the event
func (pa *PaymentAudit) SetPaymentStatus(status PaymentStatus) *PaymentAudit {
	s := string(status)
	pa.PaymentStatus = &s
	return pa
}

// SetGatewayEvent records the webhook event name
func (pa *PaymentAudit) SetGatewayEvent(event string) *PaymentAudit {
	pa.GatewayEvent = &event
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code *string) *PaymentAudit {
	pa.ErrorMessage = &message
	pa.ErrorCode = code
	return pa
}

// SetRawBody stores the raw response body before parsing
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetRequestPayload sets the request payload sent
func (pa *PaymentAudit) SetRequestPayload(payload map[string]interface{}) *PaymentAudit {
	pa.RequestPayload = JSONB(payload)
	return pa
}

// RequestMeta describes the HTTP caller behind an event
type RequestMeta struct {
	IP         string
	UserAgent  string
	DeviceInfo JSONB
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(meta RequestMeta) *PaymentAudit {
	if meta.IP != "" {
		pa.IPAddress = &meta.IP
	}
	if meta.UserAgent != "" {
		pa.UserAgent = &meta.UserAgent
	}
	if len(meta.DeviceInfo) > 0 {
		pa.DeviceInfo = meta.DeviceInfo
	}
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	now := time.Now()
	pa.ProcessedAt = &now
	return pa
}

// MarkAsDuplicate marks this event as a duplicate
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

// SetIdempotencyKey sets the idempotency key
func (pa *PaymentAudit) SetIdempotencyKey(key string) *PaymentAudit {
	pa.IdempotencyKey = &key
	return pa
}

// abs returns absolute value of float64
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
