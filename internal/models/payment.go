package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a gateway order
type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// BookingType identifies what a payment pays for
type BookingType string

const (
	BookingTypeHomestay BookingType = "homestay"
	BookingTypeBus      BookingType = "bus"
	BookingTypePackage  BookingType = "package"
)

// IsValid reports whether t is a known booking type
func (t BookingType) IsValid() bool {
	switch t {
	case BookingTypeHomestay, BookingTypeBus, BookingTypePackage:
		return true
	}
	return false
}

// CustomerDetails is the contact snapshot taken at order creation
type CustomerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Value implements the driver.Valuer interface
func (c CustomerDetails) Value() (driver.Value, error) {
	bytes, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (c *CustomerDetails) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = CustomerDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CustomerDetails", value)
	}
}

// Payment tracks one gateway order from creation to capture or failure
type Payment struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	RazorpayOrderID   string        `json:"razorpay_order_id" db:"razorpay_order_id"`
	RazorpayPaymentID *string       `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	RazorpaySignature *string       `json:"-" db:"razorpay_signature"`
	Amount            float64       `json:"amount" db:"amount"`
	AmountMinor       int64         `json:"amount_minor" db:"amount_minor"`
	Currency          string        `json:"currency" db:"currency"`
	Receipt           string        `json:"receipt" db:"receipt"`
	Status            PaymentStatus `json:"status" db:"status"`
	BookingType       BookingType   `json:"booking_type" db:"booking_type"`

	// Forward reference to the booking created on capture
	BookingID        *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	BookingReference *string    `json:"booking_reference,omitempty" db:"booking_reference"`

	CustomerDetails CustomerDetails `json:"customer_details" db:"customer_details"`
	BookingDetails  RawJSON         `json:"booking_details,omitempty" db:"booking_details"`
	UserID          *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`

	PaymentMethod *string  `json:"payment_method,omitempty" db:"payment_method"`
	FailureReason *string  `json:"failure_reason,omitempty" db:"failure_reason"`
	RefundID      *string  `json:"refund_id,omitempty" db:"refund_id"`
	RefundAmount  *float64 `json:"refund_amount,omitempty" db:"refund_amount"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	CapturedAt *time.Time `json:"captured_at,omitempty" db:"captured_at"`
}

// HasBooking reports whether a booking was already created for this payment
func (p *Payment) HasBooking() bool {
	return p.BookingID != nil
}

// IsSettled reports whether money has moved and the payment must not be failed
func (p *Payment) IsSettled() bool {
	return p.Status == PaymentStatusCaptured || p.Status == PaymentStatusRefunded
}

// PaymentStatusView is the public status projection
type PaymentStatusView struct {
	Status      PaymentStatus `json:"status"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	BookingType BookingType   `json:"bookingType"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// StatusView returns the public status projection
func (p *Payment) StatusView() PaymentStatusView {
	return PaymentStatusView{
		Status:      p.Status,
		Amount:      p.Amount,
		Currency:    p.Currency,
		BookingType: p.BookingType,
		CreatedAt:   p.CreatedAt,
	}
}
