package services

import (
	"errors"
	"fmt"

	"github.com/ruralretreats/tourism-backend/internal/database"
)

var (
	// ErrInvalidRequest is the root of every caller input error
	ErrInvalidRequest = errors.New("invalid request")

	// ErrGateway means the payment gateway could not be reached or refused the call
	ErrGateway = errors.New("payment gateway error")

	// ErrInvalidSignature means an HMAC did not match
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrPaymentNotFound means no payment exists for the order id
	ErrPaymentNotFound = database.ErrPaymentNotFound

	// ErrPaymentNotCapturable means the payment left the capturable states
	ErrPaymentNotCapturable = database.ErrPaymentNotCapturable

	// ErrDuplicateOrder means the gateway handed out an order id we already stored
	ErrDuplicateOrder = database.ErrDuplicateOrder

	// ErrPersistence wraps storage failures that are not the caller's fault
	ErrPersistence = errors.New("persistence error")

	// ErrBookingNotFound means the payment has no booking yet
	ErrBookingNotFound = errors.New("booking not found")

	// ErrReceiptForbidden means the caller is neither the booking owner nor
	// holds its reference
	ErrReceiptForbidden = errors.New("receipt access denied")
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = database.ErrDuplicateUser
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError carries the user-facing message for a rejected input
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Unwrap lets errors.Is(err, ErrInvalidRequest) match
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
