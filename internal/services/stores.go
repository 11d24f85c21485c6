package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/models"
)

// PaymentStore is the payment persistence the services depend on.
// *database.PaymentRepository satisfies it.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkFailedIfPending(ctx context.Context, orderID, reason string) (bool, error)
	MarkFailed(ctx context.Context, orderID, paymentID, reason string) (bool, error)
	MarkCaptured(ctx context.Context, orderID, paymentID, method string) (bool, error)
	MarkAuthorized(ctx context.Context, orderID, paymentID, method string) (bool, error)
	MarkRefunded(ctx context.Context, orderID, refundID string, amount float64) (bool, error)
	ExpireCreated(ctx context.Context, cutoff time.Time, reason string) ([]string, error)
	ListCapturedWithoutBooking(ctx context.Context, capturedBefore time.Time, limit int) ([]*models.Payment, error)
}

// BookingStore is satisfied by *database.BookingRepository
type BookingStore interface {
	CaptureAndBook(ctx context.Context, orderID, paymentID, signature string, build database.BookingBuilder) (*database.CaptureResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetBusBooking(ctx context.Context, id uuid.UUID) (*models.BusBooking, error)
}

// AuditStore is satisfied by *database.PaymentAuditRepository
type AuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	CheckDuplicate(ctx context.Context, orderID string, eventType models.PaymentEventType, idempotencyKey string) (bool, error)
}

// UserStore is satisfied by *database.UserRepository
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

var (
	_ PaymentStore = (*database.PaymentRepository)(nil)
	_ BookingStore = (*database.BookingRepository)(nil)
	_ AuditStore   = (*database.PaymentAuditRepository)(nil)
	_ UserStore    = (*database.UserRepository)(nil)
	_ OrderGateway = (*RazorpayService)(nil)
)
