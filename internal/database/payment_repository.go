package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ruralretreats/tourism-backend/internal/models"
)

const paymentColumns = `
	id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
	amount, amount_minor, currency, receipt, status, booking_type,
	booking_id, booking_reference, customer_details, booking_details, user_id,
	payment_method, failure_reason, refund_id, refund_amount,
	created_at, updated_at, captured_at`

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment in created status.
// A second row for the same gateway order id returns ErrDuplicateOrder.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PaymentStatusCreated
	}

	query := `
		INSERT INTO payments (
			id, razorpay_order_id, amount, amount_minor, currency, receipt,
			status, booking_type, customer_details, booking_details, user_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.RazorpayOrderID, p.Amount, p.AmountMinor, p.Currency, p.Receipt,
		p.Status, p.BookingType, p.CustomerDetails, p.BookingDetails, p.UserID,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, p.RazorpayOrderID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByOrderID returns the payment for a gateway order id, or nil if none exists
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE razorpay_order_id = $1`

	err := r.db.GetContext(ctx, &p, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// MarkFailedIfPending fails a payment that has not been authorized or settled.
// Returns whether a row changed.
func (r *PaymentRepository) MarkFailedIfPending(ctx context.Context, orderID, reason string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE razorpay_order_id = $1 AND status IN ('created', 'authorized')`

	return r.execAffected(ctx, "mark payment failed", query, orderID, reason)
}

// MarkFailed fails a payment whatever its current status (gateway failure events)
func (r *PaymentRepository) MarkFailed(ctx context.Context, orderID, paymentID, reason string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed', failure_reason = $2,
		    razorpay_payment_id = COALESCE(NULLIF($3, ''), razorpay_payment_id),
		    updated_at = NOW()
		WHERE razorpay_order_id = $1`

	return r.execAffected(ctx, "mark payment failed", query, orderID, reason, paymentID)
}

// MarkCaptured moves an open (created or authorized) payment to captured.
// Returns false when another writer got there first or the payment already
// failed or was refunded.
func (r *PaymentRepository) MarkCaptured(ctx context.Context, orderID, paymentID, method string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'captured', razorpay_payment_id = $2,
		    payment_method = NULLIF($3, ''), failure_reason = NULL,
		    captured_at = NOW(), updated_at = NOW()
		WHERE razorpay_order_id = $1 AND status IN ('created', 'authorized')`

	return r.execAffected(ctx, "mark payment captured", query, orderID, paymentID, method)
}

// MarkAuthorized moves a created payment to authorized
func (r *PaymentRepository) MarkAuthorized(ctx context.Context, orderID, paymentID, method string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'authorized', razorpay_payment_id = $2,
		    payment_method = NULLIF($3, ''), updated_at = NOW()
		WHERE razorpay_order_id = $1 AND status = 'created'`

	return r.execAffected(ctx, "mark payment authorized", query, orderID, paymentID, method)
}

// MarkRefunded moves a captured payment to refunded
func (r *PaymentRepository) MarkRefunded(ctx context.Context, orderID, refundID string, amount float64) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'refunded', refund_id = $2, refund_amount = $3, updated_at = NOW()
		WHERE razorpay_order_id = $1 AND status = 'captured'`

	return r.execAffected(ctx, "mark payment refunded", query, orderID, refundID, amount)
}

// ExpireCreated fails created payments older than cutoff and returns their order ids
func (r *PaymentRepository) ExpireCreated(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	var orderIDs []string
	query := `
		UPDATE payments
		SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE status = 'created' AND created_at < $1
		RETURNING razorpay_order_id`

	if err := r.db.SelectContext(ctx, &orderIDs, query, cutoff, reason); err != nil {
		return nil, fmt.Errorf("failed to expire payments: %w", err)
	}
	return orderIDs, nil
}

// ListCapturedWithoutBooking returns captured payments that never got a booking
func (r *PaymentRepository) ListCapturedWithoutBooking(ctx context.Context, capturedBefore time.Time, limit int) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'captured' AND booking_id IS NULL AND captured_at < $1
		ORDER BY captured_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &payments, query, capturedBefore, limit); err != nil {
		return nil, fmt.Errorf("failed to list captured payments without booking: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) execAffected(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	return rows > 0, nil
}
