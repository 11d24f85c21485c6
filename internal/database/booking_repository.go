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

// NewBooking carries exactly one of Booking or BusBooking
type NewBooking struct {
	Booking    *models.Booking
	BusBooking *models.BusBooking
}

// BookingBuilder builds the booking record for a payment that is being captured
type BookingBuilder func(p *models.Payment) (*NewBooking, error)

// CaptureResult is the outcome of CaptureAndBook
type CaptureResult struct {
	Payment       *models.Payment
	Booking       models.ConfirmedBooking
	AlreadyBooked bool
}

// BookingRepository handles homestay, package and bus booking persistence
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CaptureAndBook marks the payment captured, creates its booking and links it,
// all in one transaction. The payment row is locked for the duration so
// concurrent verifications serialise; the loser sees booking_id set and
// gets the existing booking back.
func (r *BookingRepository) CaptureAndBook(ctx context.Context, orderID, paymentID, signature string, build BookingBuilder) (*CaptureResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var p models.Payment
	err = tx.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE razorpay_order_id = $1 FOR UPDATE`, orderID)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	if p.BookingID != nil {
		ref := ""
		if p.BookingReference != nil {
			ref = *p.BookingReference
		}
		return &CaptureResult{
			Payment:       &p,
			Booking:       models.ConfirmedBooking{ID: *p.BookingID, Reference: ref},
			AlreadyBooked: true,
		}, nil
	}

	// failed and refunded are final
	if p.Status == models.PaymentStatusFailed || p.Status == models.PaymentStatusRefunded {
		return nil, ErrPaymentNotCapturable
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = 'captured', razorpay_payment_id = $2, razorpay_signature = $3,
		    failure_reason = NULL, captured_at = COALESCE(captured_at, NOW()), updated_at = NOW()
		WHERE id = $1`, p.ID, paymentID, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment: %w", err)
	}
	p.Status = models.PaymentStatusCaptured
	p.RazorpayPaymentID = &paymentID
	p.RazorpaySignature = &signature

	nb, err := build(&p)
	if err != nil {
		return nil, err
	}

	var confirmed models.ConfirmedBooking
	switch {
	case nb.BusBooking != nil:
		if err := insertBusBooking(ctx, tx, nb.BusBooking); err != nil {
			return nil, err
		}
		confirmed = models.ConfirmedBooking{ID: nb.BusBooking.ID, Reference: nb.BusBooking.PNR}
	case nb.Booking != nil:
		if err := insertBooking(ctx, tx, nb.Booking); err != nil {
			return nil, err
		}
		confirmed = models.ConfirmedBooking{ID: nb.Booking.ID, Reference: nb.Booking.ReferenceNumber}
	default:
		return nil, fmt.Errorf("no booking built for order %s", orderID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET booking_id = $2, booking_reference = $3, updated_at = NOW()
		WHERE id = $1`, p.ID, confirmed.ID, confirmed.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to link booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit capture: %w", err)
	}

	p.BookingID = &confirmed.ID
	p.BookingReference = &confirmed.Reference
	return &CaptureResult{Payment: &p, Booking: confirmed}, nil
}

func insertBooking(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	ref, err := uniqueReference(ctx, tx, models.BookingReferencePrefix, `SELECT COUNT(*) FROM bookings WHERE reference_number = $1`)
	if err != nil {
		return err
	}
	b.ID = uuid.New()
	b.ReferenceNumber = ref
	b.CreatedAt = time.Now()
	if b.Status == "" {
		b.Status = models.BookingStatusConfirmed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (
			id, reference_number, booking_type, user_id, homestay_id, package_id,
			details, pricing, special_requests, customer, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.ReferenceNumber, b.BookingType, b.UserID, b.HomestayID, b.PackageID,
		b.Details, b.Pricing, b.SpecialRequests, b.Customer, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func insertBusBooking(ctx context.Context, tx *sqlx.Tx, b *models.BusBooking) error {
	pnr, err := uniqueReference(ctx, tx, models.BusPNRPrefix, `SELECT COUNT(*) FROM bus_bookings WHERE pnr = $1`)
	if err != nil {
		return err
	}
	b.ID = uuid.New()
	b.PNR = pnr
	b.CreatedAt = time.Now()
	if b.Status == "" {
		b.Status = models.BookingStatusConfirmed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bus_bookings (
			id, pnr, user_id, journey, bus_details, passengers, pricing, customer, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.PNR, b.UserID, b.Journey, b.BusDetails, b.Passengers, b.Pricing, b.Customer, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bus booking: %w", err)
	}
	return nil
}

func uniqueReference(ctx context.Context, tx *sqlx.Tx, prefix, existsQuery string) (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		ref, err := models.NewReference(prefix, time.Now())
		if err != nil {
			return "", err
		}

		var count int
		if err := tx.GetContext(ctx, &count, existsQuery, ref); err != nil {
			return "", fmt.Errorf("failed to check reference uniqueness: %w", err)
		}
		if count == 0 {
			return ref, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique %s reference after 10 attempts", prefix)
}

// GetBooking returns a homestay or package booking by id, or nil if none exists
func (r *BookingRepository) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT id, reference_number, booking_type, user_id, homestay_id, package_id,
		       details, pricing, special_requests, customer, status, created_at
		FROM bookings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

// GetBusBooking returns a bus booking by id, or nil if none exists
func (r *BookingRepository) GetBusBooking(ctx context.Context, id uuid.UUID) (*models.BusBooking, error) {
	var b models.BusBooking
	err := r.db.GetContext(ctx, &b, `
		SELECT id, pnr, user_id, journey, bus_details, passengers, pricing, customer, status, created_at
		FROM bus_bookings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus booking: %w", err)
	}
	return &b, nil
}
