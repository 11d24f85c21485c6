package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func busBuilder(p *models.Payment) (*NewBooking, error) {
	return &NewBooking{BusBooking: &models.BusBooking{
		Journey:    models.JSONB{"from": "Kerala", "to": "Goa"},
		BusDetails: models.JSONB{"type": "AC"},
		Passengers: models.JSONB{"adults": 2, "children": 1},
		Pricing:    models.JSONB{"totalAmount": p.Amount},
		Customer:   p.CustomerDetails,
	}}, nil
}

func TestCaptureAndBook(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates bus booking and links payment", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_1")

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM payments WHERE razorpay_order_id = \$1 FOR UPDATE`).
			WithArgs("order_1").
			WillReturnRows(paymentRows(p))
		mock.ExpectExec(`UPDATE payments SET status = 'captured'`).
			WithArgs(p.ID.String(), "pay_1", "sig_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bus_bookings WHERE pnr = \$1`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO bus_bookings`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE payments SET booking_id = \$2, booking_reference = \$3`).
			WithArgs(p.ID.String(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := repo.CaptureAndBook(ctx, "order_1", "pay_1", "sig_1", busBuilder)
		require.NoError(t, err)
		assert.False(t, result.AlreadyBooked)
		assert.Regexp(t, `^PNR-\d{8}-[0-9A-F]{6}$`, result.Booking.Reference)
		assert.NotEqual(t, uuid.Nil, result.Booking.ID)
		assert.Equal(t, models.PaymentStatusCaptured, result.Payment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries reference on collision", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_2")
		p.BookingType = models.BookingTypeHomestay

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("order_2").WillReturnRows(paymentRows(p))
		mock.ExpectExec(`UPDATE payments SET status = 'captured'`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE payments SET booking_id`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := repo.CaptureAndBook(ctx, "order_2", "pay_2", "sig_2", func(p *models.Payment) (*NewBooking, error) {
			return &NewBooking{Booking: &models.Booking{BookingType: p.BookingType, Customer: p.CustomerDetails}}, nil
		})
		require.NoError(t, err)
		assert.Regexp(t, `^RR-\d{8}-[0-9A-F]{6}$`, result.Booking.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already booked returns existing booking", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_3")
		p.Status = models.PaymentStatusCaptured
		bookingID := uuid.New()
		ref := "PNR-20260410-ABC123"
		p.BookingID = &bookingID
		p.BookingReference = &ref

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("order_3").WillReturnRows(paymentRows(p))
		mock.ExpectRollback()

		builderCalled := false
		result, err := repo.CaptureAndBook(ctx, "order_3", "pay_3", "sig_3", func(*models.Payment) (*NewBooking, error) {
			builderCalled = true
			return nil, nil
		})
		require.NoError(t, err)
		assert.True(t, result.AlreadyBooked)
		assert.Equal(t, bookingID, result.Booking.ID)
		assert.Equal(t, ref, result.Booking.Reference)
		assert.False(t, builderCalled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Payment not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(paymentColumnNames))
		mock.ExpectRollback()

		_, err := repo.CaptureAndBook(ctx, "ghost", "pay", "sig", busBuilder)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refunded payment cannot be captured", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_4")
		p.Status = models.PaymentStatusRefunded

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(paymentRows(p))
		mock.ExpectRollback()

		_, err := repo.CaptureAndBook(ctx, "order_4", "pay", "sig", busBuilder)
		assert.ErrorIs(t, err, ErrPaymentNotCapturable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed payment cannot be captured", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_failed")
		p.Status = models.PaymentStatusFailed
		reason := "Signature verification failed"
		p.FailureReason = &reason

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs("order_failed").WillReturnRows(paymentRows(p))
		mock.ExpectRollback()

		builderCalled := false
		result, err := repo.CaptureAndBook(ctx, "order_failed", "pay_x", "sig_x", func(p *models.Payment) (*NewBooking, error) {
			builderCalled = true
			return busBuilder(p)
		})
		assert.ErrorIs(t, err, ErrPaymentNotCapturable)
		assert.Nil(t, result)
		assert.False(t, builderCalled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert failure rolls back capture", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)
		p := newPayment("order_5")

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(paymentRows(p))
		mock.ExpectExec(`UPDATE payments SET status = 'captured'`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bus_bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO bus_bookings`).WillReturnError(fmt.Errorf("disk full"))
		mock.ExpectRollback()

		_, err := repo.CaptureAndBook(ctx, "order_5", "pay", "sig", busBuilder)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create bus booking")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetBooking_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	b, err := repo.GetBooking(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, b)
}
