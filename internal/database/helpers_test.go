package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var paymentColumnNames = []string{
	"id", "razorpay_order_id", "razorpay_payment_id", "razorpay_signature",
	"amount", "amount_minor", "currency", "receipt", "status", "booking_type",
	"booking_id", "booking_reference", "customer_details", "booking_details", "user_id",
	"payment_method", "failure_reason", "refund_id", "refund_amount",
	"created_at", "updated_at", "captured_at",
}

func paymentRows(p *models.Payment) *sqlmock.Rows {
	var bookingID interface{}
	if p.BookingID != nil {
		bookingID = p.BookingID.String()
	}
	var bookingRef interface{}
	if p.BookingReference != nil {
		bookingRef = *p.BookingReference
	}
	var bookingDetails interface{}
	if len(p.BookingDetails) > 0 {
		bookingDetails = []byte(p.BookingDetails)
	}
	now := time.Now()

	return sqlmock.NewRows(paymentColumnNames).AddRow(
		p.ID.String(), p.RazorpayOrderID, nil, nil,
		p.Amount, p.AmountMinor, p.Currency, p.Receipt, string(p.Status), string(p.BookingType),
		bookingID, bookingRef, []byte(`{"name":"Asha","email":"asha@example.com","phone":"9876543210"}`), bookingDetails, nil,
		nil, nil, nil, nil,
		now, now, nil,
	)
}
