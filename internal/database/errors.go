package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateOrder means a payment row already exists for a gateway order id
	ErrDuplicateOrder = errors.New("payment already exists for order")

	// ErrPaymentNotFound means no payment row matches the gateway order id
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentNotCapturable means the payment is in a state capture cannot leave
	ErrPaymentNotCapturable = errors.New("payment cannot be captured in its current state")

	// ErrDuplicateUser means username or email is already registered
	ErrDuplicateUser = errors.New("username or email already registered")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
