package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

var errStoreDown = errors.New("connection refused")

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore is an in-memory PaymentStore and BookingStore sharing one payments table
type memStore struct {
	mu           sync.Mutex
	payments     map[string]*models.Payment
	bookings     map[uuid.UUID]*models.Booking
	busBookings  map[uuid.UUID]*models.BusBooking
	captureCalls int
	failWith     error
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		payments:    map[string]*models.Payment{},
		bookings:    map[uuid.UUID]*models.Booking{},
		busBookings: map[uuid.UUID]*models.BusBooking{},
	}
}

func (m *memStore) put(p *models.Payment) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.payments[p.RazorpayOrderID] = p
	return p
}

func (m *memStore) payment(orderID string) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings) + len(m.busBookings)
}

func (m *memStore) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.payments[p.RazorpayOrderID]; ok {
		return database.ErrDuplicateOrder
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.payments[p.RazorpayOrderID] = &cp
	return nil
}

func (m *memStore) GetByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.payment(orderID), nil
}

func (m *memStore) update(orderID string, allowed func(models.PaymentStatus) bool, apply func(*models.Payment)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	p, ok := m.payments[orderID]
	if !ok || !allowed(p.Status) {
		return false, nil
	}
	apply(p)
	p.UpdatedAt = time.Now()
	return true, nil
}

func statusIn(statuses ...models.PaymentStatus) func(models.PaymentStatus) bool {
	return func(s models.PaymentStatus) bool {
		for _, st := range statuses {
			if s == st {
				return true
			}
		}
		return false
	}
}

func anyStatus(models.PaymentStatus) bool { return true }

func (m *memStore) MarkFailedIfPending(_ context.Context, orderID, reason string) (bool, error) {
	return m.update(orderID, statusIn(models.PaymentStatusCreated, models.PaymentStatusAuthorized), func(p *models.Payment) {
		p.Status = models.PaymentStatusFailed
		p.FailureReason = &reason
	})
}

func (m *memStore) MarkFailed(_ context.Context, orderID, paymentID, reason string) (bool, error) {
	return m.update(orderID, anyStatus, func(p *models.Payment) {
		p.Status = models.PaymentStatusFailed
		p.FailureReason = &reason
		if paymentID != "" {
			p.RazorpayPaymentID = &paymentID
		}
	})
}

func (m *memStore) MarkCaptured(_ context.Context, orderID, paymentID, method string) (bool, error) {
	return m.update(orderID, statusIn(models.PaymentStatusCreated, models.PaymentStatusAuthorized), func(p *models.Payment) {
		now := time.Now()
		p.Status = models.PaymentStatusCaptured
		p.RazorpayPaymentID = &paymentID
		p.FailureReason = nil
		p.CapturedAt = &now
		if method != "" {
			p.PaymentMethod = &method
		}
	})
}

func (m *memStore) MarkAuthorized(_ context.Context, orderID, paymentID, method string) (bool, error) {
	return m.update(orderID, statusIn(models.PaymentStatusCreated), func(p *models.Payment) {
		p.Status = models.PaymentStatusAuthorized
		p.RazorpayPaymentID = &paymentID
		if method != "" {
			p.PaymentMethod = &method
		}
	})
}

func (m *memStore) MarkRefunded(_ context.Context, orderID, refundID string, amount float64) (bool, error) {
	return m.update(orderID, statusIn(models.PaymentStatusCaptured), func(p *models.Payment) {
		p.Status = models.PaymentStatusRefunded
		p.RefundID = &refundID
		p.RefundAmount = &amount
	})
}

func (m *memStore) ExpireCreated(_ context.Context, cutoff time.Time, reason string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var expired []string
	for id, p := range m.payments {
		if p.Status == models.PaymentStatusCreated && p.CreatedAt.Before(cutoff) {
			r := reason
			p.Status = models.PaymentStatusFailed
			p.FailureReason = &r
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (m *memStore) ListCapturedWithoutBooking(_ context.Context, capturedBefore time.Time, limit int) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []*models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentStatusCaptured && p.BookingID == nil && p.CapturedAt != nil && p.CapturedAt.Before(capturedBefore) {
			cp := *p
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CaptureAndBook(_ context.Context, orderID, paymentID, signature string, build database.BookingBuilder) (*database.CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}

	stored, ok := m.payments[orderID]
	if !ok {
		return nil, database.ErrPaymentNotFound
	}
	if stored.BookingID != nil {
		cp := *stored
		return &database.CaptureResult{
			Payment:       &cp,
			Booking:       models.ConfirmedBooking{ID: *stored.BookingID, Reference: *stored.BookingReference},
			AlreadyBooked: true,
		}, nil
	}
	if stored.Status == models.PaymentStatusFailed || stored.Status == models.PaymentStatusRefunded {
		return nil, database.ErrPaymentNotCapturable
	}

	// work on a copy so a failed build leaves the row untouched, like a rollback
	p := *stored
	p.Status = models.PaymentStatusCaptured
	p.RazorpayPaymentID = &paymentID
	p.RazorpaySignature = &signature

	nb, err := build(&p)
	if err != nil {
		return nil, err
	}

	m.seq++
	var confirmed models.ConfirmedBooking
	switch {
	case nb.BusBooking != nil:
		nb.BusBooking.ID = uuid.New()
		nb.BusBooking.PNR = fmt.Sprintf("%s-20261015-%06d", models.BusPNRPrefix, m.seq)
		nb.BusBooking.Status = models.BookingStatusConfirmed
		m.busBookings[nb.BusBooking.ID] = nb.BusBooking
		confirmed = models.ConfirmedBooking{ID: nb.BusBooking.ID, Reference: nb.BusBooking.PNR}
	case nb.Booking != nil:
		nb.Booking.ID = uuid.New()
		nb.Booking.ReferenceNumber = fmt.Sprintf("%s-20261015-%06d", models.BookingReferencePrefix, m.seq)
		nb.Booking.Status = models.BookingStatusConfirmed
		m.bookings[nb.Booking.ID] = nb.Booking
		confirmed = models.ConfirmedBooking{ID: nb.Booking.ID, Reference: nb.Booking.ReferenceNumber}
	default:
		return nil, fmt.Errorf("no booking built for order %s", orderID)
	}

	now := time.Now()
	p.BookingID = &confirmed.ID
	p.BookingReference = &confirmed.Reference
	p.CapturedAt = &now
	*stored = p

	cp := p
	return &database.CaptureResult{Payment: &cp, Booking: confirmed}, nil
}

func (m *memStore) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id], nil
}

func (m *memStore) GetBusBooking(_ context.Context, id uuid.UUID) (*models.BusBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busBookings[id], nil
}

// memAudit is an in-memory AuditStore
type memAudit struct {
	mu      sync.Mutex
	rows    []*models.PaymentAudit
	failLog bool
}

func (a *memAudit) Log(_ context.Context, audit *models.PaymentAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failLog {
		return errStoreDown
	}
	a.rows = append(a.rows, audit)
	return nil
}

func (a *memAudit) CheckDuplicate(_ context.Context, orderID string, eventType models.PaymentEventType, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.rows {
		if r.EventType == eventType && r.IdempotencyKey != nil && *r.IdempotencyKey == key &&
			r.RazorpayOrderID != nil && *r.RazorpayOrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (a *memAudit) byType(t models.PaymentEventType) []*models.PaymentAudit {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.PaymentAudit
	for _, r := range a.rows {
		if r.EventType == t {
			out = append(out, r)
		}
	}
	return out
}

// fakeGateway records CreateOrder calls
type fakeGateway struct {
	mu     sync.Mutex
	err    error
	calls  int
	orders []*GatewayOrder
}

func (g *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	order := &GatewayOrder{
		ID:       fmt.Sprintf("order_test%04d", g.calls),
		Entity:   "order",
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders = append(g.orders, order)
	return order, nil
}

func (g *fakeGateway) KeyID() string { return testKeyID }
