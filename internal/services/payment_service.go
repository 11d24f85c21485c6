package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralretreats/tourism-backend/internal/database"
	"github.com/ruralretreats/tourism-backend/internal/models"
	"github.com/ruralretreats/tourism-backend/pkg/pricing"
	"github.com/sirupsen/logrus"
)

// Failure reasons stored on payments
const (
	ReasonSignatureMismatch = "Signature verification failed"
	ReasonPaymentFailed     = "Payment failed"
	ReasonOrderExpired      = "Order expired"
)

// CreateOrderRequest is the create-order payload
type CreateOrderRequest struct {
	Amount          float64                 `json:"amount"`
	Currency        string                  `json:"currency"`
	BookingType     models.BookingType      `json:"bookingType"`
	BookingDetails  models.RawJSON          `json:"bookingDetails"`
	CustomerDetails *models.CustomerDetails `json:"customerDetails"`

	UserID *uuid.UUID         `json:"-"`
	Meta   models.RequestMeta `json:"-"`
}

// OrderView is what the checkout widget needs to open
type OrderView struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// OrderResult is returned by CreateOrder
type OrderResult struct {
	Order           OrderView              `json:"order"`
	CustomerDetails models.CustomerDetails `json:"customerDetails"`
}

// VerifyRequest is the signed checkout result plus the booking to create
type VerifyRequest struct {
	OrderID        string         `json:"razorpay_order_id"`
	PaymentID      string         `json:"razorpay_payment_id"`
	Signature      string         `json:"razorpay_signature"`
	BookingDetails models.RawJSON `json:"bookingDetails"`

	UserID *uuid.UUID         `json:"-"`
	Meta   models.RequestMeta `json:"-"`
}

// VerifyResult identifies the confirmed booking
type VerifyResult struct {
	BookingReference string    `json:"bookingReference"`
	BookingID        uuid.UUID `json:"bookingId"`
	AlreadyCaptured  bool      `json:"-"`
}

// PaymentService owns the order, verification and status flows
type PaymentService struct {
	payments        PaymentStore
	bookings        BookingStore
	gateway         OrderGateway
	audit           *PaymentAuditService
	keySecret       string
	defaultCurrency string
	logger          *logrus.Logger
	now             func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments PaymentStore,
	bookings BookingStore,
	gateway OrderGateway,
	audit *PaymentAuditService,
	keySecret string,
	defaultCurrency string,
	logger *logrus.Logger,
) *PaymentService {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &PaymentService{
		payments:        payments,
		bookings:        bookings,
		gateway:         gateway,
		audit:           audit,
		keySecret:       keySecret,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

func validateCreateOrder(req *CreateOrderRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return invalid("amount", "Amount must be a positive number")
	}
	if req.BookingType == "" {
		return invalid("bookingType", "Booking type is required")
	}
	if !req.BookingType.IsValid() {
		return invalid("bookingType", "Unsupported booking type")
	}
	c := req.CustomerDetails
	if c == nil || strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Phone) == "" {
		return invalid("customerDetails", "Customer name, email and phone are required")
	}
	return nil
}

// CreateOrder registers an order with the gateway and records the payment
// in created status. Nothing is stored when validation or the gateway fails.
func (s *PaymentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if err := validateCreateOrder(&req); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	amountMinor := pricing.ToMinorUnits(req.Amount)
	receipt := fmt.Sprintf("receipt_%d", s.now().UnixMilli())

	order, err := s.gateway.CreateOrder(ctx, amountMinor, currency, receipt)
	if err != nil {
		audit := models.NewPaymentAudit(models.PaymentEventOrderFailed, models.PaymentSourceRazorpayAPI).
			SetError(err.Error(), nil).
			SetMetadata(req.Meta)
		audit.SetAmounts(req.Amount, 0, currency)
		s.audit.Record(ctx, audit)
		if errors.Is(err, ErrGateway) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	customer := *req.CustomerDetails
	payment := &models.Payment{
		RazorpayOrderID: order.ID,
		Amount:          req.Amount,
		AmountMinor:     amountMinor,
		Currency:        currency,
		Receipt:         receipt,
		Status:          models.PaymentStatusCreated,
		BookingType:     req.BookingType,
		CustomerDetails: customer,
		UserID:          req.UserID,
	}
	if !req.BookingDetails.IsEmpty() {
		payment.BookingDetails = req.BookingDetails
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		fields := logrus.Fields{"order_id": order.ID, "receipt": receipt}
		if errors.Is(err, database.ErrDuplicateOrder) {
			s.logger.WithError(err).WithFields(fields).Error("Gateway returned an order id that is already stored")
			return nil, err
		}
		s.logger.WithError(err).WithFields(fields).Error("Failed to store payment for created order")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	audit := models.NewPaymentAudit(models.PaymentEventInitiated, models.PaymentSourceBackend).
		SetPayment(payment).
		SetPaymentStatus(models.PaymentStatusCreated).
		SetMetadata(req.Meta)
	audit.SetAmounts(req.Amount, float64(order.Amount)/100, currency)
	s.audit.Record(ctx, audit)

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"booking_type": req.BookingType,
		"amount":       req.Amount,
		"currency":     currency,
	}).Info("Payment order created")

	resultCurrency := order.Currency
	if resultCurrency == "" {
		resultCurrency = currency
	}
	return &OrderResult{
		Order: OrderView{
			ID:       order.ID,
			Amount:   order.Amount,
			Currency: resultCurrency,
			KeyID:    s.gateway.KeyID(),
		},
		CustomerDetails: customer,
	}, nil
}

// VerifyPayment checks the checkout signature, then captures the payment and
// creates its booking in one transaction. Verifying the same payment again
// returns the booking created the first time.
func (s *PaymentService) VerifyPayment(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	startTime := time.Now()

	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, invalid("", "Missing payment verification fields")
	}

	if !VerifyCheckoutSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		s.rejectSignature(ctx, req)
		return nil, ErrInvalidSignature
	}

	var clientDetails *models.BookingDetails
	if !req.BookingDetails.IsEmpty() {
		clientDetails = &models.BookingDetails{}
		if err := json.Unmarshal(req.BookingDetails, clientDetails); err != nil {
			return nil, invalid("bookingDetails", "Booking details are malformed")
		}
	}

	result, err := s.bookings.CaptureAndBook(ctx, req.OrderID, req.PaymentID, req.Signature, func(p *models.Payment) (*database.NewBooking, error) {
		return s.buildBooking(p, clientDetails, req.UserID)
	})
	if err != nil {
		return nil, s.captureFailed(ctx, req, err)
	}

	payment := result.Payment
	if result.AlreadyBooked {
		s.logger.WithFields(logrus.Fields{
			"order_id":   req.OrderID,
			"booking_id": result.Booking.ID,
		}).Info("Payment already verified, returning existing booking")
		audit := models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceUser).
			SetPayment(payment).
			SetGatewayPaymentID(req.PaymentID).
			SetPaymentStatus(payment.Status).
			SetMetadata(req.Meta).
			MarkAsDuplicate().
			SetProcessingTime(startTime)
		s.audit.Record(ctx, audit)
		return &VerifyResult{
			BookingReference: result.Booking.Reference,
			BookingID:        result.Booking.ID,
			AlreadyCaptured:  true,
		}, nil
	}

	audit := models.NewPaymentAudit(models.PaymentEventBookingConfirmed, models.PaymentSourceUser).
		SetPayment(payment).
		SetGatewayPaymentID(req.PaymentID).
		SetPaymentStatus(models.PaymentStatusCaptured).
		SetMetadata(req.Meta).
		SetRequestPayload(map[string]interface{}{
			"booking_id":        result.Booking.ID.String(),
			"booking_reference": result.Booking.Reference,
			"booking_type":      string(payment.BookingType),
		}).
		SetProcessingTime(startTime)
	audit.SetAmounts(payment.Amount, payment.Amount, payment.Currency)
	s.audit.Record(ctx, audit)

	s.checkClientTotal(ctx, payment, clientDetails, req.Meta)

	s.logger.WithFields(logrus.Fields{
		"order_id":          req.OrderID,
		"payment_id":        req.PaymentID,
		"booking_id":        result.Booking.ID,
		"booking_reference": result.Booking.Reference,
	}).Info("Payment verified and booking confirmed")

	return &VerifyResult{
		BookingReference: result.Booking.Reference,
		BookingID:        result.Booking.ID,
	}, nil
}

func (s *PaymentService) rejectSignature(ctx context.Context, req VerifyRequest) {
	s.logger.WithFields(logrus.Fields{
		"order_id":   req.OrderID,
		"payment_id": req.PaymentID,
		"ip":         req.Meta.IP,
	}).Warn("Checkout signature mismatch")

	if _, err := s.payments.MarkFailedIfPending(ctx, req.OrderID, ReasonSignatureMismatch); err != nil {
		s.logger.WithError(err).WithField("order_id", req.OrderID).Error("Failed to mark payment failed after signature mismatch")
	}

	code := "SIGNATURE_MISMATCH"
	audit := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceUser).
		SetOrderID(req.OrderID).
		SetGatewayPaymentID(req.PaymentID).
		SetError(ReasonSignatureMismatch, &code).
		SetMetadata(req.Meta)
	s.audit.Record(ctx, audit)
}

func (s *PaymentService) captureFailed(ctx context.Context, req VerifyRequest, err error) error {
	fields := logrus.Fields{"order_id": req.OrderID, "payment_id": req.PaymentID}

	switch {
	case errors.Is(err, database.ErrPaymentNotFound):
		s.logger.WithFields(fields).Warn("Verification for unknown order")
		return err
	case errors.Is(err, database.ErrPaymentNotCapturable):
		s.logger.WithFields(fields).Warn("Verification for failed or refunded payment")
		return err
	}

	s.logger.WithError(err).WithFields(fields).Error("Failed to capture payment and create booking")
	audit := models.NewPaymentAudit(models.PaymentEventBookingConfirmFailed, models.PaymentSourceBackend).
		SetOrderID(req.OrderID).
		SetGatewayPaymentID(req.PaymentID).
		SetError(err.Error(), nil).
		SetMetadata(req.Meta)
	s.audit.Record(ctx, audit)
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// checkClientTotal compares the client's pricing snapshot with what was charged
func (s *PaymentService) checkClientTotal(ctx context.Context, p *models.Payment, details *models.BookingDetails, meta models.RequestMeta) {
	clientTotal, ok := details.PricingTotal()
	if !ok {
		return
	}
	audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceUser).
		SetPayment(p).
		SetPaymentStatus(p.Status).
		SetMetadata(meta)
	if audit.SetAmounts(p.Amount, clientTotal, p.Currency) {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"order_id":     p.RazorpayOrderID,
		"charged":      p.Amount,
		"client_total": clientTotal,
	}).Warn("Client pricing total differs from charged amount")
	s.audit.Record(ctx, audit)
}

// RecordFailure stores a failure reported by the checkout widget. Unknown
// orders and payments that already settled are left untouched.
func (s *PaymentService) RecordFailure(ctx context.Context, orderID, description string, meta models.RequestMeta) error {
	if orderID == "" {
		return nil
	}
	reason := strings.TrimSpace(description)
	if reason == "" {
		reason = ReasonPaymentFailed
	}

	updated, err := s.payments.MarkFailedIfPending(ctx, orderID, reason)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("Failed to record payment failure")
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	audit := models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceUser).
		SetOrderID(orderID).
		SetError(reason, nil).
		SetMetadata(meta)
	if !updated {
		audit.MarkAsDuplicate()
	} else {
		audit.SetPaymentStatus(models.PaymentStatusFailed)
	}
	s.audit.Record(ctx, audit)

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"reason":   reason,
		"updated":  updated,
	}).Info("Client reported payment failure")
	return nil
}

// GetStatus returns the public status of a payment
func (s *PaymentService) GetStatus(ctx context.Context, orderID string) (*models.PaymentStatusView, error) {
	p, err := s.getPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := p.StatusView()
	return &view, nil
}

func (s *PaymentService) getPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	if orderID == "" {
		return nil, ErrPaymentNotFound
	}
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// buildBooking turns the booking details into the record stored for p.
// Details sent with verification win over those stored at order creation.
func (s *PaymentService) buildBooking(p *models.Payment, details *models.BookingDetails, jwtUser *uuid.UUID) (*database.NewBooking, error) {
	if details == nil {
		details = &models.BookingDetails{}
		if !p.BookingDetails.IsEmpty() {
			// the payment is already taken, so a bad document still books with defaults
			if err := json.Unmarshal(p.BookingDetails, details); err != nil {
				s.logger.WithError(err).WithField("order_id", p.RazorpayOrderID).Warn("Stored booking details are unreadable, booking with defaults")
				details = &models.BookingDetails{}
			}
		}
	}

	userID := bookingUser(p, details, jwtUser)
	pricingSnapshot := details.Pricing
	if len(pricingSnapshot) == 0 {
		pricingSnapshot = models.JSONB{"totalAmount": p.Amount, "currency": p.Currency}
	}
	customer := bookingCustomer(p, details)

	switch p.BookingType {
	case models.BookingTypeBus:
		journey := models.Journey{}
		if details.Journey != nil {
			journey = *details.Journey
		}
		bus := models.BusDetails{Type: pricing.BusClassAC, Amenities: []string{}}
		if details.BusDetails != nil {
			bus = *details.BusDetails
		}
		passengers := models.Passengers{Adults: 1}
		if details.Passengers != nil {
			passengers = *details.Passengers
		}
		jj, err := models.ToJSONB(journey)
		if err != nil {
			return nil, err
		}
		bj, err := models.ToJSONB(bus)
		if err != nil {
			return nil, err
		}
		pj, err := models.ToJSONB(passengers)
		if err != nil {
			return nil, err
		}
		return &database.NewBooking{BusBooking: &models.BusBooking{
			UserID:     userID,
			Journey:    jj,
			BusDetails: bj,
			Passengers: pj,
			Pricing:    pricingSnapshot,
			Customer:   customer,
		}}, nil

	case models.BookingTypeHomestay, models.BookingTypePackage:
		b := &models.Booking{
			BookingType: p.BookingType,
			UserID:      userID,
			Pricing:     pricingSnapshot,
			Customer:    customer,
		}
		if details.SpecialRequests != "" {
			sr := details.SpecialRequests
			b.SpecialRequests = &sr
		}
		if p.BookingType == models.BookingTypeHomestay {
			if details.HomestayID != "" {
				id := details.HomestayID
				b.HomestayID = &id
			}
			stay := models.StayDetails{Guests: models.Passengers{Adults: 1}}
			if details.Details != nil {
				stay = *details.Details
			}
			dj, err := models.ToJSONB(stay)
			if err != nil {
				return nil, err
			}
			b.Details = dj
		} else {
			if details.PackageID != "" {
				id := details.PackageID
				b.PackageID = &id
			}
			travellers := models.Passengers{Adults: 1}
			if details.Passengers != nil {
				travellers = *details.Passengers
			}
			b.Details = models.JSONB{
				"packageName": details.PackageName,
				"duration":    details.Duration,
				"travelDate":  details.TravelDate,
				"travellers":  map[string]interface{}{"adults": travellers.Adults, "children": travellers.Children},
			}
		}
		return &database.NewBooking{Booking: b}, nil
	}

	return nil, fmt.Errorf("unsupported booking type %q", p.BookingType)
}

func bookingUser(p *models.Payment, details *models.BookingDetails, jwtUser *uuid.UUID) *uuid.UUID {
	if jwtUser != nil {
		return jwtUser
	}
	if details.UserID != "" {
		if id, err := uuid.Parse(details.UserID); err == nil {
			return &id
		}
	}
	return p.UserID
}

func bookingCustomer(p *models.Payment, details *models.BookingDetails) models.CustomerDetails {
	c := p.CustomerDetails
	if details.CustomerName != "" {
		c.Name = details.CustomerName
	}
	if details.Email != "" {
		c.Email = details.Email
	}
	if details.Phone != "" {
		c.Phone = details.Phone
	}
	return c
}
