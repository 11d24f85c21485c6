package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/ruralretreats/tourism-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// GatewayOrder is the order object returned by Razorpay
type GatewayOrder struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// OrderGateway creates orders at the payment gateway
type OrderGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error)
	KeyID() string
}

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayService talks to the Razorpay Orders API
type RazorpayService struct {
	config  config.RazorpayConfig
	logger  *logrus.Logger
	client  *resty.Client
	breaker *circuit.Breaker
}

// NewRazorpayService creates a new Razorpay client
func NewRazorpayService(cfg config.RazorpayConfig, logger *logrus.Logger) *RazorpayService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}

	return &RazorpayService{
		config:  cfg,
		logger:  logger,
		client:  client,
		breaker: circuit.NewConsecutiveBreaker(threshold),
	}
}

// KeyID returns the public key the checkout widget needs
func (s *RazorpayService) KeyID() string {
	return s.config.KeyID
}

// CreateOrder registers an order for amountMinor paise. Orders are created
// with payment_capture=1 so authorised payments are captured automatically.
func (s *RazorpayService) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*GatewayOrder, error) {
	body := razorpayOrderRequest{
		Amount:         amountMinor,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	}

	var order GatewayOrder
	var rejected error
	err := s.breaker.Call(func() error {
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&order).
			Post("/orders")
		if err != nil {
			return fmt.Errorf("order request failed: %w", err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("gateway returned %s", resp.Status())
		}
		if resp.StatusCode() != http.StatusOK {
			// 4xx does not count against the breaker
			rejected = fmt.Errorf("gateway rejected order (%d): %s", resp.StatusCode(), describeRazorpayError(resp.Body()))
		}
		return nil
	}, 0)
	if err == nil {
		err = rejected
	}
	if err != nil {
		if errors.Is(err, circuit.ErrBreakerOpen) {
			s.logger.WithField("receipt", receipt).Warn("Razorpay circuit open, refusing order creation")
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"receipt":      receipt,
			"amount_minor": amountMinor,
			"currency":     currency,
		}).Error("Failed to create Razorpay order")
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrGateway)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"receipt":      receipt,
		"amount_minor": order.Amount,
	}).Info("Razorpay order created")

	return &order, nil
}

// IsConfigured returns true if the gateway credentials are present
func (s *RazorpayService) IsConfigured() bool {
	return s.config.KeyID != "" && s.config.KeySecret != ""
}

func describeRazorpayError(body []byte) string {
	var rerr razorpayError
	if err := json.Unmarshal(body, &rerr); err == nil && rerr.Error.Description != "" {
		return rerr.Error.Description
	}
	return string(body)
}

// Sign returns hex(HMAC-SHA256(secret, message))
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckoutSignature is the signature Razorpay attaches to a checkout result
func CheckoutSignature(keySecret, orderID, paymentID string) string {
	return Sign(keySecret, []byte(orderID+"|"+paymentID))
}

// VerifyCheckoutSignature checks a checkout signature in constant time
func VerifyCheckoutSignature(keySecret, orderID, paymentID, signature string) bool {
	return verifyHex(CheckoutSignature(keySecret, orderID, paymentID), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw body
func VerifyWebhookSignature(webhookSecret string, rawBody []byte, signature string) bool {
	return verifyHex(Sign(webhookSecret, rawBody), signature)
}

func verifyHex(expected, got string) bool {
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}
